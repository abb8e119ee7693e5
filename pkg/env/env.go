// Package env reads process environment variables with fallbacks, for the
// few knobs (service name, log format) needed before config loads.
package env

import "os"

// Get returns the variable's value, or def when unset or empty.
func Get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
