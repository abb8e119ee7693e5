package validators

import "strings"

// SanitizeString trims surrounding whitespace and truncates free-text
// input (seller names, customer names) to the column's budget. Truncation
// is byte-wise; the limits used here are far above any realistic name.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.TrimSpace(input)
	if maxLen <= 0 || len(cleaned) <= maxLen {
		return cleaned
	}
	return cleaned[:maxLen]
}
