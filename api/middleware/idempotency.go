package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scoutfund/troopsales-backend/api/responses"
	pkgerrors "github.com/scoutfund/troopsales-backend/pkg/errors"
	"github.com/scoutfund/troopsales-backend/pkg/logger"
	pkgredis "github.com/scoutfund/troopsales-backend/pkg/redis"
)

const orderCaptureTTL = 24 * time.Hour

type idempotencyStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, key string) string
}

type guardedRoute struct {
	method string
	match  func(pattern string) bool
	ttl    time.Duration
}

// Order capture is the one endpoint where a client retry must not create a
// second row; everything else in the API is naturally idempotent.
var guardedRoutes = []guardedRoute{
	{
		method: http.MethodPost,
		match: func(pattern string) bool {
			return strings.HasPrefix(pattern, "/api/v1/seasons/") && strings.HasSuffix(pattern, "/orders")
		},
		ttl: orderCaptureTTL,
	},
}

// storedReply is what Redis holds per (account, route, Idempotency-Key):
// the first response verbatim, plus a hash of the request that produced it
// so key reuse with a different body is detectable.
type storedReply struct {
	Status      int               `json:"status"`
	Body        string            `json:"body"`
	Headers     map[string]string `json:"headers,omitempty"`
	RequestHash string            `json:"request_hash"`
}

// Idempotency replays the stored response when a guarded route sees the same
// Idempotency-Key twice. Unguarded routes pass straight through.
func Idempotency(store idempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := guardTTL(r)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			requestHash := fingerprint(body)
			scope := strings.Join([]string{AccountIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
			redisKey := store.IdempotencyKey(scope, clientKey)

			stored, getErr := store.Get(r.Context(), redisKey)
			if getErr != nil && !pkgredis.IsNil(getErr) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if stored != "" {
				var reply storedReply
				if err := json.Unmarshal([]byte(stored), &reply); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if reply.RequestHash != requestHash {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				replay(w, reply)
				return
			}

			capture := &captureWriter{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			remember(r.Context(), store, logg, redisKey, requestHash, capture, ttl)
		})
	}
}

func guardTTL(r *http.Request) (time.Duration, bool) {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	for _, route := range guardedRoutes {
		if route.method == r.Method && route.match(pattern) {
			return route.ttl, true
		}
	}
	return 0, false
}

func remember(ctx context.Context, store idempotencyStore, logg *logger.Logger, key, requestHash string, capture *captureWriter, ttl time.Duration) {
	reply := storedReply{
		Status:      capture.statusOrOK(),
		Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
		RequestHash: requestHash,
	}
	if ct := capture.Header().Get("Content-Type"); ct != "" {
		reply.Headers = map[string]string{"Content-Type": ct}
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		if logg != nil {
			logg.Error(ctx, "marshal idempotency record", err)
		}
		return
	}
	if _, err := store.SetNX(ctx, key, string(payload), ttl); err != nil && logg != nil {
		logg.Error(ctx, "persist idempotency record", err)
	}
}

func replay(w http.ResponseWriter, reply storedReply) {
	if ct := reply.Headers["Content-Type"]; ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(reply.Status)
	if decoded, err := base64.StdEncoding.DecodeString(reply.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func fingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.StdEncoding.EncodeToString(sum[:])
}

type captureWriter struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *captureWriter) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
