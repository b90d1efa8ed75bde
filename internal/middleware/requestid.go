// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// Caller supplied ids are echoed back and logged, so only short tokens of
// ASCII letters, digits and "-_." are kept.
const (
	RequestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128
)

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	return strings.IndexFunc(id, func(c rune) bool {
		return !(c < 0x80 && (c == '-' || c == '_' || c == '.' ||
			'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9'))
	}) < 0
}

// RequestID tags every request with an id, reusing a valid X-Request-ID from
// the caller and otherwise minting a UUID. The id is echoed in the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// GetRequestID returns the id set by RequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// ClientIDHeader is the HTTP header callers use to identify themselves.
const ClientIDHeader = "X-Client-ID"

// maxClientIDLength bounds the client id carried into logs and rate limit keys.
const maxClientIDLength = 64

// ClientID is a middleware that copies the X-Client-ID header into the context.
// Overlong values are ignored so they cannot blow up log lines or limiter keys.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" && len(id) <= maxClientIDLength {
			r = r.WithContext(SetClientID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
