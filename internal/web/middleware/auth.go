package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type contextKey string

const requestInfoKey contextKey = "request-info"

// requestInfo is shared by the middleware of one request. RequestLogger
// installs it so that values set further down the chain reach the log line.
type requestInfo struct {
	client string
}

func requestInfoFrom(ctx context.Context) *requestInfo {
	info, _ := ctx.Value(requestInfoKey).(*requestInfo)
	return info
}

// withRequestInfo returns r carrying a requestInfo, reusing an existing one.
func withRequestInfo(r *http.Request) (*http.Request, *requestInfo) {
	if info := requestInfoFrom(r.Context()); info != nil {
		return r, info
	}
	info := &requestInfo{}
	return r.WithContext(context.WithValue(r.Context(), requestInfoKey, info)), info
}

// RequireAPIKey rejects requests whose X-API-Key header (or Bearer token)
// does not match key. An empty key disables the check.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-API-Key")
			if got == "" {
				got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				http.Error(w, `{"error": "unauthorized", "code": "Unauthorized"}`, http.StatusUnauthorized)
				return
			}

			r, info := withRequestInfo(r)
			info.client = "api-key"
			next.ServeHTTP(w, r)
		})
	}
}

// ClientFromContext returns how the caller authenticated, or "" when the
// API key check is disabled or did not run.
func ClientFromContext(ctx context.Context) string {
	if info := requestInfoFrom(ctx); info != nil {
		return info.client
	}
	return ""
}
