package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/andresmejia3/faceguard/internal/logger"
)

func okHandler(t *testing.T, wantClient string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := ClientFromContext(r.Context()); got != wantClient {
			t.Errorf("ClientFromContext() = %q, want %q", got, wantClient)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAPIKey(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing key", "", "", http.StatusUnauthorized},
		{"wrong key", "X-API-Key", "nope", http.StatusUnauthorized},
		{"header key", "X-API-Key", "secret", http.StatusNoContent},
		{"bearer token", "Authorization", "Bearer secret", http.StatusNoContent},
		{"bearer wrong", "Authorization", "Bearer other", http.StatusUnauthorized},
	}

	h := RequireAPIKey("secret")(okHandler(t, "api-key"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/face", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireAPIKey_Disabled(t *testing.T) {
	h := RequireAPIKey("")(okHandler(t, ""))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestRequestLogger_RecordsClient(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Logger = zap.New(core)
	defer func() { logger.Logger = zap.NewNop() }()

	h := RequestLogger(RequireAPIKey("secret")(okHandler(t, "api-key")))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/face", nil)
	req.Header.Set("X-API-Key", "secret")
	h.ServeHTTP(httptest.NewRecorder(), req)

	unauth := httptest.NewRecorder()
	h.ServeHTTP(unauth, httptest.NewRequest(http.MethodGet, "/api/v1/users/u1/face", nil))
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", unauth.Code, http.StatusUnauthorized)
	}

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if got := entries[0].ContextMap()["client"]; got != "api-key" {
		t.Errorf("client = %v, want api-key", got)
	}
	if got := entries[1].ContextMap()["client"]; got != "" {
		t.Errorf("client = %v, want empty for a rejected request", got)
	}
}
