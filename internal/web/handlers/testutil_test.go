package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/go-chi/chi/v5"
)

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON body and a userID path param.
func jsonRequest(t *testing.T, method, userID string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, "/api/v1/users/"+userID+"/face", &buf)
	req.Header.Set("Content-Type", "application/json")
	return requestWithChiParams(req, map[string]string{"userID": userID})
}

// pngImage returns a tiny PNG whose pixel color is derived from seed, so
// different seeds give different bytes.
func pngImage(t *testing.T, seed uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			img.Set(x, y, color.RGBA{R: seed, G: 255 - seed, B: 7, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v (body %q)", err, rec.Body.String())
	}
	return resp
}

// stubService records its inputs and returns canned results.
type stubService struct {
	err        error
	template   *types.EnrollmentTemplate
	match      types.MatchResult
	status     types.Status
	attempts   []types.AuthAttempt
	gotOwner   string
	gotImages  [][]byte
	gotLimit   int
	replaced   bool
	calledWith string
}

func (s *stubService) Enroll(_ context.Context, ownerID string, images [][]byte) (*types.EnrollmentTemplate, error) {
	s.gotOwner, s.gotImages, s.calledWith = ownerID, images, "enroll"
	return s.template, s.err
}

func (s *stubService) ReEnroll(_ context.Context, ownerID string, images [][]byte) (*types.EnrollmentTemplate, error) {
	s.gotOwner, s.gotImages, s.calledWith, s.replaced = ownerID, images, "re-enroll", true
	return s.template, s.err
}

func (s *stubService) Authenticate(_ context.Context, ownerID string, image []byte) (types.MatchResult, error) {
	s.gotOwner, s.gotImages, s.calledWith = ownerID, [][]byte{image}, "authenticate"
	return s.match, s.err
}

func (s *stubService) Disable(_ context.Context, ownerID string) error {
	s.gotOwner, s.calledWith = ownerID, "disable"
	return s.err
}

func (s *stubService) Status(_ context.Context, ownerID string) (types.Status, error) {
	s.gotOwner, s.calledWith = ownerID, "status"
	return s.status, s.err
}

func (s *stubService) Policy() biometric.Policy {
	return biometric.DefaultPolicy()
}

func (s *stubService) History(_ context.Context, ownerID string, limit int) ([]types.AuthAttempt, error) {
	s.gotOwner, s.gotLimit, s.calledWith = ownerID, limit, "history"
	return s.attempts, s.err
}
