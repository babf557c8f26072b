package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/extractor"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/validator"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// maxBodyBytes bounds a request body (six base64 captures fit comfortably).
const maxBodyBytes = 48 << 20

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Capture int    `json:"capture,omitempty"` // 1-based image position for capture rejections
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps a service error to its HTTP status. Internal
// errors are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := biometric.Code(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			logger.LoggerOptions{Key: "path", Data: sanitizeForLog(r.URL.Path)},
			logger.LoggerOptions{Key: "error", Data: err})
		respondError(w, status, code, "internal error")
		return
	}
	resp := ErrorResponse{Error: err.Error(), Code: code}
	var ce *biometric.CaptureError
	if errors.As(err, &ce) {
		resp.Capture = ce.Index + 1
	}
	respondJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case biometric.IsCaptureRejection(err), errors.Is(err, biometric.ErrDescriptorLengthMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, biometric.ErrInvalidCaptureCount), errors.Is(err, biometric.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, biometric.ErrAlreadyEnrolled):
		return http.StatusConflict
	case errors.Is(err, biometric.ErrNotEnrolled):
		return http.StatusNotFound
	case extractor.IsDetectionFailure(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody reads a JSON body into dst and validates it.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "InvalidRequest", errInvalidRequestBody)
		return false
	}
	if errs := validator.ValidatorInstance.ValidateStruct(dst); errs != nil {
		respondError(w, http.StatusBadRequest, "InvalidRequest", errors.Join(*errs...).Error())
		return false
	}
	return true
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ReadyFunc reports whether backing dependencies are reachable.
type ReadyFunc func(ctx context.Context) error

// ReadyCheck handles the readiness endpoint. A nil check always passes.
func ReadyCheck(check ReadyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.Warning("readiness check failed", logger.LoggerOptions{Key: "error", Data: err})
				respondError(w, http.StatusServiceUnavailable, "NotReady", "dependencies unavailable")
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
