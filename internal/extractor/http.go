package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/types"
)

const defaultDetectURL = "http://localhost:8000"

// HTTPExtractor calls a detection service over HTTP. It holds no per-call
// state and is safe for concurrent use.
type HTTPExtractor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExtractor creates a client for the service at baseURL.
func NewHTTPExtractor(baseURL string, timeout time.Duration) *HTTPExtractor {
	if baseURL == "" {
		baseURL = defaultDetectURL
	}
	return &HTTPExtractor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Detect posts the image as a multipart form to {baseURL}/detect.
func (h *HTTPExtractor) Detect(ctx context.Context, image []byte) ([]types.DetectedFace, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part := make(textproto.MIMEHeader)
	part.Set("Content-Disposition", `form-data; name="file"; filename="capture"`)
	part.Set("Content-Type", http.DetectContentType(image))
	w, err := writer.CreatePart(part)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := w.Write(image); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/detect", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", biometric.ErrDetectionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", biometric.ErrDetectionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: detection service returned status %d: %s",
			biometric.ErrDetectionFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return DecodeFaces(body)
}
