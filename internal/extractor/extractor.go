// Package extractor connects to the external face detection and descriptor
// engine. Detection itself is never done in-process.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andresmejia3/faceguard/internal/biometric"
	"github.com/andresmejia3/faceguard/internal/types"
)

// Extractor turns one image into the faces found in it. An image with no
// face yields an empty slice and a nil error; any runtime failure wraps
// biometric.ErrDetectionFailed.
type Extractor interface {
	Detect(ctx context.Context, image []byte) ([]types.DetectedFace, error)
}

// faceJSON is the engine's wire shape for one face.
type faceJSON struct {
	Box        []float64    `json:"box"` // [x, y, w, h]
	Score      float64      `json:"score"`
	Landmarks  [][2]float64 `json:"landmarks"`
	Descriptor []float64    `json:"descriptor"`
}

type errorJSON struct {
	Error string `json:"error"`
}

// DecodeFaces parses an engine response: either an array of faces or an
// object carrying an "error" message.
func DecodeFaces(body []byte) ([]types.DetectedFace, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty engine response", biometric.ErrDetectionFailed)
	}

	if trimmed[0] == '{' {
		var e errorJSON
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, fmt.Errorf("%w: malformed engine response: %v", biometric.ErrDetectionFailed, err)
		}
		if e.Error == "" {
			e.Error = "unknown engine error"
		}
		return nil, fmt.Errorf("%w: %s", biometric.ErrDetectionFailed, e.Error)
	}

	var raw []faceJSON
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed engine response: %v", biometric.ErrDetectionFailed, err)
	}

	faces := make([]types.DetectedFace, 0, len(raw))
	for i, f := range raw {
		if len(f.Box) != 4 {
			return nil, fmt.Errorf("%w: face %d has a box of %d values", biometric.ErrDetectionFailed, i, len(f.Box))
		}
		face := types.DetectedFace{
			Box:        types.BoundingBox{X: f.Box[0], Y: f.Box[1], Width: f.Box[2], Height: f.Box[3]},
			Confidence: f.Score,
			Descriptor: types.Descriptor(f.Descriptor),
		}
		if len(f.Landmarks) > 0 {
			face.Landmarks = make([]types.Point, len(f.Landmarks))
			for j, p := range f.Landmarks {
				face.Landmarks[j] = types.Point{X: p[0], Y: p[1]}
			}
		}
		faces = append(faces, face)
	}
	return faces, nil
}

// EncodeFaces is the inverse of DecodeFaces. Test engines use it to produce
// canned responses.
func EncodeFaces(faces []types.DetectedFace) ([]byte, error) {
	raw := make([]faceJSON, len(faces))
	for i, f := range faces {
		raw[i] = faceJSON{
			Box:        []float64{f.Box.X, f.Box.Y, f.Box.Width, f.Box.Height},
			Score:      f.Confidence,
			Descriptor: f.Descriptor,
		}
		for _, p := range f.Landmarks {
			raw[i].Landmarks = append(raw[i].Landmarks, [2]float64{p.X, p.Y})
		}
	}
	return json.Marshal(raw)
}

// IsDetectionFailure reports whether err came from the engine rather than
// from the image content.
func IsDetectionFailure(err error) bool {
	return errors.Is(err, biometric.ErrDetectionFailed)
}
