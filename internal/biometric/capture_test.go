package biometric

import (
	"errors"
	"math"
	"testing"

	"github.com/andresmejia3/faceguard/internal/types"
)

// landmarks68 builds a 68-point set with the eye corners and nose tip placed
// at the given x coordinates. Every other point sits at the origin.
func landmarks68(leftEye, rightEye, nose float64) []types.Point {
	pts := make([]types.Point, 68)
	pts[Landmark68LeftEyeOuter] = types.Point{X: leftEye, Y: 100}
	pts[Landmark68RightEyeOuter] = types.Point{X: rightEye, Y: 100}
	pts[Landmark68NoseTip] = types.Point{X: nose, Y: 140}
	return pts
}

func goodFace() types.DetectedFace {
	return types.DetectedFace{
		Box:        types.BoundingBox{X: 50, Y: 40, Width: 120, Height: 140},
		Confidence: 0.95,
		Landmarks:  landmarks68(80, 140, 110),
		Descriptor: filled(128, 0.05),
	}
}

func TestValidateCapture(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		faces   func() []types.DetectedFace
		wantErr error
	}{
		{
			name:    "no faces",
			faces:   func() []types.DetectedFace { return nil },
			wantErr: ErrNoFaceDetected,
		},
		{
			name: "two faces even though both are perfect",
			faces: func() []types.DetectedFace {
				return []types.DetectedFace{goodFace(), goodFace()}
			},
			wantErr: ErrMultipleFacesDetected,
		},
		{
			name: "multiple faces wins over low confidence",
			faces: func() []types.DetectedFace {
				a, b, c := goodFace(), goodFace(), goodFace()
				a.Confidence, b.Confidence, c.Confidence = 0.1, 0.1, 0.1
				return []types.DetectedFace{a, b, c}
			},
			wantErr: ErrMultipleFacesDetected,
		},
		{
			name: "low confidence",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Confidence = 0.69
				return []types.DetectedFace{f}
			},
			wantErr: ErrLowConfidence,
		},
		{
			name: "confidence exactly at the floor passes",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Confidence = 0.70
				return []types.DetectedFace{f}
			},
		},
		{
			name: "low confidence checked before size",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Confidence = 0.2
				f.Box.Width, f.Box.Height = 10, 10
				return []types.DetectedFace{f}
			},
			wantErr: ErrLowConfidence,
		},
		{
			name: "face too small",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Box.Width, f.Box.Height = 99, 100
				return []types.DetectedFace{f}
			},
			wantErr: ErrFaceTooSmall,
		},
		{
			name: "area exactly at the minimum passes",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Box.Width, f.Box.Height = 100, 100
				return []types.DetectedFace{f}
			},
		},
		{
			name: "head turned",
			faces: func() []types.DetectedFace {
				f := goodFace()
				// eyes 60px apart, midpoint 110, nose at 130 -> ratio 0.33
				f.Landmarks = landmarks68(80, 140, 130)
				return []types.DetectedFace{f}
			},
			wantErr: ErrFaceNotFrontal,
		},
		{
			name: "slight turn within tolerance",
			faces: func() []types.DetectedFace {
				f := goodFace()
				// ratio 15/60 = 0.25
				f.Landmarks = landmarks68(80, 140, 95)
				return []types.DetectedFace{f}
			},
		},
		{
			name: "eye corners coincide",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Landmarks = landmarks68(100, 100, 100)
				return []types.DetectedFace{f}
			},
			wantErr: ErrFaceNotFrontal,
		},
		{
			name: "missing landmarks skip the pose check",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Landmarks = nil
				return []types.DetectedFace{f}
			},
		},
		{
			name: "five-point landmarks are too short for 68-point indices",
			faces: func() []types.DetectedFace {
				f := goodFace()
				f.Landmarks = make([]types.Point, 5)
				return []types.DetectedFace{f}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := ValidateCapture(tt.faces(), p)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if desc != nil {
					t.Error("expected no descriptor on rejection")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(desc) != 128 {
				t.Errorf("expected 128-d descriptor, got %d", len(desc))
			}
		})
	}
}

func TestValidateCapture_DescriptorLength(t *testing.T) {
	p := DefaultPolicy()
	f := goodFace()
	f.Descriptor = filled(512, 0.05)

	if _, err := ValidateCapture([]types.DetectedFace{f}, p); !errors.Is(err, ErrDescriptorLengthMismatch) {
		t.Errorf("expected ErrDescriptorLengthMismatch, got %v", err)
	}

	p.DescriptorLength = 0
	if _, err := ValidateCapture([]types.DetectedFace{f}, p); err != nil {
		t.Errorf("length check disabled, got %v", err)
	}
}

func TestValidateCapture_ReasonsAreDistinct(t *testing.T) {
	seen := make(map[string]bool)
	for _, err := range []error{ErrNoFaceDetected, ErrMultipleFacesDetected, ErrLowConfidence, ErrFaceTooSmall, ErrFaceNotFrontal} {
		code := Code(err)
		if seen[code] {
			t.Errorf("code %q reused", code)
		}
		seen[code] = true
		if !IsCaptureRejection(err) {
			t.Errorf("%v should be a capture rejection", err)
		}
	}
}

func TestNoseOffsetRatio(t *testing.T) {
	idx := DefaultPolicy().Landmarks

	ratio, ok := NoseOffsetRatio(landmarks68(100, 200, 150), idx)
	if !ok || ratio != 0 {
		t.Errorf("centered nose: got ratio=%v ok=%v", ratio, ok)
	}

	// Mirrored eye order still measures horizontal distance.
	ratio, ok = NoseOffsetRatio(landmarks68(200, 100, 170), idx)
	if !ok || math.Abs(ratio-0.2) > 1e-9 {
		t.Errorf("mirrored eyes: got ratio=%v ok=%v", ratio, ok)
	}

	if _, ok := NoseOffsetRatio(make([]types.Point, 45), idx); ok {
		t.Error("expected ok=false when the right eye index is out of range")
	}

	fivePoint := LandmarkIndices{LeftEyeOuter: 2, RightEyeOuter: 0, NoseTip: 4}
	pts := []types.Point{{X: 140}, {X: 120}, {X: 60}, {X: 80}, {X: 100}}
	if ratio, ok := NoseOffsetRatio(pts, fivePoint); !ok || ratio != 0 {
		t.Errorf("custom indices: got ratio=%v ok=%v", ratio, ok)
	}
}
