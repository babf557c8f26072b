package biometric

import (
	"fmt"
	"math"

	"github.com/andresmejia3/faceguard/internal/types"
)

// ValidateCapture decides whether the detections from one image are usable
// for enrollment or authentication. Rules run in order and stop at the first
// failure; the returned error is one of the capture rejection errors, or
// ErrDescriptorLengthMismatch when the extractor disagrees with the policy.
func ValidateCapture(faces []types.DetectedFace, p Policy) (types.Descriptor, error) {
	switch {
	case len(faces) == 0:
		return nil, ErrNoFaceDetected
	case len(faces) > 1:
		return nil, ErrMultipleFacesDetected
	}

	face := faces[0]
	if face.Confidence < p.MinConfidence {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrLowConfidence, face.Confidence, p.MinConfidence)
	}
	if area := face.Box.Area(); area < p.MinFaceArea {
		return nil, fmt.Errorf("%w: %.0f px² < %.0f px²", ErrFaceTooSmall, area, p.MinFaceArea)
	}
	if ratio, ok := NoseOffsetRatio(face.Landmarks, p.Landmarks); ok && ratio > p.MaxNoseOffsetRatio {
		return nil, fmt.Errorf("%w: nose offset ratio %.2f > %.2f", ErrFaceNotFrontal, ratio, p.MaxNoseOffsetRatio)
	}
	if p.DescriptorLength > 0 && len(face.Descriptor) != p.DescriptorLength {
		return nil, fmt.Errorf("%w: extractor returned %d values, expected %d", ErrDescriptorLengthMismatch, len(face.Descriptor), p.DescriptorLength)
	}
	return face.Descriptor, nil
}

// NoseOffsetRatio returns the horizontal distance between the nose tip and
// the eye midpoint, divided by the horizontal eye-to-eye distance.
// ok is false when the landmarks needed are missing; the pose check is then
// skipped. Coincident eye corners yield +Inf.
func NoseOffsetRatio(landmarks []types.Point, idx LandmarkIndices) (ratio float64, ok bool) {
	need := max(idx.LeftEyeOuter, idx.RightEyeOuter, idx.NoseTip)
	if len(landmarks) <= need {
		return 0, false
	}

	left := landmarks[idx.LeftEyeOuter]
	right := landmarks[idx.RightEyeOuter]
	nose := landmarks[idx.NoseTip]

	dEyes := math.Abs(right.X - left.X)
	dNose := math.Abs(nose.X - (left.X+right.X)/2)
	if dEyes == 0 {
		return math.Inf(1), true
	}
	return dNose / dEyes, true
}
