package biometric

import (
	"errors"
	"fmt"
)

// Landmark positions in the 68-point scheme.
const (
	Landmark68NoseTip       = 30
	Landmark68LeftEyeOuter  = 36
	Landmark68RightEyeOuter = 45
)

// Policy holds the calibrated constants used to gate captures and decide
// matches. The defaults are calibrated for a 128-d dlib-style descriptor
// space; a different extractor needs its own profile.
type Policy struct {
	MatchThreshold     float64         `yaml:"match_threshold"`
	MinConfidence      float64         `yaml:"min_confidence"`
	MinFaceArea        float64         `yaml:"min_face_area"`
	MaxNoseOffsetRatio float64         `yaml:"max_nose_offset_ratio"`
	DescriptorLength   int             `yaml:"descriptor_length"` // 0 disables the check
	MinCaptures        int             `yaml:"min_captures"`
	MaxCaptures        int             `yaml:"max_captures"`
	Landmarks          LandmarkIndices `yaml:"landmarks"`
}

// LandmarkIndices locates the points used by the pose check.
type LandmarkIndices struct {
	LeftEyeOuter  int `yaml:"left_eye_outer"`
	RightEyeOuter int `yaml:"right_eye_outer"`
	NoseTip       int `yaml:"nose_tip"`
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MatchThreshold:     0.6,
		MinConfidence:      0.7,
		MinFaceArea:        10000,
		MaxNoseOffsetRatio: 0.30,
		DescriptorLength:   128,
		MinCaptures:        3,
		MaxCaptures:        6,
		Landmarks: LandmarkIndices{
			LeftEyeOuter:  Landmark68LeftEyeOuter,
			RightEyeOuter: Landmark68RightEyeOuter,
			NoseTip:       Landmark68NoseTip,
		},
	}
}

// Validate checks that the policy is usable.
func (p Policy) Validate() error {
	var errs []error
	if p.MatchThreshold <= 0 {
		errs = append(errs, fmt.Errorf("match threshold must be > 0, got %f", p.MatchThreshold))
	}
	if p.MinConfidence <= 0 || p.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min confidence must be in (0, 1], got %f", p.MinConfidence))
	}
	if p.MinFaceArea < 0 {
		errs = append(errs, fmt.Errorf("min face area must be >= 0, got %f", p.MinFaceArea))
	}
	if p.MaxNoseOffsetRatio <= 0 {
		errs = append(errs, fmt.Errorf("max nose offset ratio must be > 0, got %f", p.MaxNoseOffsetRatio))
	}
	if p.DescriptorLength < 0 {
		errs = append(errs, fmt.Errorf("descriptor length must be >= 0, got %d", p.DescriptorLength))
	}
	if p.MinCaptures < 1 || p.MaxCaptures < p.MinCaptures {
		errs = append(errs, fmt.Errorf("capture bounds must satisfy 1 <= min <= max, got %d..%d", p.MinCaptures, p.MaxCaptures))
	}
	l := p.Landmarks
	if l.LeftEyeOuter < 0 || l.RightEyeOuter < 0 || l.NoseTip < 0 {
		errs = append(errs, errors.New("landmark indices must be >= 0"))
	}
	return errors.Join(errs...)
}

// CheckCaptureCount reports ErrInvalidCaptureCount when n is outside
// [MinCaptures, MaxCaptures].
func (p Policy) CheckCaptureCount(n int) error {
	if n < p.MinCaptures || n > p.MaxCaptures {
		return fmt.Errorf("%w: got %d, need %d to %d", ErrInvalidCaptureCount, n, p.MinCaptures, p.MaxCaptures)
	}
	return nil
}
