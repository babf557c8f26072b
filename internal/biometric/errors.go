package biometric

import (
	"errors"
	"fmt"
)

// Capture-quality rejections. Expected and user-correctable.
var (
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrLowConfidence         = errors.New("face detection confidence too low")
	ErrFaceTooSmall          = errors.New("face too small")
	ErrFaceNotFrontal        = errors.New("face not frontal")
)

// State-precondition violations.
var (
	ErrAlreadyEnrolled = errors.New("face authentication already enrolled")
	ErrNotEnrolled     = errors.New("face authentication not enrolled")
)

// Data-integrity errors. The matcher never returns these; it fails closed.
var (
	ErrDescriptorLengthMismatch = errors.New("descriptor length mismatch")
	ErrMissingTemplate          = errors.New("missing template descriptor")
)

// ErrDetectionFailed wraps extractor runtime failures. Retryable by the caller.
var ErrDetectionFailed = errors.New("face detection failed")

// Request-shape errors.
var (
	ErrInvalidCaptureCount = errors.New("invalid number of captures")
	ErrInvalidImage        = errors.New("invalid image")
)

// CaptureError ties a capture rejection to the position of the image that
// caused it.
type CaptureError struct {
	Index int
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %d: %v", e.Index+1, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

var codes = []struct {
	err  error
	code string
}{
	{ErrNoFaceDetected, "NoFaceDetected"},
	{ErrMultipleFacesDetected, "MultipleFacesDetected"},
	{ErrLowConfidence, "LowConfidence"},
	{ErrFaceTooSmall, "FaceTooSmall"},
	{ErrFaceNotFrontal, "FaceNotFrontal"},
	{ErrAlreadyEnrolled, "AlreadyEnrolled"},
	{ErrNotEnrolled, "NotEnrolled"},
	{ErrDescriptorLengthMismatch, "DescriptorLengthMismatch"},
	{ErrMissingTemplate, "MissingTemplate"},
	{ErrDetectionFailed, "DetectionFailed"},
	{ErrInvalidCaptureCount, "InvalidCaptureCount"},
	{ErrInvalidImage, "InvalidImage"},
}

// Code returns the stable reason code for err, or "InternalError" when err
// is not one of the package errors.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "InternalError"
}

// IsCaptureRejection reports whether err is a user-correctable capture
// quality problem.
func IsCaptureRejection(err error) bool {
	return errors.Is(err, ErrNoFaceDetected) ||
		errors.Is(err, ErrMultipleFacesDetected) ||
		errors.Is(err, ErrLowConfidence) ||
		errors.Is(err, ErrFaceTooSmall) ||
		errors.Is(err, ErrFaceNotFrontal)
}
