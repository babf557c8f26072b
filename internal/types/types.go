package types

import "time"

// Descriptor is the fixed-length face embedding produced by the extractor.
// Treat it as immutable once produced.
type Descriptor []float64

// Clone returns an independent copy of the descriptor.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// BoundingBox is a face rectangle in image pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns width * height.
func (b BoundingBox) Area() float64 {
	return b.Width * b.Height
}

// Point is a 2D landmark coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DetectedFace is one face found by the extractor in a single image.
// It lives only for the duration of a request.
type DetectedFace struct {
	Box        BoundingBox
	Confidence float64
	Landmarks  []Point // fixed indexing (68-point scheme by default)
	Descriptor Descriptor
}

// EnrollmentTemplate is a user's stored reference face.
type EnrollmentTemplate struct {
	OwnerID     string
	TemplateID  string
	Descriptor  Descriptor
	SampleCount int
	CreatedAt   time.Time
}

// TemplateInfo is template metadata without the descriptor.
type TemplateInfo struct {
	OwnerID     string
	TemplateID  string
	Dimension   int
	SampleCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MatchResult is the outcome of comparing a live capture to a template.
type MatchResult struct {
	IsMatch           bool    `json:"authenticated"`
	Distance          float64 `json:"-"`
	ConfidencePercent int     `json:"confidencePercent"`
}

// Status reports whether face authentication is enabled for a user.
type Status struct {
	Enabled     bool       `json:"enabled"`
	EnrolledAt  *time.Time `json:"enrolledAt"`
	HasTemplate bool       `json:"hasTemplate"`
}

// EventKind names the operation an audit record describes.
type EventKind string

const (
	EventEnroll       EventKind = "enroll"
	EventReEnroll     EventKind = "re-enroll"
	EventDisable      EventKind = "disable"
	EventAuthenticate EventKind = "authenticate"
)

// Outcome is the result recorded for an audit event.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
	OutcomeError    Outcome = "error"
)

// AuthAttempt is an audit record. It never carries images or descriptors.
type AuthAttempt struct {
	ID                string
	OwnerID           string
	TemplateID        string
	Kind              EventKind
	Outcome           Outcome
	Reason            string
	ConfidencePercent int
	CreatedAt         time.Time
}
