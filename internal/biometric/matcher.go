package biometric

import (
	"fmt"
	"math"

	"github.com/andresmejia3/faceguard/internal/types"
)

// MaxDistance is returned whenever two descriptors cannot be compared.
const MaxDistance = 1.0

// Distance returns the Euclidean distance between a and b.
// Missing or unequal-length descriptors return MaxDistance so that a
// corrupted template can never produce a match.
func Distance(a, b types.Descriptor) float64 {
	if CheckComparable(a, b) != nil {
		return MaxDistance
	}
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// CheckComparable reports why a and b cannot be compared, if they cannot.
func CheckComparable(a, b types.Descriptor) error {
	if len(a) == 0 || len(b) == 0 {
		return ErrMissingTemplate
	}
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d vs %d", ErrDescriptorLengthMismatch, len(a), len(b))
	}
	return nil
}

// Confidence maps a distance to a display percentage in [0, 100].
// It is monotonic in distance and not a probability.
func Confidence(distance float64) int {
	c := math.Round(math.Max(0, (1-distance)*100))
	return int(math.Min(c, 100))
}

// Match compares a stored template descriptor with a live descriptor.
func Match(stored, live types.Descriptor, p Policy) types.MatchResult {
	d := Distance(stored, live)
	return types.MatchResult{
		IsMatch:           d < p.MatchThreshold && CheckComparable(stored, live) == nil,
		Distance:          d,
		ConfidencePercent: Confidence(d),
	}
}
