package biometric

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/oklog/ulid/v2"
)

// FuseDescriptors averages descriptors element-wise. A single descriptor is
// returned unchanged (as a copy). All inputs must share one length.
func FuseDescriptors(descs []types.Descriptor) (types.Descriptor, error) {
	if len(descs) == 0 || len(descs[0]) == 0 {
		return nil, ErrMissingTemplate
	}
	dim := len(descs[0])
	for i, d := range descs[1:] {
		if len(d) != dim {
			return nil, fmt.Errorf("%w: descriptor %d has %d values, expected %d", ErrDescriptorLengthMismatch, i+2, len(d), dim)
		}
	}
	if len(descs) == 1 {
		return descs[0].Clone(), nil
	}

	sum := make([]float64, dim)
	for _, d := range descs {
		for i, v := range d {
			sum[i] += v
		}
	}
	n := float64(len(descs))
	avg := make(types.Descriptor, dim)
	for i := range sum {
		avg[i] = sum[i] / n
	}
	return avg, nil
}

// BuildTemplate fuses the validated capture descriptors into a new template
// for ownerID, stamped with createdAt.
func BuildTemplate(ownerID string, descs []types.Descriptor, createdAt time.Time) (*types.EnrollmentTemplate, error) {
	fused, err := FuseDescriptors(descs)
	if err != nil {
		return nil, err
	}
	return &types.EnrollmentTemplate{
		OwnerID:     ownerID,
		TemplateID:  NewTemplateID(ownerID, createdAt),
		Descriptor:  fused,
		SampleCount: len(descs),
		CreatedAt:   createdAt,
	}, nil
}

// NewTemplateID returns "tpl_<ULID>_<owner>". The ULID encodes createdAt
// to the millisecond and carries monotonic entropy, so two templates built
// in the same millisecond still differ.
func NewTemplateID(ownerID string, createdAt time.Time) string {
	id := ulid.MustNew(ulid.Timestamp(createdAt), ulid.DefaultEntropy())
	return "tpl_" + id.String() + "_" + sanitizeOwner(ownerID)
}

func sanitizeOwner(ownerID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '-'
	}, ownerID)
}
