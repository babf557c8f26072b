package biometric

import (
	"errors"
	"sort"
)

// Calibration summarizes how a threshold separates genuine and impostor
// distances measured against one template.
type Calibration struct {
	Threshold       float64
	FalseAcceptRate float64 // impostors with distance < Threshold
	FalseRejectRate float64 // genuine captures with distance >= Threshold
	GenuineSamples  int
	ImpostorSamples int
	MaxGenuineDist  float64
	MinImpostorDist float64
}

// ErrNotEnoughSamples is returned when either distance set is empty.
var ErrNotEnoughSamples = errors.New("calibration needs genuine and impostor samples")

// Rates returns the error rates of threshold t over the two samples.
func Rates(genuine, impostor []float64, t float64) (far, frr float64) {
	var fa, fr int
	for _, d := range genuine {
		if d >= t {
			fr++
		}
	}
	for _, d := range impostor {
		if d < t {
			fa++
		}
	}
	return float64(fa) / float64(len(impostor)), float64(fr) / float64(len(genuine))
}

// SuggestThreshold picks the threshold minimizing FAR + FRR. Candidates are
// midpoints between consecutive observed distances; ties go to the lower
// threshold, which never raises the false accept rate.
func SuggestThreshold(genuine, impostor []float64) (Calibration, error) {
	if len(genuine) == 0 || len(impostor) == 0 {
		return Calibration{}, ErrNotEnoughSamples
	}

	all := make([]float64, 0, len(genuine)+len(impostor))
	all = append(all, genuine...)
	all = append(all, impostor...)
	sort.Float64s(all)

	candidates := []float64{all[0]}
	for i := 1; i < len(all); i++ {
		if all[i] != all[i-1] {
			candidates = append(candidates, (all[i-1]+all[i])/2)
		}
	}
	candidates = append(candidates, all[len(all)-1]+1e-9)

	best := Calibration{Threshold: candidates[0]}
	best.FalseAcceptRate, best.FalseRejectRate = Rates(genuine, impostor, candidates[0])
	for _, t := range candidates[1:] {
		far, frr := Rates(genuine, impostor, t)
		if far+frr < best.FalseAcceptRate+best.FalseRejectRate {
			best = Calibration{Threshold: t, FalseAcceptRate: far, FalseRejectRate: frr}
		}
	}

	best.GenuineSamples = len(genuine)
	best.ImpostorSamples = len(impostor)
	best.MaxGenuineDist = maxOf(genuine)
	best.MinImpostorDist = minOf(impostor)
	return best, nil
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = max(m, x)
	}
	return m
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = min(m, x)
	}
	return m
}
