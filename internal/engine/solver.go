package engine

import (
	"iter"
	"math"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// UncongestedDensityLimit bounds the uncongested branch of the curve in pc/km/lane
const UncongestedDensityLimit = 26.5

// nearest returns the sample minimising |axis(s) - target|. Ties keep the
// first sample seen, which is the highest speed on a Model curve.
func nearest(samples iter.Seq[domain.Sample], target float64, axis func(domain.Sample) float64) (domain.Sample, bool) {
	var (
		best     domain.Sample
		bestDiff = math.Inf(1)
		found    bool
	)
	for s := range samples {
		if d := math.Abs(axis(s) - target); d < bestDiff {
			best, bestDiff, found = s, d, true
		}
	}
	return best, found
}

// NearestAtFlow returns the sample whose flow is closest to target
func NearestAtFlow(samples iter.Seq[domain.Sample], target float64) (domain.Sample, bool) {
	return nearest(samples, target, func(s domain.Sample) float64 { return s.Flow })
}

// NearestAtDensity returns the sample whose density is closest to target
func NearestAtDensity(samples iter.Seq[domain.Sample], target float64) (domain.Sample, bool) {
	return nearest(samples, target, func(s domain.Sample) float64 { return s.Density })
}

// Uncongested filters a curve down to samples with density <= 26.5
func Uncongested(samples iter.Seq[domain.Sample]) iter.Seq[domain.Sample] {
	return func(yield func(domain.Sample) bool) {
		for s := range samples {
			if s.Density > UncongestedDensityLimit {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

// AverageSpeed finds the operating speed for a design flow on the
// uncongested branch. Utilization above 1 has no operating point and yields
// an UndefinedStateError.
func AverageSpeed(model *Model, flow int, utilization float64) (float64, error) {
	if utilization > 1 {
		return 0, &domain.UndefinedStateError{Reason: domain.ReasonCapacityExceeded, Utilization: utilization}
	}
	s, ok := NearestAtFlow(Uncongested(model.Samples()), float64(flow))
	if !ok || s.Speed <= 0 {
		return 0, &domain.UndefinedStateError{Reason: domain.ReasonCapacityExceeded, Utilization: utilization}
	}
	return s.Speed, nil
}

// OperatingDensity returns flow / speed rounded to 1 decimal
func OperatingDensity(flow int, speed float64) float64 {
	return utils.RoundTo(float64(flow)/speed, 1)
}

// ClassifyLOS returns the first grade whose boundary is at least density.
// A nil density (undefined state) or one above every boundary is F.
func ClassifyLOS(boundaries []tables.LOSBoundary, density *float64) domain.Grade {
	if density == nil {
		return domain.GradeF
	}
	for _, b := range boundaries {
		if *density <= b.Density {
			return b.Grade
		}
	}
	return domain.GradeF
}

// CriticalSamples returns, per bounded grade, the curve sample nearest the
// grade's density boundary. The full curve is scanned once.
func CriticalSamples(model *Model, boundaries []tables.LOSBoundary) map[domain.Grade]domain.Sample {
	type tracker struct {
		best domain.Sample
		diff float64
	}
	trackers := make([]tracker, len(boundaries))
	for i := range trackers {
		trackers[i].diff = math.Inf(1)
	}

	for s := range model.Samples() {
		for i, b := range boundaries {
			if d := math.Abs(s.Density - b.Density); d < trackers[i].diff {
				trackers[i] = tracker{best: s, diff: d}
			}
		}
	}

	out := make(map[domain.Grade]domain.Sample, len(boundaries))
	for i, b := range boundaries {
		out[b.Grade] = trackers[i].best
	}
	return out
}

// CriticalFlows returns the rounded flow at each grade boundary in pc/h/lane
func CriticalFlows(model *Model, boundaries []tables.LOSBoundary) map[domain.Grade]int {
	samples := CriticalSamples(model, boundaries)
	out := make(map[domain.Grade]int, len(samples))
	for g, s := range samples {
		out[g] = utils.RoundInt(s.Flow)
	}
	return out
}
