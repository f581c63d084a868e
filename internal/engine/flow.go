package engine

import (
	"math"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

const (
	// k15 applies the log model only from this hourly volume up
	k15MinVolume = 1000
	k15Default   = 0.87

	// utilization at which the full-cap heavy-vehicle factors take over
	reducedCapThreshold = 0.75
)

// PeakFactor returns the peak-15-minute factor k15 rounded to 2 decimals
func PeakFactor(volume, lanes int, area domain.AreaType) float64 {
	if volume < k15MinVolume || lanes <= 0 {
		return k15Default
	}
	perLane := math.Log(float64(volume) / float64(lanes))
	if area == domain.AreaUrban {
		return utils.RoundTo(0.482+0.063*perLane, 2)
	}
	return utils.RoundTo(0.725+0.029*perLane, 2)
}

// DesignFlow converts an hourly volume into pc/h/lane at the peak 15 minutes
func DesignFlow(volume int, ew float64, lanes int, k15 float64) int {
	return utils.RoundInt(float64(volume) * ew / (float64(lanes) * k15))
}

// FlowResult is a design flow and the equivalency factor that produced it
type FlowResult struct {
	InitialEquivalencyFactor float64 // at the reduced cap
	EquivalencyFactor        float64 // applied
	UtilizationCap           tables.UtilizationCap
	Flow                     int
	Warnings                 []string
}

// ResolveDesignFlow computes the design flow with the reduced-cap
// equivalency factor, then switches to the full-cap factor when the
// resulting utilization reaches 0.75.
func (r *Resolver) ResolveDesignFlow(p domain.SegmentParameters, volume int, k15 float64, baseCapacity int) (FlowResult, error) {
	ew, warnings, err := r.EquivalencyFactor(p.RoadClass, p.Lanes, p.HVShare, p.Gradient, tables.CapReduced)
	if err != nil {
		return FlowResult{}, err
	}

	res := FlowResult{
		InitialEquivalencyFactor: ew,
		EquivalencyFactor:        ew,
		UtilizationCap:           tables.CapReduced,
		Flow:                     DesignFlow(volume, ew, p.Lanes, k15),
		Warnings:                 warnings,
	}
	if baseCapacity <= 0 || float64(res.Flow)/float64(baseCapacity) < reducedCapThreshold {
		return res, nil
	}

	ew, _, err = r.EquivalencyFactor(p.RoadClass, p.Lanes, p.HVShare, p.Gradient, tables.CapFull)
	if err != nil {
		return FlowResult{}, err
	}
	res.EquivalencyFactor = ew
	res.UtilizationCap = tables.CapFull
	res.Flow = DesignFlow(volume, ew, p.Lanes, k15)
	return res, nil
}
