package engine

import (
	"fmt"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// LanePolicy decides how lane counts missing from the equivalency table are handled
type LanePolicy string

const (
	// LanePolicyFallback looks up the 3-lane heavy-vehicle factor for 4 lanes
	// and records a warning.
	LanePolicyFallback LanePolicy = "fallback"
	// LanePolicyStrict rejects 4 lanes with a ConfigurationError.
	LanePolicyStrict LanePolicy = "strict"
)

const (
	maxTabulatedLanes = 3
	fallbackLanes     = 4
)

// ParseLanePolicy converts a config value into a LanePolicy
func ParseLanePolicy(s string) (LanePolicy, error) {
	switch LanePolicy(s) {
	case LanePolicyFallback, LanePolicyStrict:
		return LanePolicy(s), nil
	case "":
		return LanePolicyFallback, nil
	}
	return "", &domain.ConfigurationError{Field: "lane_policy", Value: s, Reason: "expected fallback or strict"}
}

// Resolver answers capacity and equivalency questions from the reference tables
type Resolver struct {
	tables     *tables.Tables
	lanePolicy LanePolicy
}

// NewResolver creates a resolver over t
func NewResolver(t *tables.Tables, policy LanePolicy) *Resolver {
	if policy == "" {
		policy = LanePolicyFallback
	}
	return &Resolver{tables: t, lanePolicy: policy}
}

// Capacity returns the capacity row for a clamped free-flow speed
func (r *Resolver) Capacity(class domain.RoadClass, ffs int) (tables.CapacityRow, error) {
	return r.tables.Capacity(class, SpeedBucket(ffs))
}

// BaseCapacity returns C0 in pc/h/lane
func (r *Resolver) BaseCapacity(class domain.RoadClass, ffs int) (int, error) {
	row, err := r.Capacity(class, ffs)
	return row.BaseCapacity, err
}

// OptimalSpeed returns the speed at capacity in km/h
func (r *Resolver) OptimalSpeed(class domain.RoadClass, ffs int) (float64, error) {
	row, err := r.Capacity(class, ffs)
	return row.OptimalSpeed, err
}

// JamDensity returns the jam density in pc/km/lane
func (r *Resolver) JamDensity(class domain.RoadClass, ffs int) (float64, error) {
	row, err := r.Capacity(class, ffs)
	return row.JamDensity, err
}

// ModelParameters assembles the Van Aerde calibration for a segment
func (r *Resolver) ModelParameters(class domain.RoadClass, ffs int) (domain.ModelParameters, error) {
	row, err := r.Capacity(class, ffs)
	if err != nil {
		return domain.ModelParameters{}, err
	}
	return domain.ModelParameters{
		FreeFlowSpeed: float64(ffs),
		OptimalSpeed:  row.OptimalSpeed,
		Capacity:      float64(row.BaseCapacity),
		JamDensity:    row.JamDensity,
	}, nil
}

// EquivalencyFactor returns round2(Es*(1-hv) + Ec*hv) and any warning raised
// by the lane policy.
func (r *Resolver) EquivalencyFactor(class domain.RoadClass, lanes int, hvShare, gradient float64, utilCap tables.UtilizationCap) (float64, []string, error) {
	g := tables.BucketGradient(gradient)

	es, err := r.tables.LightVehicleFactor(g)
	if err != nil {
		return 0, nil, err
	}

	var warnings []string
	lookupLanes := lanes
	if lanes == fallbackLanes {
		if r.lanePolicy == LanePolicyStrict {
			return 0, nil, &domain.ConfigurationError{
				Field:  "lanes",
				Value:  lanes,
				Reason: "no heavy-vehicle factors for 4 lanes under strict lane policy",
			}
		}
		lookupLanes = maxTabulatedLanes
		warnings = append(warnings, fmt.Sprintf("heavy-vehicle factor for %d lanes approximated with the %d-lane value", lanes, maxTabulatedLanes))
	}

	ec, err := r.tables.HeavyVehicleFactor(class, lookupLanes, utilCap, g)
	if err != nil {
		return 0, nil, err
	}

	return utils.RoundTo(es*(1-hvShare)+ec*hvShare, 2), warnings, nil
}
