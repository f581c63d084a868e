// Package engine computes free-flow speed, design flow, the Van Aerde
// speed-flow-density curve and the level of service of a basic segment.
//
// Every computation is a pure function of its inputs and the reference
// tables; an Engine may be shared across goroutines.
package engine

import (
	"errors"
	"fmt"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// Engine runs segment computations against a fixed set of reference tables
type Engine struct {
	tables   *tables.Tables
	resolver *Resolver
	policy   LanePolicy
}

// Option configures an Engine
type Option func(*Engine)

// WithLanePolicy sets how 4-lane carriageways are handled
func WithLanePolicy(p LanePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// New creates an engine over t
func New(t *tables.Tables, opts ...Option) *Engine {
	e := &Engine{tables: t, policy: LanePolicyFallback}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = NewResolver(t, e.policy)
	return e
}

// Tables returns the reference tables the engine reads
func (e *Engine) Tables() *tables.Tables { return e.tables }

// Resolver returns the engine's table resolver
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Demand resolves ADT, hourly volume and peaking factor for a segment.
// ADT drives the conversion when set; otherwise the hourly volume does.
func (e *Engine) Demand(p domain.SegmentParameters) (Demand, error) {
	if p.ADT > 0 {
		return HourlyVolume(e.tables, p.ADT, p.Profile)
	}
	return ADTFromVolume(e.tables, p.HourlyVolume, p.Profile)
}

// Model calibrates the speed-flow-density curve of a segment
func (e *Engine) Model(p domain.SegmentParameters) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	_, ffs, err := EstimateFreeFlowSpeed(p.RoadClass, AccessPointDensity(p.AccessPoints, p.SectionLength), p.AreaType, p.SpeedLimit)
	if err != nil {
		return nil, err
	}
	params, err := e.resolver.ModelParameters(p.RoadClass, ffs)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to resolve model parameters: %w", err)
	}
	return NewModel(params)
}

// Compute runs the full pipeline for one segment. Demand above capacity is a
// valid outcome reported through TrafficState.UndefinedReason, not an error.
func (e *Engine) Compute(p domain.SegmentParameters) (domain.TrafficState, error) {
	if err := p.Validate(); err != nil {
		return domain.TrafficState{}, err
	}

	var st domain.TrafficState

	st.AccessPointDensity = AccessPointDensity(p.AccessPoints, p.SectionLength)
	estimate, ffs, err := EstimateFreeFlowSpeed(p.RoadClass, st.AccessPointDensity, p.AreaType, p.SpeedLimit)
	if err != nil {
		return domain.TrafficState{}, err
	}
	st.FreeFlowSpeedEstimate = estimate
	st.FreeFlowSpeed = ffs
	st.SpeedBucket = SpeedBucket(ffs)

	demand, err := e.Demand(p)
	if err != nil {
		return domain.TrafficState{}, fmt.Errorf("engine: failed to convert demand: %w", err)
	}
	st.ADT = demand.ADT
	st.PeakingFactor = demand.PeakingFactor
	st.HourlyVolume = demand.HourlyVolume
	st.K15 = PeakFactor(demand.HourlyVolume, p.Lanes, p.AreaType)

	row, err := e.resolver.Capacity(p.RoadClass, ffs)
	if err != nil {
		return domain.TrafficState{}, fmt.Errorf("engine: failed to resolve capacity: %w", err)
	}
	st.BaseCapacity = row.BaseCapacity
	st.OptimalSpeed = row.OptimalSpeed
	st.JamDensity = row.JamDensity

	flow, err := e.resolver.ResolveDesignFlow(p, demand.HourlyVolume, st.K15, row.BaseCapacity)
	if err != nil {
		return domain.TrafficState{}, fmt.Errorf("engine: failed to resolve design flow: %w", err)
	}
	st.InitialEquivalencyFactor = flow.InitialEquivalencyFactor
	st.EquivalencyFactor = flow.EquivalencyFactor
	st.UtilizationCap = flow.UtilizationCap.Rate()
	st.DesignFlow = flow.Flow
	st.Warnings = append(st.Warnings, flow.Warnings...)

	st.Utilization = utils.RoundTo(float64(flow.Flow)/float64(row.BaseCapacity), 2)
	st.RealCapacity = utils.RoundInt(float64(row.BaseCapacity) * float64(p.Lanes) * st.K15 / flow.EquivalencyFactor)

	model, err := NewModel(domain.ModelParameters{
		FreeFlowSpeed: float64(ffs),
		OptimalSpeed:  row.OptimalSpeed,
		Capacity:      float64(row.BaseCapacity),
		JamDensity:    row.JamDensity,
	})
	if err != nil {
		return domain.TrafficState{}, fmt.Errorf("engine: failed to calibrate model: %w", err)
	}

	speed, err := AverageSpeed(model, flow.Flow, st.Utilization)
	var undefined *domain.UndefinedStateError
	switch {
	case errors.As(err, &undefined):
		st.UndefinedReason = undefined.Reason
	case err != nil:
		return domain.TrafficState{}, err
	default:
		density := OperatingDensity(flow.Flow, speed)
		drop := utils.RoundTo(100*(speed-float64(ffs))/float64(ffs), 1)
		st.AverageSpeed = &speed
		st.Density = &density
		st.SpeedDrop = &drop
	}

	boundaries := e.tables.LOSBoundaries()
	st.LOS = ClassifyLOS(boundaries, st.Density)

	critical := CriticalSamples(model, boundaries)
	st.CriticalFlowByGrade = make(map[domain.Grade]int, len(critical))
	st.CriticalADTByGrade = make(map[domain.Grade]domain.CriticalADT, len(critical))
	// critical demand is converted with the 0.75-cap factor whichever cap the
	// design flow ended up using
	for grade, s := range critical {
		st.CriticalFlowByGrade[grade] = utils.RoundInt(s.Flow)
		st.CriticalADTByGrade[grade] = criticalADT(s.Flow, p.Lanes, demand.PeakingFactor, st.K15, flow.InitialEquivalencyFactor)
	}

	return st, nil
}

// criticalADT converts a per-lane critical flow back to a cross-section daily
// demand, rounded to thousands.
func criticalADT(flow float64, lanes int, u50, k15, ew float64) domain.CriticalADT {
	pc := 2 * float64(lanes) * flow / u50
	return domain.CriticalADT{
		PassengerCars: roundThousands(pc),
		Vehicles:      roundThousands(pc * k15 / ew),
	}
}

func roundThousands(v float64) int {
	return utils.RoundInt(v/1000) * 1000
}
