package service

import (
	"fmt"
	"slices"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/engine"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
)

// DefaultCurvePoints is the chart resolution used when the caller gives none
const DefaultCurvePoints = 500

// TrafficService runs stateless capacity computations
type TrafficService struct {
	engine *engine.Engine
}

// NewTrafficService creates a new traffic service
func NewTrafficService(eng *engine.Engine) *TrafficService {
	return &TrafficService{engine: eng}
}

// ResolveSegment applies the request geometry, if any, to the segment
func (s *TrafficService) ResolveSegment(req domain.AnalysisRequest) (domain.SegmentParameters, error) {
	segment := req.Segment
	if req.Geometry != nil {
		km, err := SectionLengthKm(req.Geometry)
		if err != nil {
			return domain.SegmentParameters{}, err
		}
		segment.SectionLength = km
	}
	return segment, nil
}

// Compute evaluates the traffic state of a segment
func (s *TrafficService) Compute(segment domain.SegmentParameters) (domain.TrafficState, error) {
	return s.engine.Compute(segment)
}

// Curve returns the uncongested speed-flow curve thinned to at most
// maxPoints samples, plus the operating point when it is defined.
func (s *TrafficService) Curve(req domain.AnalysisRequest, maxPoints int) (domain.CurveResponse, error) {
	segment, err := s.ResolveSegment(req)
	if err != nil {
		return domain.CurveResponse{}, err
	}

	state, err := s.engine.Compute(segment)
	if err != nil {
		return domain.CurveResponse{}, err
	}
	model, err := s.engine.Model(segment)
	if err != nil {
		return domain.CurveResponse{}, err
	}

	resp := domain.CurveResponse{
		Samples:  thin(slices.Collect(engine.Uncongested(model.Samples())), maxPoints),
		Critical: state.CriticalFlowByGrade,
	}
	if state.Defined() {
		resp.Operating = &domain.Sample{
			Speed:   *state.AverageSpeed,
			Density: *state.Density,
			Flow:    float64(state.DesignFlow),
		}
	}
	return resp, nil
}

// HourlyVolume converts ADT to the design hourly volume of one direction
func (s *TrafficService) HourlyVolume(adt int, profile string) (engine.Demand, error) {
	p, err := parseProfile(profile)
	if err != nil {
		return engine.Demand{}, err
	}
	if adt <= 0 {
		return engine.Demand{}, &domain.ValidationError{Field: "adt", Message: "must be positive"}
	}
	return engine.HourlyVolume(s.engine.Tables(), adt, p)
}

// ADT converts a one-direction hourly volume back to two-way ADT
func (s *TrafficService) ADT(volume int, profile string) (engine.Demand, error) {
	p, err := parseProfile(profile)
	if err != nil {
		return engine.Demand{}, err
	}
	if volume <= 0 {
		return engine.Demand{}, &domain.ValidationError{Field: "volume", Message: "must be positive"}
	}
	return engine.ADTFromVolume(s.engine.Tables(), volume, p)
}

// LOSBoundaries returns the density boundary of each grade
func (s *TrafficService) LOSBoundaries() []tables.LOSBoundary {
	return s.engine.Tables().LOSBoundaries()
}

func parseProfile(s string) (domain.Profile, error) {
	p, ok := domain.ParseProfile(s)
	if !ok {
		return "", &domain.ValidationError{Field: "profile", Message: fmt.Sprintf("unknown seasonal profile %q", s)}
	}
	return p, nil
}

// thin keeps every n-th sample so that at most maxPoints remain, always
// including the last one.
func thin(samples []domain.Sample, maxPoints int) []domain.Sample {
	if maxPoints <= 0 {
		maxPoints = DefaultCurvePoints
	}
	if len(samples) <= maxPoints {
		return samples
	}
	if maxPoints == 1 {
		return samples[len(samples)-1:]
	}

	step := (len(samples) + maxPoints - 3) / (maxPoints - 1)
	out := make([]domain.Sample, 0, maxPoints)
	for i := 0; i < len(samples)-1; i += step {
		out = append(out, samples[i])
	}
	return append(out, samples[len(samples)-1])
}
