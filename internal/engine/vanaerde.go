package engine

import (
	"fmt"
	"iter"
	"math"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// speedResolution is the number of curve samples per km/h
const speedResolution = 100

// Model is a calibrated Van Aerde speed-flow-density relationship:
//
//	k(v) = 1 / (c1 + c2/(vf - v) + c3*v)
//	q(v) = v * k(v)
//
// A Model is immutable and safe for concurrent use.
type Model struct {
	params        domain.ModelParameters
	m, c1, c2, c3 float64
	steps         int
}

// NewModel calibrates the coefficients from free-flow speed, speed at
// capacity, capacity and jam density.
func NewModel(p domain.ModelParameters) (*Model, error) {
	vf, vo := p.FreeFlowSpeed, p.OptimalSpeed
	switch {
	case vf <= 0 || math.IsNaN(vf) || math.IsInf(vf, 0):
		return nil, &domain.ValidationError{Field: "free_flow_speed", Message: "must be positive and finite"}
	case p.Capacity <= 0:
		return nil, &domain.ValidationError{Field: "capacity", Message: "must be positive"}
	case p.JamDensity <= 0:
		return nil, &domain.ValidationError{Field: "jam_density", Message: "must be positive"}
	case vo <= vf/2 || vo >= vf:
		return nil, &domain.ValidationError{
			Field:   "optimal_speed",
			Message: fmt.Sprintf("%.2f must lie within (%.2f, %.2f)", vo, vf/2, vf),
		}
	}

	m := (2*vo - vf) / ((vf - vo) * (vf - vo))
	c2 := 1 / (p.JamDensity * (m + 1/vf))
	c1 := m * c2
	c3 := (1 / vo) * (vo/p.Capacity - c1 - c2/(vf-vo))

	return &Model{
		params: p,
		m:      m,
		c1:     c1,
		c2:     c2,
		c3:     c3,
		steps:  utils.RoundInt(vf * speedResolution),
	}, nil
}

// Parameters returns the calibration inputs
func (m *Model) Parameters() domain.ModelParameters { return m.params }

// Coefficients returns m, c1, c2 and c3
func (m *Model) Coefficients() (float64, float64, float64, float64) {
	return m.m, m.c1, m.c2, m.c3
}

// Len is the number of samples produced by Samples
func (m *Model) Len() int { return m.steps + 1 }

// At evaluates the curve at a speed. Density is 0 at or above free-flow speed.
// Density is rounded to 2 decimals and flow is speed times that rounded
// density, also rounded to 2 decimals.
func (m *Model) At(speed float64) domain.Sample {
	vf := m.params.FreeFlowSpeed
	if speed >= vf {
		return domain.Sample{Speed: speed}
	}
	k := utils.RoundTo(1/(m.c1+m.c2/(vf-speed)+m.c3*speed), 2)
	return domain.Sample{
		Speed:   speed,
		Density: k,
		Flow:    utils.RoundTo(speed*k, 2),
	}
}

// Samples yields the curve from free-flow speed down to 0 in 0.01 km/h
// steps. Each call restarts the sequence.
func (m *Model) Samples() iter.Seq[domain.Sample] {
	return func(yield func(domain.Sample) bool) {
		for i := m.steps; i >= 0; i-- {
			if !yield(m.At(float64(i) / speedResolution)) {
				return
			}
		}
	}
}
