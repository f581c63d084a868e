package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

// motorway at 125 km/h
var motorwayParams = domain.ModelParameters{
	FreeFlowSpeed: 125,
	OptimalSpeed:  84,
	Capacity:      2225,
	JamDensity:    130,
}

func TestNewModelCoefficients(t *testing.T) {
	m, err := NewModel(motorwayParams)
	require.NoError(t, err)

	mm, c1, c2, c3 := m.Coefficients()
	assert.InDelta(t, 0.02558001189767995, mm, 1e-12)
	assert.InDelta(t, 0.005859715681144253, c1, 1e-12)
	assert.InDelta(t, 0.22907400139543, c2, 1e-12)
	assert.InDelta(t, 0.0003131657445461618, c3, 1e-12)
	assert.Equal(t, motorwayParams, m.Parameters())
}

func TestNewModelRejectsInvalidParameters(t *testing.T) {
	for _, tc := range []struct {
		field  string
		mutate func(p *domain.ModelParameters)
	}{
		{"free_flow_speed", func(p *domain.ModelParameters) { p.FreeFlowSpeed = 0 }},
		{"capacity", func(p *domain.ModelParameters) { p.Capacity = -1 }},
		{"jam_density", func(p *domain.ModelParameters) { p.JamDensity = 0 }},
		{"optimal_speed", func(p *domain.ModelParameters) { p.OptimalSpeed = 125 }},
		{"optimal_speed", func(p *domain.ModelParameters) { p.OptimalSpeed = 62.5 }},
	} {
		p := motorwayParams
		tc.mutate(&p)
		_, err := NewModel(p)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr), tc.field)
		assert.Equal(t, tc.field, verr.Field)
	}
}

func TestModelEndpoints(t *testing.T) {
	m, err := NewModel(motorwayParams)
	require.NoError(t, err)

	free := m.At(125)
	assert.Equal(t, domain.Sample{Speed: 125}, free)

	stopped := m.At(0)
	assert.InDelta(t, 130, stopped.Density, 0.01)
	assert.Equal(t, 0.0, stopped.Flow)
}

func TestModelSamples(t *testing.T) {
	m, err := NewModel(motorwayParams)
	require.NoError(t, err)
	assert.Equal(t, 12501, m.Len())

	var (
		count int
		first domain.Sample
		last  domain.Sample
		prev  = 126.0
	)
	for s := range m.Samples() {
		if count == 0 {
			first = s
		}
		assert.Less(t, s.Speed, prev)
		prev = s.Speed
		last = s
		count++
	}
	assert.Equal(t, m.Len(), count)
	assert.Equal(t, 125.0, first.Speed)
	assert.Equal(t, 0.0, first.Density)
	assert.Equal(t, 0.0, last.Speed)
}

func TestModelSamplesRestartable(t *testing.T) {
	m, err := NewModel(motorwayParams)
	require.NoError(t, err)

	take := func() []float64 {
		var speeds []float64
		for s := range m.Samples() {
			speeds = append(speeds, s.Speed)
			if len(speeds) == 3 {
				break
			}
		}
		return speeds
	}

	assert.Equal(t, []float64{125, 124.99, 124.98}, take())
	assert.Equal(t, take(), take())
}

func TestModelMonotonicity(t *testing.T) {
	for _, p := range []domain.ModelParameters{
		motorwayParams,
		{FreeFlowSpeed: 113, OptimalSpeed: 78.6, Capacity: 2115, JamDensity: 135},
		{FreeFlowSpeed: 102, OptimalSpeed: 68.4, Capacity: 1960, JamDensity: 140},
	} {
		m, err := NewModel(p)
		require.NoError(t, err)

		prev := domain.Sample{Speed: p.FreeFlowSpeed + 1}
		for s := range Uncongested(m.Samples()) {
			// density grows as speed drops
			require.GreaterOrEqual(t, s.Density, prev.Density, "speed %.2f", s.Speed)
			// flow grows whenever density does; within one rounded density it may dip
			if s.Density > prev.Density {
				require.GreaterOrEqual(t, s.Flow, prev.Flow, "speed %.2f", s.Speed)
			}
			prev = s
		}
	}
}

func TestModelFlowUsesRoundedDensity(t *testing.T) {
	m, err := NewModel(domain.ModelParameters{FreeFlowSpeed: 102, OptimalSpeed: 68.4, Capacity: 1960, JamDensity: 140})
	require.NoError(t, err)

	tests := []struct {
		speed   float64
		density float64
		flow    float64
	}{
		{100, 7.77, 777},
		{73.70, 26.49, 1952.31},
		{73.66, 26.5, 1951.99},
	}
	for _, tt := range tests {
		s := m.At(tt.speed)
		assert.Equal(t, tt.density, s.Density, "speed %.2f", tt.speed)
		assert.Equal(t, tt.flow, s.Flow, "speed %.2f", tt.speed)
	}
}
