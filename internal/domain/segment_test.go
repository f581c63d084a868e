package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSegment() SegmentParameters {
	return SegmentParameters{
		RoadClass:     RoadClassMotorway,
		SpeedLimit:    120,
		AccessPoints:  5,
		SectionLength: 10,
		AreaType:      AreaRural,
		ADT:           30000,
		HVShare:       0.1,
		Profile:       ProfileMotorwayLow,
		Lanes:         2,
		Gradient:      0.02,
	}
}

func TestParseRoadClass(t *testing.T) {
	for _, tc := range []struct {
		in  string
		out RoadClass
		ok  bool
	}{
		{"A", RoadClassMotorway, true},
		{"S", RoadClassExpressway, true},
		{"GPG", RoadClassMainRoad, true},
		{"GP", "", false},
		{"", "", false},
	} {
		got, ok := ParseRoadClass(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.out, got, tc.in)
	}
}

func TestParseProfile(t *testing.T) {
	p, ok := ParseProfile("DASD")
	assert.True(t, ok)
	assert.Equal(t, ProfileMotorwayHigh, p)

	_, ok = ParseProfile("dasd")
	assert.False(t, ok)
}

func TestAreaTypeString(t *testing.T) {
	assert.Equal(t, "urban", AreaUrban.String())
	assert.Equal(t, "rural", AreaRural.String())
	assert.Equal(t, "unknown", AreaType(7).String())
}

func TestValidate(t *testing.T) {
	require.NoError(t, validSegment().Validate())

	hourly := validSegment()
	hourly.ADT = 0
	hourly.HourlyVolume = 1500
	require.NoError(t, hourly.Validate())

	for _, tc := range []struct {
		field  string
		mutate func(p *SegmentParameters)
	}{
		{"road_class", func(p *SegmentParameters) { p.RoadClass = "B" }},
		{"profile", func(p *SegmentParameters) { p.Profile = "XYZ" }},
		{"speed_limit", func(p *SegmentParameters) { p.SpeedLimit = 0 }},
		{"access_points", func(p *SegmentParameters) { p.AccessPoints = -1 }},
		{"section_length_km", func(p *SegmentParameters) { p.SectionLength = 0 }},
		{"area_type", func(p *SegmentParameters) { p.AreaType = 2 }},
		{"adt", func(p *SegmentParameters) { p.ADT = 0 }},
		{"adt", func(p *SegmentParameters) { p.ADT = -5 }},
		{"hv_share", func(p *SegmentParameters) { p.HVShare = 1.2 }},
		{"lanes", func(p *SegmentParameters) { p.Lanes = 1 }},
		{"lanes", func(p *SegmentParameters) { p.Lanes = 5 }},
	} {
		t.Run(tc.field, func(t *testing.T) {
			p := validSegment()
			tc.mutate(&p)
			err := p.Validate()
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestTrafficStateDefined(t *testing.T) {
	speed, density := 122.38, 7.6
	assert.True(t, TrafficState{AverageSpeed: &speed, Density: &density}.Defined())
	assert.False(t, TrafficState{UndefinedReason: ReasonCapacityExceeded}.Defined())
}
