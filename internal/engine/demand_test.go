package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
)

func testTables(t *testing.T) *tables.Tables {
	t.Helper()
	tbl, err := tables.Default()
	require.NoError(t, err)
	return tbl
}

func TestHourlyVolume(t *testing.T) {
	tbl := testTables(t)

	for _, tc := range []struct {
		adt     int
		profile domain.Profile
		want    int
		u50     float64
	}{
		{30000, domain.ProfileMotorwayLow, 1500, 0.100},
		{120000, domain.ProfileMotorwayHigh, 10800, 0.180},
		{60000, domain.ProfileMainRoad, 2850, 0.095},
		{6000, domain.ProfileMainRoad, 315, 0.105},
	} {
		d, err := HourlyVolume(tbl, tc.adt, tc.profile)
		require.NoError(t, err)
		assert.Equal(t, tc.want, d.HourlyVolume, "%s %d", tc.profile, tc.adt)
		assert.Equal(t, tc.u50, d.PeakingFactor)
		assert.Equal(t, tc.adt, d.ADT)
	}
}

func TestHourlyVolumeOutOfTable(t *testing.T) {
	_, err := HourlyVolume(testTables(t), 400000, domain.ProfileMotorwayLow)
	var lerr *domain.LookupError
	require.True(t, errors.As(err, &lerr))
	assert.Equal(t, tables.PeakingTable, lerr.Table)
}

func TestADTFromVolume(t *testing.T) {
	tbl := testTables(t)

	d, err := ADTFromVolume(tbl, 1500, domain.ProfileMotorwayLow)
	require.NoError(t, err)
	assert.Equal(t, 30000, d.ADT)
	assert.Equal(t, 0.1, d.PeakingFactor)

	d, err = ADTFromVolume(tbl, 10800, domain.ProfileMotorwayHigh)
	require.NoError(t, err)
	assert.Equal(t, 120000, d.ADT)

	_, err = ADTFromVolume(tbl, 100, "NOPE")
	var lerr *domain.LookupError
	assert.True(t, errors.As(err, &lerr))
}

func TestADTFromVolumeWithoutConsistentBucket(t *testing.T) {
	// 20000 veh/h is beyond every bucket; the last bucket is the nearest one
	d, err := ADTFromVolume(testTables(t), 20000, domain.ProfileMotorwayLow)
	require.NoError(t, err)
	assert.Equal(t, 0.09, d.PeakingFactor)
	assert.Equal(t, 444444, d.ADT)
}

func TestDemandRoundTrip(t *testing.T) {
	tbl := testTables(t)
	adts := []int{1000, 5000, 8000, 12000, 17000, 21000, 30000, 37000, 44000, 60000, 75000, 88000, 120000, 200000, 280000}

	for _, profile := range domain.Profiles() {
		for _, adt := range adts {
			forward, err := HourlyVolume(tbl, adt, profile)
			require.NoError(t, err)

			back, err := ADTFromVolume(tbl, forward.HourlyVolume, profile)
			require.NoError(t, err)

			// flooring twice loses at most 2/u50 vehicles per day
			tolerance := int(math.Ceil(2 / forward.PeakingFactor))
			assert.LessOrEqual(t, back.ADT, adt, "%s %d", profile, adt)
			assert.LessOrEqual(t, adt-back.ADT, tolerance, "%s %d", profile, adt)
			assert.Equal(t, forward.PeakingFactor, back.PeakingFactor, "%s %d", profile, adt)

			again, err := HourlyVolume(tbl, back.ADT, profile)
			require.NoError(t, err)
			assert.InDelta(t, forward.HourlyVolume, again.HourlyVolume, 1, "%s %d", profile, adt)
		}
	}
}
