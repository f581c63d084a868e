package engine

import (
	"fmt"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// Demand is an ADT and hourly volume pair linked by a peaking factor
type Demand struct {
	ADT           int     `json:"adt"`
	HourlyVolume  int     `json:"hourly_volume"`
	PeakingFactor float64 `json:"peaking_factor"`
}

// HourlyVolume converts a two-way ADT into the design hourly volume of one
// direction: floor(adt * u50 / 2).
func HourlyVolume(t *tables.Tables, adt int, profile domain.Profile) (Demand, error) {
	u50, err := t.PeakingFactor(profile, adt)
	if err != nil {
		return Demand{}, err
	}
	return Demand{
		ADT:           adt,
		HourlyVolume:  utils.FloorInt(float64(adt) * u50 / 2),
		PeakingFactor: u50,
	}, nil
}

// ADTFromVolume recovers the two-way ADT behind a one-way hourly volume.
//
// The factor depends on the ADT being solved for, so every bucket of the
// profile is tried in ascending order and the first whose candidate ADT lands
// inside it wins. When no bucket is self-consistent the bucket closest to its
// own candidate is used.
func ADTFromVolume(t *tables.Tables, volume int, profile domain.Profile) (Demand, error) {
	buckets := t.PeakingBuckets(profile)
	if len(buckets) == 0 {
		return Demand{}, &domain.LookupError{
			Table: tables.PeakingTable,
			Key:   fmt.Sprintf("profile=%s", profile),
		}
	}

	var (
		best     Demand
		bestDist = -1
	)
	for _, b := range buckets {
		candidate := utils.FloorInt(float64(volume) * 2 / b.Factor)
		d := Demand{ADT: candidate, HourlyVolume: volume, PeakingFactor: b.Factor}
		if b.Contains(candidate) {
			return d, nil
		}

		dist := b.Min - candidate
		if candidate >= b.Max {
			dist = candidate - b.Max + 1
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}
	return best, nil
}
