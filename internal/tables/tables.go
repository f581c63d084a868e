// Package tables holds the static reference tables of the capacity method:
// seasonal peaking factors, vehicle equivalency factors, capacity parameters
// by free-flow speed and level-of-service density boundaries.
//
// Tables are parsed once into maps keyed by typed composite keys and are
// read-only afterwards, so a *Tables value is safe for concurrent use.
package tables

import (
	"fmt"
	"math"
	"sort"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

// Table names used in lookup errors and file names
const (
	PeakingTable     = "u50"
	EquivalencyTable = "ew_rate"
	CapacityTable    = "capacity"
	LOSTable         = "psr_bound"
)

// ---------------------------------------------------------------------------
// Keys
// ---------------------------------------------------------------------------

// GradientBucket is a longitudinal gradient class in whole percent: 2, 3, 4 or 5 (over 4%).
type GradientBucket int

const (
	Gradient2 GradientBucket = 2
	Gradient3 GradientBucket = 3
	Gradient4 GradientBucket = 4
	Gradient5 GradientBucket = 5
)

// BucketGradient maps a gradient fraction onto its table class.
// Downhill gradients fall into the lowest class.
func BucketGradient(gradient float64) GradientBucket {
	switch {
	case gradient <= 0.02:
		return Gradient2
	case gradient <= 0.03:
		return Gradient3
	case gradient <= 0.04:
		return Gradient4
	default:
		return Gradient5
	}
}

// UtilizationCap is the utilization rate up to which a heavy-vehicle factor
// applies, in hundredths.
type UtilizationCap int

const (
	CapReduced UtilizationCap = 75
	CapFull    UtilizationCap = 100
)

// Rate returns the cap as a fraction
func (c UtilizationCap) Rate() float64 { return float64(c) / 100 }

func parseUtilizationCap(rate float64) (UtilizationCap, error) {
	c := UtilizationCap(math.Round(rate * 100))
	if c != CapReduced && c != CapFull {
		return 0, fmt.Errorf("unsupported utilization cap %v", rate)
	}
	return c, nil
}

type heavyKey struct {
	class    domain.RoadClass
	lanes    int
	utilCap  UtilizationCap
	gradient GradientBucket
}

type capacityKey struct {
	class domain.RoadClass
	speed int
}

// ---------------------------------------------------------------------------
// Rows
// ---------------------------------------------------------------------------

// ADTBucket is a half-open ADT range [Min, Max) with its u50 peaking factor
type ADTBucket struct {
	Min    int     `json:"adt_min"`
	Max    int     `json:"adt_max"`
	Factor float64 `json:"u50"`
}

// Contains reports whether adt falls into the bucket
func (b ADTBucket) Contains(adt int) bool {
	return adt >= b.Min && adt < b.Max
}

// CapacityRow holds the model parameters for one road class and speed bucket
type CapacityRow struct {
	BaseCapacity int     `json:"base_capacity"`
	OptimalSpeed float64 `json:"opt_speed"`
	JamDensity   float64 `json:"jam_density"`
}

// LOSBoundary is the maximum lane density of a grade
type LOSBoundary struct {
	Grade   domain.Grade `json:"los"`
	Density float64      `json:"lane_density"`
}

// ---------------------------------------------------------------------------
// Tables
// ---------------------------------------------------------------------------

// Tables is the immutable set of reference tables
type Tables struct {
	peaking  map[domain.Profile][]ADTBucket // sorted by Min
	light    map[GradientBucket]float64
	heavy    map[heavyKey]float64
	capacity map[capacityKey]CapacityRow
	los      []LOSBoundary // ascending density
}

// PeakingFactor returns the u50 factor for a profile and ADT
func (t *Tables) PeakingFactor(profile domain.Profile, adt int) (float64, error) {
	b, err := t.PeakingBucket(profile, adt)
	if err != nil {
		return 0, err
	}
	return b.Factor, nil
}

// PeakingBucket returns the ADT bucket of a profile containing adt
func (t *Tables) PeakingBucket(profile domain.Profile, adt int) (ADTBucket, error) {
	buckets := t.peaking[profile]
	i := sort.Search(len(buckets), func(i int) bool { return buckets[i].Max > adt })
	if i < len(buckets) && buckets[i].Contains(adt) {
		return buckets[i], nil
	}
	return ADTBucket{}, &domain.LookupError{
		Table: PeakingTable,
		Key:   fmt.Sprintf("profile=%s adt=%d", profile, adt),
	}
}

// PeakingBuckets returns a copy of a profile's buckets in ascending ADT order
func (t *Tables) PeakingBuckets(profile domain.Profile) []ADTBucket {
	return append([]ADTBucket(nil), t.peaking[profile]...)
}

// LightVehicleFactor returns the light-vehicle equivalency factor Es
func (t *Tables) LightVehicleFactor(g GradientBucket) (float64, error) {
	f, ok := t.light[g]
	if !ok {
		return 0, &domain.LookupError{
			Table: EquivalencyTable,
			Key:   fmt.Sprintf("veh_type=lv gradient=%d%%", g),
		}
	}
	return f, nil
}

// HeavyVehicleFactor returns the heavy-vehicle equivalency factor Ec
func (t *Tables) HeavyVehicleFactor(class domain.RoadClass, lanes int, utilCap UtilizationCap, g GradientBucket) (float64, error) {
	f, ok := t.heavy[heavyKey{class: class, lanes: lanes, utilCap: utilCap, gradient: g}]
	if !ok {
		return 0, &domain.LookupError{
			Table: EquivalencyTable,
			Key:   fmt.Sprintf("veh_type=hv road_class=%s lanes=%d max_util_rate=%.2f gradient=%d%%", class, lanes, utilCap.Rate(), g),
		}
	}
	return f, nil
}

// Capacity returns the capacity row for a road class and free-flow speed bucket
func (t *Tables) Capacity(class domain.RoadClass, speedBucket int) (CapacityRow, error) {
	row, ok := t.capacity[capacityKey{class: class, speed: speedBucket}]
	if !ok {
		return CapacityRow{}, &domain.LookupError{
			Table: CapacityTable,
			Key:   fmt.Sprintf("road_class=%s ffs=%d", class, speedBucket),
		}
	}
	return row, nil
}

// LOSBoundaries returns the grade boundaries in ascending density order
func (t *Tables) LOSBoundaries() []LOSBoundary {
	return append([]LOSBoundary(nil), t.los...)
}

// Boundary returns the density boundary of a grade
func (t *Tables) Boundary(grade domain.Grade) (float64, error) {
	for _, b := range t.los {
		if b.Grade == grade {
			return b.Density, nil
		}
	}
	return 0, &domain.LookupError{Table: LOSTable, Key: fmt.Sprintf("los=%s", grade)}
}
