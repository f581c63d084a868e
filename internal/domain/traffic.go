package domain

// Grade is a level of service, A (free flow) to F (forced flow)
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
)

// BoundedGrades are the grades that have a density boundary; F is the remainder
func BoundedGrades() []Grade {
	return []Grade{GradeA, GradeB, GradeC, GradeD, GradeE}
}

// Sample is one point of the speed-flow-density curve
type Sample struct {
	Speed   float64 `json:"speed"`   // km/h
	Density float64 `json:"density"` // pc/km/lane
	Flow    float64 `json:"flow"`    // pc/h/lane
}

// ModelParameters calibrate the speed-flow-density model for one segment
type ModelParameters struct {
	FreeFlowSpeed float64 `json:"free_flow_speed"`
	OptimalSpeed  float64 `json:"optimal_speed"`
	Capacity      float64 `json:"capacity"`
	JamDensity    float64 `json:"jam_density"`
}

// CriticalADT holds the daily demand at which a grade boundary is reached
type CriticalADT struct {
	PassengerCars int `json:"pc_per_day"`
	Vehicles      int `json:"veh_per_day"`
}

// TrafficState is the full result of a segment computation
type TrafficState struct {
	AccessPointDensity    float64 `json:"access_point_density"`
	FreeFlowSpeedEstimate int     `json:"free_flow_speed_estimate_kmh"` // before clamping
	FreeFlowSpeed         int     `json:"free_flow_speed_kmh"`
	SpeedBucket           int     `json:"speed_bucket_kmh"`

	ADT               int     `json:"adt"`
	PeakingFactor     float64 `json:"peaking_factor"`
	HourlyVolume      int     `json:"hourly_volume"`
	K15               float64 `json:"k15"`

	// InitialEquivalencyFactor uses the 0.75 utilization cap; EquivalencyFactor
	// is the one applied to DesignFlow after the cap check.
	InitialEquivalencyFactor float64 `json:"initial_equivalency_factor"`
	EquivalencyFactor        float64 `json:"equivalency_factor"`
	UtilizationCap           float64 `json:"utilization_cap"`
	DesignFlow               int     `json:"design_flow"`

	BaseCapacity int     `json:"base_capacity"`
	OptimalSpeed float64 `json:"optimal_speed_kmh"`
	JamDensity   float64 `json:"jam_density"`
	RealCapacity int     `json:"real_capacity"`
	Utilization  float64 `json:"utilization"`

	AverageSpeed    *float64        `json:"average_speed_kmh,omitempty"`
	Density         *float64        `json:"density,omitempty"`
	SpeedDrop       *float64        `json:"speed_drop_pct,omitempty"` // relative to free-flow speed
	UndefinedReason UndefinedReason `json:"undefined_reason,omitempty"`
	LOS             Grade           `json:"los"`

	CriticalFlowByGrade map[Grade]int         `json:"critical_flow_by_grade"`
	CriticalADTByGrade  map[Grade]CriticalADT `json:"critical_adt_by_grade"`

	Warnings []string `json:"warnings,omitempty"`
}

// Defined reports whether the operating point has a speed and density
func (s TrafficState) Defined() bool {
	return s.AverageSpeed != nil && s.Density != nil
}
