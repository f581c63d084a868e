package domain

import "fmt"

// RoadClass is the functional class of a dual-carriageway road
type RoadClass string

const (
	RoadClassMotorway   RoadClass = "A"
	RoadClassExpressway RoadClass = "S"
	RoadClassMainRoad   RoadClass = "GPG" // GP or G class with two carriageways
)

// RoadClasses lists supported classes in table order
func RoadClasses() []RoadClass {
	return []RoadClass{RoadClassMotorway, RoadClassExpressway, RoadClassMainRoad}
}

// ParseRoadClass converts "A", "S" or "GPG" into a RoadClass
func ParseRoadClass(s string) (RoadClass, bool) {
	for _, rc := range RoadClasses() {
		if string(rc) == s {
			return rc, true
		}
	}
	return "", false
}

// AreaType distinguishes agglomeration (urban) sections from rural ones.
// The numeric value is the flag used by the free-flow speed model.
type AreaType int

const (
	AreaUrban AreaType = 0
	AreaRural AreaType = 1
)

func (a AreaType) String() string {
	switch a {
	case AreaUrban:
		return "urban"
	case AreaRural:
		return "rural"
	default:
		return "unknown"
	}
}

// Profile is the seasonal traffic variation profile used for the u50 factor
type Profile string

const (
	ProfileMotorwayLow    Profile = "DASM" // A/S roads, low seasonal variation
	ProfileMotorwayMedium Profile = "DASS" // A/S roads, medium seasonal variation
	ProfileMotorwayHigh   Profile = "DASD" // A/S roads, high seasonal variation
	ProfileMainRoad       Profile = "DGPG" // GP/G roads
)

// Profiles lists all seasonal profiles
func Profiles() []Profile {
	return []Profile{ProfileMotorwayLow, ProfileMotorwayMedium, ProfileMotorwayHigh, ProfileMainRoad}
}

// ParseProfile converts a profile code into a Profile
func ParseProfile(s string) (Profile, bool) {
	for _, p := range Profiles() {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// SegmentParameters describes one homogeneous basic segment and its demand.
// Exactly one of ADT and HourlyVolume drives the demand; ADT wins when both are set.
type SegmentParameters struct {
	RoadClass     RoadClass `json:"road_class"`
	SpeedLimit    int       `json:"speed_limit"`
	AccessPoints  float64   `json:"access_points"`     // entries and exits counted along the section
	SectionLength float64   `json:"section_length_km"` // km
	AreaType      AreaType  `json:"area_type"`
	ADT           int       `json:"adt,omitempty"`           // both directions, veh/24h
	HourlyVolume  int       `json:"hourly_volume,omitempty"` // analysed direction, veh/h
	HVShare       float64   `json:"hv_share"`
	Profile       Profile   `json:"profile"`
	Lanes         int       `json:"lanes"`
	Gradient      float64   `json:"gradient"` // fraction, 0.03 = 3%
}

// Validate checks the invariants a computation relies on
func (p SegmentParameters) Validate() error {
	if _, ok := ParseRoadClass(string(p.RoadClass)); !ok {
		return &ValidationError{Field: "road_class", Message: fmt.Sprintf("unknown road class %q", p.RoadClass)}
	}
	if _, ok := ParseProfile(string(p.Profile)); !ok {
		return &ValidationError{Field: "profile", Message: fmt.Sprintf("unknown seasonal profile %q", p.Profile)}
	}
	if p.SpeedLimit <= 0 {
		return &ValidationError{Field: "speed_limit", Message: "must be positive"}
	}
	if p.AccessPoints < 0 {
		return &ValidationError{Field: "access_points", Message: "must not be negative"}
	}
	if p.SectionLength <= 0 {
		return &ValidationError{Field: "section_length_km", Message: "must be positive"}
	}
	if p.AreaType != AreaUrban && p.AreaType != AreaRural {
		return &ValidationError{Field: "area_type", Message: "must be 0 (urban) or 1 (rural)"}
	}
	if p.ADT < 0 || p.HourlyVolume < 0 {
		return &ValidationError{Field: "adt", Message: "demand must not be negative"}
	}
	if p.ADT == 0 && p.HourlyVolume == 0 {
		return &ValidationError{Field: "adt", Message: "either adt or hourly_volume is required"}
	}
	if p.HVShare < 0 || p.HVShare > 1 {
		return &ValidationError{Field: "hv_share", Message: "must be within [0, 1]"}
	}
	if p.Lanes < 2 || p.Lanes > 4 {
		return &ValidationError{Field: "lanes", Message: "must be 2, 3 or 4"}
	}
	return nil
}
