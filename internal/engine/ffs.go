package engine

import (
	"fmt"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// Free-flow speed regression coefficients
const (
	ffsAccessCoef = -10.7
	ffsAreaCoef   = 7.7
	ffsLimitCoef  = 0.334
)

type ffsModel struct {
	intercept float64
	min, max  int
}

var ffsModels = map[domain.RoadClass]ffsModel{
	domain.RoadClassMotorway:   {intercept: 82.2, min: 90, max: 130},
	domain.RoadClassExpressway: {intercept: 83.5, min: 90, max: 120},
	domain.RoadClassMainRoad:   {intercept: 80.5, min: 80, max: 110},
}

// FreeFlowRange returns the valid free-flow speed range of a road class
func FreeFlowRange(class domain.RoadClass) (min, max int, err error) {
	m, ok := ffsModels[class]
	if !ok {
		return 0, 0, &domain.ValidationError{Field: "road_class", Message: fmt.Sprintf("unknown road class %q", class)}
	}
	return m.min, m.max, nil
}

// EstimateFreeFlowSpeed returns the rounded regression estimate and the value
// clamped to the class range. Only the clamped value feeds later stages.
func EstimateFreeFlowSpeed(class domain.RoadClass, accessPointDensity float64, area domain.AreaType, speedLimit int) (estimate, clamped int, err error) {
	m, ok := ffsModels[class]
	if !ok {
		return 0, 0, &domain.ValidationError{Field: "road_class", Message: fmt.Sprintf("unknown road class %q", class)}
	}

	raw := m.intercept +
		ffsAccessCoef*accessPointDensity +
		ffsAreaCoef*float64(area) +
		ffsLimitCoef*float64(speedLimit)

	estimate = utils.RoundInt(raw)
	return estimate, utils.Clamp(estimate, m.min, m.max), nil
}

// SpeedBucket rounds a free-flow speed to the 5 km/h step of the capacity table
func SpeedBucket(ffs int) int {
	return utils.RoundToNearest(ffs, 5)
}

// AccessPointDensity returns access points per km rounded to 2 decimals
func AccessPointDensity(accessPoints, sectionLengthKm float64) float64 {
	if sectionLengthKm <= 0 {
		return 0
	}
	return utils.RoundTo(accessPoints/sectionLengthKm, 2)
}
