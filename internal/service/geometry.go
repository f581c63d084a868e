package service

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/pkg/utils"
)

// SectionLengthKm measures a GeoJSON LineString or MultiLineString along the
// great circle, in km rounded to metres.
func SectionLengthKm(g *geojson.Geometry) (float64, error) {
	if g == nil {
		return 0, &domain.ValidationError{Field: "geometry", Message: "missing"}
	}

	var meters float64
	switch geom := g.Geometry().(type) {
	case orb.LineString:
		meters = geo.LengthHaversine(geom)
	case orb.MultiLineString:
		meters = geo.LengthHaversine(geom)
	default:
		return 0, &domain.ValidationError{
			Field:   "geometry",
			Message: fmt.Sprintf("expected LineString or MultiLineString, got %s", g.Type),
		}
	}

	if meters <= 0 {
		return 0, &domain.ValidationError{Field: "geometry", Message: "section has zero length"}
	}
	return utils.RoundTo(meters/1000, 3), nil
}
