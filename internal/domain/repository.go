package domain

import (
	"context"
	"time"

	"github.com/paulmach/orb/geojson"
)

// AnalysisRequest is the input of one segment analysis
type AnalysisRequest struct {
	Name     string            `json:"name,omitempty"`
	Segment  SegmentParameters `json:"segment"`
	Geometry *geojson.Geometry `json:"geometry,omitempty"` // LineString; overrides section_length_km
}

// Analysis is a computed segment analysis with its identity
type Analysis struct {
	ID        string            `json:"id"`
	Name      string            `json:"name,omitempty"`
	Segment   SegmentParameters `json:"segment"`
	State     TrafficState      `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
}

// CurveResponse carries chart data for the flow-speed diagram
type CurveResponse struct {
	Samples   []Sample      `json:"samples"`
	Operating *Sample       `json:"operating,omitempty"`
	Critical  map[Grade]int `json:"critical_flow_by_grade"`
}

// AnalysisRepository defines the interface for analysis persistence
// This follows the Dependency Inversion Principle - domain defines the interface
type AnalysisRepository interface {
	// SaveAnalysis records a computed analysis
	SaveAnalysis(ctx context.Context, a Analysis) error

	// GetRecentAnalyses retrieves analyses created within [from, to]
	GetRecentAnalyses(ctx context.Context, from, to time.Time) ([]Analysis, error)

	// Health checks storage connectivity
	Health(ctx context.Context) error
}
