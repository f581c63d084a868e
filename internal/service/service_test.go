package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/engine"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/repository/postgres"
	"github.com/romanowskaa/expressway-capacity-estimation/internal/tables"
)

func newTrafficService(t *testing.T) *TrafficService {
	t.Helper()
	tbl, err := tables.Default()
	require.NoError(t, err)
	return NewTrafficService(engine.New(tbl))
}

func motorwayRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Name: "A1 Piekary - Pyrzowice",
		Segment: domain.SegmentParameters{
			RoadClass:     domain.RoadClassMotorway,
			SpeedLimit:    120,
			AccessPoints:  5,
			SectionLength: 10,
			AreaType:      domain.AreaRural,
			ADT:           30000,
			HVShare:       0.1,
			Profile:       domain.ProfileMotorwayLow,
			Lanes:         2,
			Gradient:      0.02,
		},
	}
}

// failingRepo records calls and fails every save
type failingRepo struct {
	mu    sync.Mutex
	saves int
}

func (r *failingRepo) SaveAnalysis(ctx context.Context, a domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	return errors.New("disk full")
}

func (r *failingRepo) GetRecentAnalyses(ctx context.Context, from, to time.Time) ([]domain.Analysis, error) {
	return nil, errors.New("disk full")
}

func (r *failingRepo) Health(ctx context.Context) error { return errors.New("disk full") }

func TestSectionLengthKm(t *testing.T) {
	// 0.1 degree of longitude on the equator
	km, err := SectionLengthKm(geojson.NewGeometry(orb.LineString{{0, 0}, {0.05, 0}, {0.1, 0}}))
	require.NoError(t, err)
	assert.InDelta(t, 11.132, km, 0.01)

	km, err = SectionLengthKm(geojson.NewGeometry(orb.MultiLineString{
		{{0, 0}, {0.05, 0}},
		{{0.05, 0}, {0.1, 0}},
	}))
	require.NoError(t, err)
	assert.InDelta(t, 11.132, km, 0.01)

	for _, g := range []*geojson.Geometry{
		nil,
		geojson.NewGeometry(orb.Point{19.9, 50.1}),
		geojson.NewGeometry(orb.LineString{{19.9, 50.1}, {19.9, 50.1}}),
	} {
		_, err := SectionLengthKm(g)
		var verr *domain.ValidationError
		assert.True(t, errors.As(err, &verr))
	}
}

func TestResolveSegmentUsesGeometry(t *testing.T) {
	svc := newTrafficService(t)
	req := motorwayRequest()
	req.Geometry = geojson.NewGeometry(orb.LineString{{0, 0}, {0.1, 0}})

	segment, err := svc.ResolveSegment(req)
	require.NoError(t, err)
	assert.InDelta(t, 11.132, segment.SectionLength, 0.01)
	assert.Equal(t, 10.0, req.Segment.SectionLength, "request is not mutated")
}

func TestCurve(t *testing.T) {
	svc := newTrafficService(t)

	resp, err := svc.Curve(motorwayRequest(), 200)
	require.NoError(t, err)

	require.LessOrEqual(t, len(resp.Samples), 200)
	require.NotEmpty(t, resp.Samples)
	assert.Equal(t, 125.0, resp.Samples[0].Speed)
	for _, s := range resp.Samples {
		assert.LessOrEqual(t, s.Density, engine.UncongestedDensityLimit)
	}

	require.NotNil(t, resp.Operating)
	assert.Equal(t, 122.38, resp.Operating.Speed)
	assert.Equal(t, 929.0, resp.Operating.Flow)
	assert.Equal(t, 2225, resp.Critical[domain.GradeE])
}

func TestCurveOverCapacityHasNoOperatingPoint(t *testing.T) {
	req := motorwayRequest()
	req.Segment.ADT = 150000
	req.Segment.Profile = domain.ProfileMotorwayHigh

	resp, err := newTrafficService(t).Curve(req, 0)
	require.NoError(t, err)
	assert.Nil(t, resp.Operating)
	assert.LessOrEqual(t, len(resp.Samples), DefaultCurvePoints)
}

func TestThin(t *testing.T) {
	samples := make([]domain.Sample, 1001)
	for i := range samples {
		samples[i].Speed = float64(len(samples) - 1 - i)
	}

	for _, maxPoints := range []int{1, 2, 3, 10, 333, 1000, 1001, 5000} {
		out := thin(samples, maxPoints)
		assert.LessOrEqual(t, len(out), maxPoints, "max %d", maxPoints)
		assert.Equal(t, 0.0, out[len(out)-1].Speed, "last sample kept for max %d", maxPoints)
		if maxPoints > 1 {
			assert.Equal(t, 1000.0, out[0].Speed)
		}
	}
}

func TestDemandConversions(t *testing.T) {
	svc := newTrafficService(t)

	d, err := svc.HourlyVolume(30000, "DASM")
	require.NoError(t, err)
	assert.Equal(t, 1500, d.HourlyVolume)

	d, err = svc.ADT(1500, "DASM")
	require.NoError(t, err)
	assert.Equal(t, 30000, d.ADT)

	var verr *domain.ValidationError
	_, err = svc.HourlyVolume(30000, "XX")
	assert.True(t, errors.As(err, &verr))
	_, err = svc.ADT(0, "DASM")
	assert.True(t, errors.As(err, &verr))

	_, err = svc.HourlyVolume(500000, "DASM")
	var lerr *domain.LookupError
	assert.True(t, errors.As(err, &lerr))

	assert.Len(t, svc.LOSBoundaries(), 5)
}

func TestAnalyzeRecordsAnalysis(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewMockRepository()
	svc := NewAnalysisService(newTrafficService(t), repo)

	a, err := svc.Analyze(ctx, motorwayRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, domain.GradeB, a.State.LOS)
	assert.Equal(t, 929, a.State.DesignFlow)

	svc.WaitBackground()

	history, err := svc.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, a.ID, history[0].ID)
	assert.Equal(t, "A1 Piekary - Pyrzowice", history[0].Name)
}

func TestAnalyzeOverCapacityIsNotAnError(t *testing.T) {
	req := motorwayRequest()
	req.Segment.ADT = 150000
	req.Segment.Profile = domain.ProfileMotorwayHigh

	svc := NewAnalysisService(newTrafficService(t), postgres.NewMockRepository())
	a, err := svc.Analyze(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.GradeF, a.State.LOS)
	assert.Equal(t, domain.ReasonCapacityExceeded, a.State.UndefinedReason)
	svc.WaitBackground()
}

func TestAnalyzeSurvivesStorageFailure(t *testing.T) {
	repo := &failingRepo{}
	svc := NewAnalysisService(newTrafficService(t), repo)

	_, err := svc.Analyze(context.Background(), motorwayRequest())
	require.NoError(t, err)
	svc.WaitBackground()
	assert.Equal(t, 1, repo.saves)

	_, err = svc.History(context.Background(), 24)
	assert.Error(t, err)
	assert.Error(t, svc.Health(context.Background()))
}

func TestAnalyzeRejectsInvalidSegment(t *testing.T) {
	req := motorwayRequest()
	req.Segment.Lanes = 1

	_, err := NewAnalysisService(newTrafficService(t), postgres.NewMockRepository()).Analyze(context.Background(), req)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "lanes", verr.Field)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAnalysisService(newTrafficService(t), postgres.NewMockRepository()).Analyze(ctx, motorwayRequest())
	assert.ErrorIs(t, err, context.Canceled)
}
