package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

// History window bounds in hours
const (
	DefaultHistoryHours = 24
	MaxHistoryHours     = 720
)

const saveTimeout = 5 * time.Second

// AnalysisService computes segment analyses and records them
type AnalysisService struct {
	trafficSvc *TrafficService
	repo       AnalysisRepository

	wgBg sync.WaitGroup // tracks background goroutines for graceful shutdown
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(trafficSvc *TrafficService, repo AnalysisRepository) *AnalysisService {
	return &AnalysisService{
		trafficSvc: trafficSvc,
		repo:       repo,
	}
}

// WaitBackground blocks until all background save goroutines complete.
// Call during graceful shutdown to avoid dropped writes.
func (s *AnalysisService) WaitBackground() {
	s.wgBg.Wait()
}

// Analyze computes the traffic state of a segment and records it
// asynchronously. An over-capacity segment is a successful analysis.
func (s *AnalysisService) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return domain.Analysis{}, err
	}

	segment, err := s.trafficSvc.ResolveSegment(req)
	if err != nil {
		return domain.Analysis{}, err
	}

	state, err := s.trafficSvc.Compute(segment)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("analysis: failed to compute segment: %w", err)
	}

	analysis := domain.Analysis{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Segment:   segment,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}

	// Persist asynchronously (tracked for graceful shutdown)
	s.wgBg.Add(1)
	go func() {
		defer s.wgBg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.repo.SaveAnalysis(bgCtx, analysis); err != nil {
			log.Printf("Failed to save analysis %s: %v", analysis.ID, err)
		}
	}()

	return analysis, nil
}

// History returns analyses recorded in the last hours, newest first.
// Out-of-range windows fall back to the default.
func (s *AnalysisService) History(ctx context.Context, hours int) ([]domain.Analysis, error) {
	if hours < 1 || hours > MaxHistoryHours {
		hours = DefaultHistoryHours
	}

	to := time.Now().UTC()
	from := to.Add(-time.Duration(hours) * time.Hour)

	analyses, err := s.repo.GetRecentAnalyses(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("analysis: failed to load history: %w", err)
	}
	return analyses, nil
}

// Health checks the analysis store
func (s *AnalysisService) Health(ctx context.Context) error {
	return s.repo.Health(ctx)
}
