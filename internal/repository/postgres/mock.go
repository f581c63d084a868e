package postgres

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

// MockRepository implements domain.AnalysisRepository in memory for tests
// and for running without a database.
type MockRepository struct {
	mu       sync.RWMutex
	analyses []domain.Analysis
}

// NewMockRepository creates a new mock repository
func NewMockRepository() *MockRepository {
	return &MockRepository{}
}

// SaveAnalysis keeps the analysis in memory
func (r *MockRepository) SaveAnalysis(ctx context.Context, a domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, a)
	return nil
}

// GetRecentAnalyses returns stored analyses created within [from, to], newest first
func (r *MockRepository) GetRecentAnalyses(ctx context.Context, from, to time.Time) ([]domain.Analysis, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []domain.Analysis
	for _, a := range r.analyses {
		if a.CreatedAt.Before(from) || a.CreatedAt.After(to) {
			continue
		}
		results = append(results, a)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
	if len(results) > historyLimit {
		results = results[:historyLimit]
	}
	return results, nil
}

// Health always returns nil in mock mode
func (r *MockRepository) Health(ctx context.Context) error {
	return nil
}
