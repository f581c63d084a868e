package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// historyLimit caps the number of analyses returned by one history query
const historyLimit = 100

// PostgresRepository implements domain.AnalysisRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the analyses table if it does not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("postgres: failed to create schema: %w", err)
	}
	log.Println("PostgreSQL schema ensured")
	return nil
}

// SaveAnalysis persists an analysis to PostgreSQL
func (r *PostgresRepository) SaveAnalysis(ctx context.Context, a domain.Analysis) error {
	segment, err := json.Marshal(a.Segment)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode segment: %w", err)
	}
	state, err := json.Marshal(a.State)
	if err != nil {
		return fmt.Errorf("postgres: failed to encode state: %w", err)
	}

	query := `
		INSERT INTO analyses (
			id, name, road_class, los, utilization, segment, state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		a.ID, a.Name, string(a.Segment.RoadClass), string(a.State.LOS), a.State.Utilization,
		segment, state, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save analysis: %w", err)
	}

	return nil
}

// GetRecentAnalyses retrieves analyses created within [from, to], newest first
func (r *PostgresRepository) GetRecentAnalyses(ctx context.Context, from, to time.Time) ([]domain.Analysis, error) {
	query := `
		SELECT id::text, name, segment, state, created_at
		FROM analyses
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, from, to, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query analyses: %w", err)
	}
	defer rows.Close()

	var results []domain.Analysis
	for rows.Next() {
		var (
			a              domain.Analysis
			segment, state []byte
		)
		if err := rows.Scan(&a.ID, &a.Name, &segment, &state, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan analysis row: %w", err)
		}
		if err := json.Unmarshal(segment, &a.Segment); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode segment %s: %w", a.ID, err)
		}
		if err := json.Unmarshal(state, &a.State); err != nil {
			return nil, fmt.Errorf("postgres: failed to decode state %s: %w", a.ID, err)
		}
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate analyses: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
