// Package sqlite stores analyses in a local SQLite file for single-node
// deployments without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/romanowskaa/expressway-capacity-estimation/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const historyLimit = 100

// Repository implements domain.AnalysisRepository on SQLite
type Repository struct {
	conn    *sql.DB
	writeMu sync.Mutex // SQLite allows one writer at a time
}

// Open opens a SQLite database with WAL mode enabled and ensures the schema
func Open(ctx context.Context, dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	r := &Repository{conn: conn}
	if err := r.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Printf("Connected to SQLite database: %s", dbPath)
	return r, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.conn.Close()
}

// EnsureSchema creates tables if they don't exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, err := r.conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("sqlite: failed to create schema: %w", err)
	}
	return nil
}

// SaveAnalysis persists an analysis
func (r *Repository) SaveAnalysis(ctx context.Context, a domain.Analysis) error {
	segment, err := json.Marshal(a.Segment)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode segment: %w", err)
	}
	state, err := json.Marshal(a.State)
	if err != nil {
		return fmt.Errorf("sqlite: failed to encode state: %w", err)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	_, err = r.conn.ExecContext(ctx, `
		INSERT INTO analyses (id, name, road_class, los, utilization, segment, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.ID, a.Name, string(a.Segment.RoadClass), string(a.State.LOS), a.State.Utilization,
		string(segment), string(state), a.CreatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to save analysis: %w", err)
	}
	return nil
}

// GetRecentAnalyses retrieves analyses created within [from, to], newest first
func (r *Repository) GetRecentAnalyses(ctx context.Context, from, to time.Time) ([]domain.Analysis, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, name, segment, state, created_at
		FROM analyses
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC
		LIMIT ?
	`, from.UTC().UnixMilli(), to.UTC().UnixMilli(), historyLimit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query analyses: %w", err)
	}
	defer rows.Close()

	var results []domain.Analysis
	for rows.Next() {
		var (
			a              domain.Analysis
			segment, state string
			createdAt      int64
		)
		if err := rows.Scan(&a.ID, &a.Name, &segment, &state, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan analysis row: %w", err)
		}
		if err := json.Unmarshal([]byte(segment), &a.Segment); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode segment %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(state), &a.State); err != nil {
			return nil, fmt.Errorf("sqlite: failed to decode state %s: %w", a.ID, err)
		}
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		results = append(results, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to iterate analyses: %w", err)
	}
	return results, nil
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	if err := r.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: health check failed: %w", err)
	}
	return nil
}
