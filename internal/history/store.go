// Package history persists analysis run summaries in an embedded DuckDB
// database, enabling per-file performance trends across runs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rs/zerolog"

	"github.com/pylens-io/pylens/internal/analysis"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         VARCHAR PRIMARY KEY,
	file       VARCHAR NOT NULL,
	mode       VARCHAR NOT NULL,
	created_at TIMESTAMP NOT NULL,
	total_time DOUBLE NOT NULL,
	report     JSON NOT NULL
)`

// Store records analysis runs. One Store owns one database handle; Close
// it when done.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the history database at path. An empty
// path opens an in-memory database, useful in tests.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close() // nolint:errcheck
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}, nil
}

// Record persists one report and returns the run id.
func (s *Store) Record(ctx context.Context, rep *analysis.Report) (string, error) {
	payload, err := json.Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, file, mode, created_at, total_time, report)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, rep.File, rep.Mode, time.Now().UTC(), rep.TotalTime(), string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	s.logger.Debug().Str("run_id", id).Str("file", rep.File).Msg("run recorded")
	return id, nil
}

// TrendPoint is one run's contribution to a file's performance trend.
type TrendPoint struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	TotalTime float64   `json:"total_time"`
}

// Trend returns a file's runs in chronological order.
func (s *Store) Trend(ctx context.Context, file string) ([]TrendPoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, total_time FROM runs
		 WHERE file = ? ORDER BY created_at ASC`, file)
	if err != nil {
		return nil, fmt.Errorf("query trend: %w", err)
	}
	defer rows.Close() // nolint:errcheck

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.RunID, &p.CreatedAt, &p.TotalTime); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
