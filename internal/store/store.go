// Package store persists analysis results in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

var (
	// ErrDuplicate is returned when a result for the same timestamp already exists.
	ErrDuplicate = errors.New("result already recorded")
	// ErrNotFound is returned when no result exists for a timestamp.
	ErrNotFound = errors.New("result not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp           INTEGER NOT NULL UNIQUE,
	status              TEXT    NOT NULL,
	blueness_percent    REAL,
	cloud_cover_percent REAL,
	output_directory    TEXT    NOT NULL DEFAULT '',
	detail              TEXT    NOT NULL DEFAULT '',
	created_at          INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_timestamp ON analysis_results(timestamp DESC);
`

// ResultStore is an append-only log of analysis results keyed by timestamp
type ResultStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema
func Open(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under concurrent appends
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &ResultStore{db: db, now: time.Now}, nil
}

// Close closes the database
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Append records r. A second result for the same timestamp returns ErrDuplicate.
func (s *ResultStore) Append(ctx context.Context, r types.AnalysisResult) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("refusing to store invalid result: %w", err)
	}

	query := `
		INSERT INTO analysis_results
			(timestamp, status, blueness_percent, cloud_cover_percent, output_directory, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		r.Timestamp.UnixNano(),
		string(r.Status),
		nullFloat(r.BluenessPercent),
		nullFloat(r.CloudCoverPercent),
		r.OutputDirectory,
		r.Detail,
		s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.Timestamp.UTC().Format(time.RFC3339))
	}
	return nil
}

// List returns up to limit results, newest first. limit <= 0 returns all.
func (s *ResultStore) List(ctx context.Context, limit int) ([]types.AnalysisResult, error) {
	query := `
		SELECT timestamp, status, blueness_percent, cloud_cover_percent, output_directory, detail
		FROM analysis_results
		ORDER BY timestamp DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []types.AnalysisResult{}
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return results, nil
}

// Get returns the result recorded for ts
func (s *ResultStore) Get(ctx context.Context, ts time.Time) (types.AnalysisResult, error) {
	query := `
		SELECT timestamp, status, blueness_percent, cloud_cover_percent, output_directory, detail
		FROM analysis_results
		WHERE timestamp = ?
	`
	r, err := scanResult(s.db.QueryRowContext(ctx, query, ts.UnixNano()))
	if errors.Is(err, sql.ErrNoRows) {
		return types.AnalysisResult{}, ErrNotFound
	}
	return r, err
}

// Processed reports whether a result exists for ts
func (s *ResultStore) Processed(ctx context.Context, ts time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM analysis_results WHERE timestamp = ?`, ts.UnixNano()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check timestamp: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResult(row scanner) (types.AnalysisResult, error) {
	var (
		r        types.AnalysisResult
		ts       int64
		status   string
		blueness sql.NullFloat64
		cloud    sql.NullFloat64
	)
	if err := row.Scan(&ts, &status, &blueness, &cloud, &r.OutputDirectory, &r.Detail); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan result row: %w", err)
	}

	r.Timestamp = time.Unix(0, ts).UTC()
	r.Status = types.Status(status)
	if blueness.Valid {
		r.BluenessPercent = types.Percent(blueness.Float64)
	}
	if cloud.Valid {
		r.CloudCoverPercent = types.Percent(cloud.Float64)
	}
	return r, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
