// Package storage persists intensity results in sqlite or postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/seismic-intensity/internal/config"
	"github.com/couchcryptid/seismic-intensity/internal/domain"
)

// Store writes result sets to a SQL database. It implements
// pipeline.BatchLoader.
type Store struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	name    string
	schema  []string
	insert  string
	listSQL string
}

var sqliteDialect = dialect{
	name: config.StorageSQLite,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS intensity_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			station_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			start_time TEXT,
			status TEXT NOT NULL,
			combined_pga REAL,
			combined_pgv REAL,
			intensity_value REAL,
			intensity_class REAL,
			out_of_range INTEGER NOT NULL,
			error_kind TEXT,
			error_detail TEXT,
			result_json TEXT NOT NULL,
			processed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intensity_results_batch ON intensity_results(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_intensity_results_station ON intensity_results(station_id, start_time)`,
	},
	insert: `INSERT INTO intensity_results (batch_id, station_id, event_id, start_time, status,
		combined_pga, combined_pgv, intensity_value, intensity_class, out_of_range,
		error_kind, error_detail, result_json, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	listSQL: `SELECT result_json FROM intensity_results WHERE batch_id = ? ORDER BY id`,
}

var postgresDialect = dialect{
	name: config.StoragePostgres,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS intensity_results (
			id BIGSERIAL PRIMARY KEY,
			batch_id TEXT NOT NULL,
			station_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			start_time TIMESTAMPTZ,
			status TEXT NOT NULL,
			combined_pga DOUBLE PRECISION,
			combined_pgv DOUBLE PRECISION,
			intensity_value DOUBLE PRECISION,
			intensity_class DOUBLE PRECISION,
			out_of_range BOOLEAN NOT NULL,
			error_kind TEXT,
			error_detail TEXT,
			result_json JSONB NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_intensity_results_batch ON intensity_results(batch_id)`,
		`CREATE INDEX IF NOT EXISTS idx_intensity_results_station ON intensity_results(station_id, start_time)`,
	},
	insert: `INSERT INTO intensity_results (batch_id, station_id, event_id, start_time, status,
		combined_pga, combined_pgv, intensity_value, intensity_class, out_of_range,
		error_kind, error_detail, result_json, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
	listSQL: `SELECT result_json FROM intensity_results WHERE batch_id = $1 ORDER BY id`,
}

// Open connects to the configured driver. It does not create tables; call
// Init for that.
func Open(driver, dsn string) (*Store, error) {
	switch strings.ToLower(driver) {
	case config.StorageSQLite:
		if strings.TrimSpace(dsn) == "" {
			dsn = "file:intensity.db?_pragma=busy_timeout(5000)"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, err
		}
		// A single connection keeps :memory: databases and write locking sane.
		db.SetMaxOpenConns(1)
		return &Store{db: db, dialect: sqliteDialect}, nil
	case config.StoragePostgres, "postgresql":
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres storage requires a DSN")
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, err
		}
		return &Store{db: db, dialect: postgresDialect}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// Init creates the results table if it does not exist.
func (s *Store) Init(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s schema: %w", s.dialect.name, err)
		}
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadBatch saves the batch's results.
func (s *Store) LoadBatch(ctx context.Context, batch *domain.Batch) error {
	return s.SaveResults(ctx, batch.ID, batch.Results)
}

// SaveResults inserts results in one transaction, in the given order.
func (s *Store) SaveResults(ctx context.Context, batchID string, results []domain.IntensityResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.dialect.insert)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range results {
		doc, err := json.Marshal(r)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode result %s: %w", r.Key(), err)
		}
		var computed [4]any
		if r.Computed() {
			computed = [4]any{r.CombinedPGA, r.CombinedPGV, r.IntensityValue, r.IntensityClass}
		}
		if _, err := stmt.ExecContext(ctx,
			batchID,
			r.StationID,
			r.EventID,
			nullTime(r.StartTime),
			string(r.Status),
			computed[0], computed[1], computed[2], computed[3],
			r.OutOfRange,
			nullString(string(r.ErrorKind)),
			nullString(r.ErrorDetail),
			string(doc),
			r.ProcessedAt.UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert result %s: %w", r.Key(), err)
		}
	}
	return tx.Commit()
}

// Results returns the stored results of a batch in insertion order.
func (s *Store) Results(ctx context.Context, batchID string) ([]domain.IntensityResult, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listSQL, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IntensityResult
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var r domain.IntensityResult
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode stored result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
