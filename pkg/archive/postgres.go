package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	// database/sql driver
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pkg/errors"

	"github.com/gridsense/ammbench/pkg/device"
	"github.com/gridsense/ammbench/pkg/sampler"
	"github.com/gridsense/ammbench/pkg/stats"
)

const createRunsTable = `
CREATE TABLE IF NOT EXISTS test_runs (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	status     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	config     JSONB NOT NULL,
	samples    JSONB NOT NULL,
	stats      JSONB
)`

// PostgresArchive persists runs in a single test_runs table, connecting
// through the pgx stdlib driver.
type PostgresArchive struct {
	db *sql.DB
}

// NewPostgresArchive opens a connection pool for the given postgres:// URI
// and ensures the runs table exists.
func NewPostgresArchive(uri string) (*PostgresArchive, error) {
	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, archiveError("open", err)
	}
	if _, err := db.Exec(createRunsTable); err != nil {
		db.Close()
		return nil, archiveError("open", errors.Wrap(err, "creating test_runs table"))
	}
	return &PostgresArchive{db: db}, nil
}

// Store inserts one finalized run.
func (a *PostgresArchive) Store(run *sampler.TestRun) error {
	if err := checkStorable(run); err != nil {
		return archiveError("store", err)
	}
	config, err := json.Marshal(run.Config)
	if err != nil {
		return archiveError("store", err)
	}
	samples, err := json.Marshal(run.Samples)
	if err != nil {
		return archiveError("store", err)
	}
	var snapshot []byte
	if run.Stats != nil {
		if snapshot, err = json.Marshal(run.Stats); err != nil {
			return archiveError("store", err)
		}
	}
	_, err = a.db.Exec(
		`INSERT INTO test_runs (id, kind, status, created_at, config, samples, stats)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.Kind), string(run.Status), run.CreatedAt, config, samples, snapshot)
	if err != nil {
		return archiveError("store", err)
	}
	return nil
}

const selectRun = `SELECT id, kind, status, created_at, config, samples, stats FROM test_runs`

// scanRun rebuilds a TestRun from one table row.
func scanRun(s interface {
	Scan(dest ...interface{}) error
}) (*sampler.TestRun, error) {
	var run sampler.TestRun
	var kind, status string
	var config, samples, snapshot []byte
	if err := s.Scan(&run.ID, &kind, &status, &run.CreatedAt, &config, &samples, &snapshot); err != nil {
		return nil, err
	}
	run.Kind, run.Status = device.Kind(kind), sampler.Status(status)
	if err := json.Unmarshal(config, &run.Config); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(samples, &run.Samples); err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		run.Stats = &stats.Snapshot{}
		if err := json.Unmarshal(snapshot, run.Stats); err != nil {
			return nil, err
		}
	}
	return &run, nil
}

// Get loads one run by ID.
func (a *PostgresArchive) Get(id string) (*sampler.TestRun, error) {
	row := a.db.QueryRow(selectRun+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, archiveError("get", err)
	}
	return run, nil
}

// Query streams matching runs most-recent-first; rows are fetched as the
// consumer reads the channel.
func (a *PostgresArchive) Query(ctx context.Context, f Filter) (<-chan *sampler.TestRun, error) {
	q := selectRun + ` WHERE 1=1`
	args := []interface{}{}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		q += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	if f.Interval != nil {
		args = append(args, f.Interval.Start())
		q += fmt.Sprintf(` AND created_at >= $%d`, len(args))
		args = append(args, f.Interval.End())
		q += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}
	q += ` ORDER BY created_at DESC`
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, archiveError("query", err)
	}
	out := make(chan *sampler.TestRun)
	go func() {
		defer close(out)
		defer rows.Close()
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				log.Printf("archive query: skipping row: %v", err)
				continue
			}
			select {
			case out <- run:
			case <-ctx.Done():
				return
			}
		}
		if err := rows.Err(); err != nil {
			log.Printf("archive query: %v", err)
		}
	}()
	return out, nil
}

// Close releases the connection pool.
func (a *PostgresArchive) Close() error {
	return a.db.Close()
}
