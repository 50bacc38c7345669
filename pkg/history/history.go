// Package history records skill calls and workflow runs in the local SQLite
// database. History is informational; callers log and ignore write failures.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/db"
	"github.com/jingkaihe/skillet/pkg/db/migrations"
)

// Kind of a recorded run.
type Kind string

const (
	KindSkill    Kind = "skill"
	KindWorkflow Kind = "workflow"
)

// Status of a recorded run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is one history row.
type Run struct {
	ID          string    `db:"id" json:"id" yaml:"id"`
	Kind        Kind      `db:"kind" json:"kind" yaml:"kind"`
	Name        string    `db:"name" json:"name" yaml:"name"`
	Status      Status    `db:"status" json:"status" yaml:"status"`
	Provider    string    `db:"provider" json:"provider,omitempty" yaml:"provider,omitempty"`
	Model       string    `db:"model" json:"model,omitempty" yaml:"model,omitempty"`
	InputChars  int       `db:"input_chars" json:"input_chars" yaml:"input_chars"`
	OutputChars int       `db:"output_chars" json:"output_chars" yaml:"output_chars"`
	DurationMS  int64     `db:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
	Error       string    `db:"error" json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt   time.Time `db:"started_at" json:"started_at" yaml:"started_at"`
}

// Duration returns the run duration.
func (r Run) Duration() time.Duration {
	return time.Duration(r.DurationMS) * time.Millisecond
}

// Recorder is what the executor and engine depend on.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// Store persists runs.
type Store struct {
	db *sqlx.DB
}

// Open opens the history database at path, migrating it if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := db.Open(ctx, path, migrations.All()...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}
	return &Store{db: sqlDB}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts run, assigning an ID and start time when missing.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	run.StartedAt = run.StartedAt.UTC()

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, kind, name, status, provider, model, input_chars, output_chars, duration_ms, error, started_at)
		VALUES (:id, :kind, :name, :status, :provider, :model, :input_chars, :output_chars, :duration_ms, :error, :started_at)
	`, run)
	return errors.Wrap(err, "failed to record run")
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, kind, name, status, provider, model, input_chars, output_chars, duration_ms, error, started_at
		FROM runs ORDER BY started_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	return runs, nil
}

// Summary aggregates run counts by status.
type Summary struct {
	Total     int        `json:"total" yaml:"total"`
	Succeeded int        `json:"succeeded" yaml:"succeeded"`
	Failed    int        `json:"failed" yaml:"failed"`
	LastRun   *time.Time `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// Summarize counts runs by status.
func (s *Store) Summarize(ctx context.Context) (*Summary, error) {
	var rows []struct {
		Status Status `db:"status"`
		Count  int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, "SELECT status, COUNT(*) AS count FROM runs GROUP BY status"); err != nil {
		return nil, errors.Wrap(err, "failed to summarize runs")
	}

	summary := &Summary{}
	for _, row := range rows {
		summary.Total += row.Count
		switch row.Status {
		case StatusSucceeded:
			summary.Succeeded = row.Count
		case StatusFailed:
			summary.Failed = row.Count
		}
	}

	if summary.Total > 0 {
		var last Run
		if err := s.db.GetContext(ctx, &last, "SELECT * FROM runs ORDER BY started_at DESC LIMIT 1"); err != nil {
			return nil, errors.Wrap(err, "failed to read latest run")
		}
		summary.LastRun = &last.StartedAt
	}
	return summary, nil
}
