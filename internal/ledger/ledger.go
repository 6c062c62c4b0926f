// Package ledger persists run and work-unit outcomes in a local sqlite database.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"datascrubber/internal/models"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL,
	error       TEXT
);
CREATE TABLE IF NOT EXISTS units (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	seq         INTEGER NOT NULL,
	stage       TEXT NOT NULL,
	publisher   TEXT,
	customer    TEXT,
	status      TEXT NOT NULL,
	rows_in     INTEGER NOT NULL,
	rows_out    INTEGER NOT NULL,
	rejected    INTEGER NOT NULL,
	output      TEXT,
	input_hash  TEXT,
	message     TEXT,
	error       TEXT,
	started_at  TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one CLI invocation.
type Run struct {
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Units      int       `json:"units"`
	Failed     int       `json:"failed"`
}

// Ledger is the run history store.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the ledger at path.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Concurrent unit workers share one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	return &Ledger{db: db, now: time.Now}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun records a new run and returns its id.
func (l *Ledger) StartRun(ctx context.Context, mode string) (string, error) {
	id := uuid.NewString()

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, mode, started_at, status) VALUES (?, ?, ?, ?)`,
		id, mode, formatTime(l.now()), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}

	return id, nil
}

// RecordUnit appends a unit outcome to run.
func (l *Ledger) RecordUnit(ctx context.Context, runID string, r models.UnitResult) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO units (run_id, seq, stage, publisher, customer, status, rows_in, rows_out, rejected,
			output, input_hash, message, error, started_at, duration_ns)
		VALUES (?, (SELECT COUNT(*) FROM units WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, runID, string(r.Unit.Stage), r.Unit.Publisher, r.Unit.Customer, string(r.Status),
		r.RowsIn, r.RowsOut, r.Rejected, r.Output, r.InputHash, r.Message, r.Error(),
		formatTime(r.StartedAt), int64(r.Duration))
	if err != nil {
		return fmt.Errorf("failed to record unit %s: %w", r.Unit, err)
	}

	return nil
}

// FinishRun closes run with the outcome of runErr.
func (l *Ledger) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		formatTime(l.now()), status, msg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (l *Ledger) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT r.id, r.mode, r.started_at, COALESCE(r.finished_at, ''), r.status, COALESCE(r.error, ''),
			(SELECT COUNT(*) FROM units u WHERE u.run_id = r.id),
			(SELECT COUNT(*) FROM units u WHERE u.run_id = r.id AND u.status = ?)
		FROM runs r
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, string(models.UnitFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run

	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)

		if err := rows.Scan(&r.ID, &r.Mode, &started, &finished, &r.Status, &r.Error, &r.Units, &r.Failed); err != nil {
			return nil, err
		}

		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Units returns the unit outcomes of run in recording order.
func (l *Ledger) Units(ctx context.Context, runID string) ([]models.UnitResult, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT stage, COALESCE(publisher, ''), COALESCE(customer, ''), status, rows_in, rows_out, rejected,
			COALESCE(output, ''), COALESCE(input_hash, ''), COALESCE(message, ''), COALESCE(error, ''),
			started_at, duration_ns
		FROM units WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var out []models.UnitResult

	for rows.Next() {
		var (
			r                     models.UnitResult
			stage, status, errMsg string
			started               string
			duration              int64
		)

		if err := rows.Scan(&stage, &r.Unit.Publisher, &r.Unit.Customer, &status, &r.RowsIn, &r.RowsOut, &r.Rejected,
			&r.Output, &r.InputHash, &r.Message, &errMsg, &started, &duration); err != nil {
			return nil, err
		}

		r.Unit.Stage = models.Stage(stage)
		r.Status = models.UnitStatus(status)
		r.StartedAt = parseTime(started)
		r.Duration = time.Duration(duration)

		if errMsg != "" {
			r.Err = errors.New(errMsg)
		}

		out = append(out, r)
	}

	return out, rows.Err()
}

// timeLayout is fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
