package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"datascrubber/internal/models"
)

// BatchReport collects the unit outcomes of one run.
type BatchReport struct {
	StartedAt time.Time           `json:"startedAt"`
	RunID     string              `json:"runId,omitempty"`
	Mode      string              `json:"mode"`
	Results   []models.UnitResult `json:"results"`
	Duration  time.Duration       `json:"duration"`
	mu        sync.Mutex
}

// Count returns the number of units with status.
func (b *BatchReport) Count(status models.UnitStatus) int {
	n := 0

	for _, r := range b.Results {
		if r.Status == status {
			n++
		}
	}

	return n
}

// Err joins the errors of failed units.
func (b *BatchReport) Err() error {
	var errs []error

	for _, r := range b.Results {
		if r.Status == models.UnitFailed {
			errs = append(errs, fmt.Errorf("%s: %w", r.Unit, r.Err))
		}
	}

	return errors.Join(errs...)
}

// begin opens a run in the ledger, if one is configured.
func (p *Pipeline) begin(ctx context.Context, mode string) *BatchReport {
	rep := &BatchReport{Mode: mode, StartedAt: p.now()}

	if p.ledger != nil {
		id, err := p.ledger.StartRun(ctx, mode)
		if err != nil {
			p.logger.Warn("ledger unavailable", "error", err)
		}

		rep.RunID = id
	}

	return rep
}

// record appends res to rep and the ledger. Safe for concurrent use.
func (p *Pipeline) record(ctx context.Context, rep *BatchReport, res models.UnitResult) {
	rep.mu.Lock()
	rep.Results = append(rep.Results, res)
	rep.mu.Unlock()

	if p.ledger != nil && rep.RunID != "" {
		if err := p.ledger.RecordUnit(context.WithoutCancel(ctx), rep.RunID, res); err != nil {
			p.logger.Warn("failed to record unit", "unit", res.Unit.String(), "error", err)
		}
	}
}

// end closes the run with err and returns it.
func (p *Pipeline) end(ctx context.Context, rep *BatchReport, err error) error {
	rep.Duration = p.now().Sub(rep.StartedAt)

	if p.ledger != nil && rep.RunID != "" {
		if lerr := p.ledger.FinishRun(context.WithoutCancel(ctx), rep.RunID, err); lerr != nil {
			p.logger.Warn("failed to finish run", "error", lerr)
		}
	}

	return err
}
