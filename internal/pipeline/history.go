package pipeline

import (
	"context"

	"datascrubber/internal/ledger"
	"datascrubber/internal/models"
)

// RunHistory is a ledger run with its unit outcomes.
type RunHistory struct {
	ledger.Run
	Results []models.UnitResult `json:"results"`
}

// History returns the most recent runs, newest first.
func (p *Pipeline) History(ctx context.Context, limit int) ([]RunHistory, error) {
	if p.ledger == nil {
		return nil, ErrNoLedger
	}

	runs, err := p.ledger.RecentRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	history := make([]RunHistory, 0, len(runs))

	for _, run := range runs {
		units, err := p.ledger.Units(ctx, run.ID)
		if err != nil {
			return nil, err
		}

		history = append(history, RunHistory{Run: run, Results: units})
	}

	return history, nil
}
