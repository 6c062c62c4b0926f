// Package rules implements the record-cleaning rules applied to publisher and
// customer tables, and the engine that runs them in order.
package rules

import (
	"context"
	"fmt"
	"time"

	"datascrubber/internal/logger"
	"datascrubber/internal/models"
)

// Rule transforms a table in place. Rejected counts rows removed because their
// values could not be interpreted, as opposed to rows filtered out on purpose.
type Rule interface {
	Name() string
	Apply(t *models.Table) (rejected int, err error)
}

type funcRule struct {
	name string
	fn   func(t *models.Table) (int, error)
}

func (r funcRule) Name() string { return r.name }

func (r funcRule) Apply(t *models.Table) (int, error) { return r.fn(t) }

// New wraps fn as a named rule.
func New(name string, fn func(t *models.Table) (int, error)) Rule {
	return funcRule{name: name, fn: fn}
}

// filterRule adapts a row predicate.
func filterRule(name string, keep func(models.Record) bool) Rule {
	return New(name, func(t *models.Table) (int, error) {
		t.Filter(keep)
		return 0, nil
	})
}

// Step is the outcome of one rule.
type Step struct {
	Rule     string        `json:"rule"`
	RowsIn   int           `json:"rowsIn"`
	RowsOut  int           `json:"rowsOut"`
	Rejected int           `json:"rejected"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes an engine run.
type Report struct {
	Steps    []Step `json:"steps"`
	RowsIn   int    `json:"rowsIn"`
	RowsOut  int    `json:"rowsOut"`
	Rejected int    `json:"rejected"`
}

// Engine runs rules in order.
type Engine struct {
	logger *logger.Logger
	rules  []Rule
}

// NewEngine creates an engine over rules.
func NewEngine(log *logger.Logger, rules ...Rule) *Engine {
	if log == nil {
		log = logger.Discard()
	}

	return &Engine{logger: log, rules: rules}
}

// Run applies every rule to t. It stops at the first failing rule or when ctx
// is cancelled.
func (e *Engine) Run(ctx context.Context, t *models.Table) (Report, error) {
	rep := Report{RowsIn: t.Len()}

	for _, r := range e.rules {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		start := time.Now()
		in := t.Len()

		rejected, err := r.Apply(t)
		if err != nil {
			return rep, fmt.Errorf("rule %s: %w", r.Name(), err)
		}

		step := Step{Rule: r.Name(), RowsIn: in, RowsOut: t.Len(), Rejected: rejected, Duration: time.Since(start)}
		rep.Steps = append(rep.Steps, step)
		rep.Rejected += rejected

		e.logger.Debug("rule applied", "rule", step.Rule, "in", step.RowsIn, "out", step.RowsOut, "rejected", rejected)
	}

	rep.RowsOut = t.Len()

	return rep, nil
}
