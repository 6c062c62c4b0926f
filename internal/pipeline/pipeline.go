// Package pipeline sequences ingestion, rule application and output writing over
// publisher and customer work units.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"datascrubber/internal/config"
	"datascrubber/internal/ingest"
	"datascrubber/internal/ledger"
	"datascrubber/internal/logger"
	"datascrubber/internal/models"
	"datascrubber/internal/normalizer"
	"datascrubber/internal/writer"
)

// Run modes recorded in the ledger.
const (
	ModeCleanPublisher = "clean-publisher"
	ModeCleanCustomer  = "clean-customer"
	ModeCleanAll       = "clean-all"
	ModeReadership     = "readership"
)

var (
	ErrNoProfile        = errors.New("no rule profile configured for publisher")
	ErrNoInputFiles     = errors.New("no input files")
	ErrNoPrecleanedFile = errors.New("no precleaned file")
	ErrNoCleanData      = errors.New("no clean data files")
	ErrNoLedger         = errors.New("run ledger not configured")
)

// Pipeline runs cleaning operations for one configuration.
type Pipeline struct {
	cfg       *config.Config
	logger    *logger.Logger
	reader    *ingest.Reader
	processor *normalizer.Processor
	writer    *writer.Writer
	ledger    *ledger.Ledger
	progress  io.Writer
	now       func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLedger records runs and unit outcomes in l.
func WithLedger(l *ledger.Ledger) Option {
	return func(p *Pipeline) { p.ledger = l }
}

// WithClock overrides the clock used for date stamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithProgress enables carriage-return progress lines on w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) { p.progress = w }
}

// New creates a pipeline.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*Pipeline, error) {
	if log == nil {
		log = logger.Discard()
	}

	w, err := writer.New(cfg.Cleaning.OutputFormat, log)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		logger:    log,
		reader:    ingest.NewReader(log),
		processor: normalizer.NewProcessor(log, cfg.Cleaning.Undisclosed),
		writer:    w,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.progress != nil {
		p.reader.WithProgress(func(done, total int, path string) {
			fmt.Fprintf(p.progress, "\rReading files: %d/%d %s", done, total, filepath.Base(path))

			if done == total {
				fmt.Fprintln(p.progress)
			}
		})
	}

	return p, nil
}

func (p *Pipeline) today() string {
	return p.cfg.Today(p.now())
}

func (p *Pipeline) workers() int {
	if p.cfg.Cleaning.Workers < 1 {
		return 1
	}

	return p.cfg.Cleaning.Workers
}

// runUnit times fn and classifies its error. Missing inputs mark the unit
// skipped rather than failed.
func (p *Pipeline) runUnit(unit models.WorkUnit, fn func(res *models.UnitResult) error) models.UnitResult {
	res := models.UnitResult{Unit: unit, StartedAt: p.now()}
	start := time.Now()

	err := fn(&res)
	res.Duration = time.Since(start)

	log := p.logger.With("unit", unit.String())

	switch {
	case err == nil:
		res.Status = models.UnitSucceeded
		log.Info("unit succeeded", "rows", res.RowsOut, "rejected", res.Rejected, "output", res.Output, "took", res.Duration)
	case errors.Is(err, ErrNoInputFiles) || errors.Is(err, ErrNoCleanData):
		res.Status = models.UnitSkipped
		res.Err = err
		res.Message = err.Error()
		log.Warn("unit skipped", "reason", err)
	default:
		res.Status = models.UnitFailed
		res.Err = err
		log.Error("unit failed", "error", err)
	}

	return res
}
