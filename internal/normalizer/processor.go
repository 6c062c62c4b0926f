// Package normalizer turns ingested tables into precleaned publisher files and
// cleaned customer files.
package normalizer

import (
	"context"
	"fmt"

	"datascrubber/internal/logger"
	"datascrubber/internal/models"
	"datascrubber/internal/rules"
)

// Processor handles data processing and transformation.
type Processor struct {
	validator   *Validator
	transformer *Transformer
	logger      *logger.Logger
}

// NewProcessor creates a new processor instance.
func NewProcessor(log *logger.Logger, undisclosed string) *Processor {
	if log == nil {
		log = logger.Discard()
	}

	return &Processor{
		validator:   NewValidator(undisclosed),
		transformer: NewTransformer(log, undisclosed),
		logger:      log,
	}
}

// Preclean runs a publisher rule chain over raw and validates the result
// against the precleaned schema.
func (p *Processor) Preclean(ctx context.Context, raw *models.Table, chain []rules.Rule) (rules.Report, error) {
	// 1. Apply the publisher rules
	rep, err := rules.NewEngine(p.logger, chain...).Run(ctx, raw)
	if err != nil {
		return rep, fmt.Errorf("preclean failed: %w", err)
	}

	// 2. Validate the standardized table
	if err := p.validator.ValidatePrecleaned(raw); err != nil {
		return rep, fmt.Errorf("validation failed: %w", err)
	}

	return rep, nil
}

// Customer derives a customer's clean data and missing clients from a
// precleaned table.
func (p *Processor) Customer(ctx context.Context, precleaned *models.Table, in CustomerInput) (*CustomerOutput, error) {
	if err := precleaned.Require(models.PrecleanedColumns...); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	out, err := p.transformer.Transform(ctx, precleaned, in)
	if err != nil {
		return nil, fmt.Errorf("transformation failed: %w", err)
	}

	if err := p.validator.ValidateCleaned(out.Cleaned); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return out, nil
}
