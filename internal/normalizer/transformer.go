package normalizer

import (
	"context"

	"datascrubber/internal/logger"
	"datascrubber/internal/models"
	"datascrubber/internal/rules"
)

// CustomerInput carries what the customer stage needs besides the table.
type CustomerInput struct {
	Clients       rules.ClientIndex
	Titles        rules.TitleIndex
	StockCode     string
	FirmFromEmail bool
}

// CustomerOutput is the result of the customer stage.
type CustomerOutput struct {
	Cleaned *models.Table
	Missing *models.Table
	Report  rules.Report
}

// Transformer handles the customer stage.
type Transformer struct {
	logger      *logger.Logger
	undisclosed string
}

// NewTransformer creates a new transformer instance.
func NewTransformer(log *logger.Logger, undisclosed string) *Transformer {
	return &Transformer{logger: log, undisclosed: undisclosed}
}

// Transform filters and enriches a copy of precleaned, splits off the rows
// missing from the client master, and projects the rest onto the dashboard
// schema.
func (t *Transformer) Transform(ctx context.Context, precleaned *models.Table, in CustomerInput) (*CustomerOutput, error) {
	tbl := precleaned.Clone()
	chain := rules.CustomerRules(in.StockCode, in.FirmFromEmail, in.Clients, in.Titles, t.undisclosed)

	rep, err := rules.NewEngine(t.logger, chain...).Run(ctx, tbl)
	if err != nil {
		return nil, err
	}

	missing := rules.MissingClients(tbl)
	tbl.Reindex(models.CleanedColumns, "")

	return &CustomerOutput{Cleaned: tbl, Missing: missing, Report: rep}, nil
}
