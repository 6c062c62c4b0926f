package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"datascrubber/internal/ingest"
	"datascrubber/internal/master"
	"datascrubber/internal/models"
	"datascrubber/pkg/fingerprint"
)

// CreateReadership merges each customer's clean data files into one readership
// file sorted by Read Date. Customers without clean data are skipped.
func (p *Pipeline) CreateReadership(ctx context.Context) (*BatchReport, error) {
	rep := p.begin(ctx, ModeReadership)

	m, err := master.Load(p.cfg)
	if err != nil {
		return rep, p.end(ctx, rep, err)
	}

	p.fanOut(ctx, rep, "Creating readership", m.CustomerNames(), func(customer string) models.UnitResult {
		return p.readership(ctx, customer)
	})

	return rep, p.end(ctx, rep, errors.Join(rep.Err(), ctx.Err()))
}

func (p *Pipeline) readership(ctx context.Context, customer string) models.UnitResult {
	unit := models.WorkUnit{Stage: models.StageReadership, Customer: customer}

	return p.runUnit(unit, func(res *models.UnitResult) error {
		paths, err := p.listOutputs(p.cfg.CleanDataPath(customer), ErrNoCleanData)
		if err != nil {
			return err
		}

		if res.InputHash, err = fingerprint.Files(paths); err != nil {
			return err
		}

		tbl, _, err := ingest.NewReader(p.logger).ReadFiles(ctx, paths, ingest.Options{})
		if err != nil {
			return err
		}

		res.RowsIn = tbl.Len()

		tbl.SortBy(models.ColReadDate, false)
		tbl.DropColumn(models.ColReportTitle)
		tbl.SetColumn(models.ColUpdatedOn, p.today())

		res.RowsOut = tbl.Len()
		res.Output = filepath.Join(p.cfg.CustomerPath(customer), p.writer.ReadershipName(customer))

		return p.writer.Write(res.Output, tbl, res.InputHash)
	})
}
