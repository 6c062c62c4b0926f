package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"datascrubber/internal/config"
	"datascrubber/internal/ingest"
	"datascrubber/internal/master"
	"datascrubber/internal/models"
	"datascrubber/internal/normalizer"
	"datascrubber/pkg/fingerprint"
)

// precleaned is the latest precleaned file of a publisher, shared read-only by
// its customer units.
type precleaned struct {
	publisher string
	profile   *config.PublisherProfile
	table     *models.Table
	path      string
}

// CleanCustomer derives one customer's clean data from the latest precleaned
// file of publisher.
func (p *Pipeline) CleanCustomer(ctx context.Context, publisher, customer string) (*BatchReport, error) {
	rep := p.begin(ctx, ModeCleanCustomer)

	m, err := master.Load(p.cfg)
	if err != nil {
		return rep, p.end(ctx, rep, err)
	}

	clients, err := p.loadClients()
	if err != nil {
		return rep, p.end(ctx, rep, err)
	}

	pre, err := p.loadPrecleaned(publisher)
	if err != nil {
		return rep, p.end(ctx, rep, err)
	}

	res := p.cleanCustomer(ctx, m, clients, pre, customer)
	p.record(ctx, rep, res)

	return rep, p.end(ctx, rep, res.Err)
}

func (p *Pipeline) loadClients() (*master.Clients, error) {
	clients, err := master.LoadClients(p.cfg.ClientsPath())
	if err != nil {
		return nil, err
	}

	p.logger.Debug("loaded client master", "clients", clients.String())

	return clients, nil
}

func (p *Pipeline) loadPrecleaned(publisher string) (*precleaned, error) {
	profile, ok := p.cfg.Profile(publisher)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProfile, publisher)
	}

	paths, err := p.listOutputs(p.cfg.PrecleanedPath(publisher), ErrNoPrecleanedFile)
	if err != nil {
		return nil, err
	}

	// Names start with the date, so the last one is the newest.
	path := paths[len(paths)-1]

	tbl, _, err := ingest.NewReader(p.logger).ReadFile(path, ingest.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to read precleaned file: %w", err)
	}

	p.logger.Debug("loaded precleaned file", "publisher", publisher, "file", filepath.Base(path), "rows", tbl.Len())

	return &precleaned{publisher: publisher, profile: profile, table: tbl, path: path}, nil
}

func (p *Pipeline) cleanCustomer(ctx context.Context, m *master.Data, clients *master.Clients, pre *precleaned, customer string) models.UnitResult {
	unit := models.WorkUnit{Stage: models.StageCustomer, Publisher: pre.publisher, Customer: customer}

	return p.runUnit(unit, func(res *models.UnitResult) error {
		entry, err := m.Customer(customer)
		if err != nil {
			return err
		}

		titlesPath := p.cfg.TitlesFile(customer)

		titles, err := master.LoadTitles(titlesPath)
		if err != nil {
			return err
		}

		if res.InputHash, err = fingerprint.Files([]string{pre.path, clients.Source, titlesPath}); err != nil {
			return err
		}

		res.RowsIn = pre.table.Len()

		out, err := p.processor.Customer(ctx, pre.table, normalizer.CustomerInput{
			Clients:       clients,
			Titles:        titles,
			StockCode:     entry.StockCode,
			FirmFromEmail: pre.profile.FirmFromEmailDomain,
		})
		if err != nil {
			return err
		}

		res.Rejected = out.Report.Rejected
		res.RowsOut = out.Cleaned.Len()

		missingPath := filepath.Join(p.cfg.MissingClientsPath(), p.writer.MissingClientsName(customer))

		total, err := p.writer.MergeMissingClients(missingPath, out.Missing)
		if err != nil {
			return err
		}

		if out.Missing.Len() > 0 {
			res.Message = fmt.Sprintf("%d missing clients (%d on file)", out.Missing.Len(), total)
		}

		res.Output = filepath.Join(p.cfg.CleanDataPath(customer), p.writer.CleanDataName(customer, pre.publisher))

		return p.writer.Write(res.Output, out.Cleaned, res.InputHash)
	})
}
