package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datascrubber/internal/config"
	"datascrubber/internal/ingest"
	"datascrubber/internal/master"
	"datascrubber/internal/models"
	"datascrubber/internal/rules"
	"datascrubber/pkg/fingerprint"
)

// CleanPublisher precleans every raw file of publisher into one standard file.
func (p *Pipeline) CleanPublisher(ctx context.Context, publisher string) (*BatchReport, error) {
	rep := p.begin(ctx, ModeCleanPublisher)

	m, err := master.Load(p.cfg)
	if err != nil {
		return rep, p.end(ctx, rep, err)
	}

	res := p.cleanPublisher(ctx, m, publisher)
	p.record(ctx, rep, res)

	return rep, p.end(ctx, rep, res.Err)
}

func (p *Pipeline) cleanPublisher(ctx context.Context, m *master.Data, publisher string) models.UnitResult {
	unit := models.WorkUnit{Stage: models.StagePreclean, Publisher: publisher}

	return p.runUnit(unit, func(res *models.UnitResult) error {
		entry, err := m.Publisher(publisher)
		if err != nil {
			return err
		}

		profile, ok := p.cfg.Profile(publisher)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoProfile, publisher)
		}

		paths, err := listInputs(p.cfg.UncleanedPath(publisher), ErrNoInputFiles)
		if err != nil {
			return err
		}

		if res.InputHash, err = fingerprint.Files(paths); err != nil {
			return err
		}

		raw, _, err := p.reader.ReadFiles(ctx, paths, readOptions(entry, profile))
		if err != nil {
			return err
		}

		res.RowsIn = raw.Len()

		chain, err := rules.PublisherRules(profile, p.cfg.Cleaning, rules.Masters{
			Countries: m.Countries,
			Cities:    m.Cities,
		})
		if err != nil {
			return err
		}

		report, err := p.processor.Preclean(ctx, raw, chain)
		if err != nil {
			return err
		}

		res.Rejected = report.Rejected
		res.RowsOut = raw.Len()
		res.Output = filepath.Join(p.cfg.PrecleanedPath(publisher), p.writer.PrecleanedName(p.today(), publisher))

		return p.writer.Write(res.Output, raw, res.InputHash)
	})
}

// readOptions merges the publisher master entry with profile overrides.
func readOptions(entry models.Publisher, profile *config.PublisherProfile) ingest.Options {
	opts := ingest.Options{
		Header:      entry.Header,
		Footer:      entry.Footer,
		ColumnNames: profile.ColumnNames,
		Headerless:  profile.Headerless,
	}

	if profile.Header != nil {
		opts.Header = *profile.Header
	}

	if profile.Footer != nil {
		opts.Footer = *profile.Footer
	}

	return opts
}

// listInputs lists dir, reporting none when it is missing or holds no
// supported files.
func listInputs(dir string, none error) ([]string, error) {
	paths, err := ingest.ListFiles(dir)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(paths) == 0) {
		return nil, fmt.Errorf("%w in %s", none, dir)
	}

	return paths, err
}

// listOutputs lists files this pipeline wrote to dir, ignoring ones left over
// from another output format.
func (p *Pipeline) listOutputs(dir string, none error) ([]string, error) {
	paths, err := listInputs(dir, none)
	if err != nil {
		return nil, err
	}

	ext := p.writer.Ext()
	out := paths[:0]

	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ext) {
			out = append(out, path)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s (no %s files)", none, dir, ext)
	}

	return out, nil
}
