package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"datascrubber/internal/master"
	"datascrubber/internal/models"
)

// CleanAll precleans every publisher in master order and then cleans each of
// its customers. Publishers without input files are skipped along with their
// customers. Unit failures are recorded and joined into the returned error.
func (p *Pipeline) CleanAll(ctx context.Context) (*BatchReport, error) {
	rep := p.begin(ctx, ModeCleanAll)

	m, err := master.Load(p.cfg)
	if err != nil {
		return rep, p.end(ctx, rep, err)
	}

	var (
		clients    *master.Clients
		clientsErr error
	)

	customers := m.CustomerNames()

	for _, publisher := range m.PublisherNames() {
		if ctx.Err() != nil || p.stopped(rep) {
			break
		}

		res := p.cleanPublisher(ctx, m, publisher)
		p.record(ctx, rep, res)

		if res.Status != models.UnitSucceeded {
			continue
		}

		if clients == nil && clientsErr == nil {
			clients, clientsErr = p.loadClients()
		}

		pre, preErr := p.loadPrecleaned(publisher)

		p.fanOut(ctx, rep, "Cleaning "+publisher, customers, func(customer string) models.UnitResult {
			if loadErr := errors.Join(clientsErr, preErr); loadErr != nil {
				unit := models.WorkUnit{Stage: models.StageCustomer, Publisher: publisher, Customer: customer}
				return p.runUnit(unit, func(*models.UnitResult) error { return loadErr })
			}

			return p.cleanCustomer(ctx, m, clients, pre, customer)
		})
	}

	if ctx.Err() == nil && !p.stopped(rep) {
		p.record(ctx, rep, p.combineMissingClients())
	}

	return rep, p.end(ctx, rep, errors.Join(rep.Err(), ctx.Err()))
}

func (p *Pipeline) combineMissingClients() models.UnitResult {
	return p.runUnit(models.WorkUnit{Stage: models.StageMissingClients}, func(res *models.UnitResult) error {
		path, rows, err := p.writer.CombineMissingClients(p.cfg.MissingClientsPath())
		if err != nil {
			return err
		}

		res.Output = path
		res.RowsOut = rows

		if path == "" {
			res.Message = "no missing clients"
		}

		return nil
	})
}

// stopped reports whether fail_fast is set and a unit has failed.
func (p *Pipeline) stopped(rep *BatchReport) bool {
	if !p.cfg.Cleaning.FailFast {
		return false
	}

	rep.mu.Lock()
	defer rep.mu.Unlock()

	for _, r := range rep.Results {
		if r.Status == models.UnitFailed {
			return true
		}
	}

	return false
}

// fanOut runs fn for every item with at most cleaning.workers in flight and
// records the results in item order. Cancellation and fail_fast stop
// scheduling; running units finish.
func (p *Pipeline) fanOut(ctx context.Context, rep *BatchReport, label string, items []string, fn func(string) models.UnitResult) {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		sem     = make(chan struct{}, p.workers())
		results = make([]*models.UnitResult, len(items))
		failed  bool
	)

	bar := p.newProgress(label, len(items))

schedule:
	for i, item := range items {
		if ctx.Err() != nil {
			break
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break schedule
		}

		mu.Lock()
		stop := failed && p.cfg.Cleaning.FailFast
		mu.Unlock()

		if stop {
			<-sem
			break
		}

		wg.Add(1)

		go func(idx int, val string) {
			defer wg.Done()
			defer func() { <-sem }()

			res := fn(val)

			mu.Lock()
			defer mu.Unlock()

			results[idx] = &res
			if res.Status == models.UnitFailed {
				failed = true
			}

			bar.step()
		}(i, item)
	}

	wg.Wait()
	bar.done()

	scheduled := 0

	for _, res := range results {
		if res != nil {
			p.record(ctx, rep, *res)
			scheduled++
		}
	}

	if scheduled < len(items) {
		p.logger.Warn(fmt.Sprintf("%s stopped early", label), "scheduled", scheduled, "total", len(items))
	}
}
