package rules

import (
	"fmt"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
)

// Masters are the mapping tables publisher rules depend on.
type Masters struct {
	Countries map[string]string
	Cities    map[string]string
}

// PublisherRules builds the rule chain for a publisher profile in stage order.
// Stages the profile leaves empty are omitted, except standardize, country and
// city which always run.
func PublisherRules(p *config.PublisherProfile, cleaning config.CleaningConfig, m Masters) ([]Rule, error) {
	var chain []Rule

	if p.RepeatColumn != "" {
		chain = append(chain, Repeat(p.RepeatColumn))
	}

	if len(p.Coalesce) > 0 {
		chain = append(chain, Coalesce(p.Coalesce))
	}

	if len(p.Concat) > 0 {
		chain = append(chain, Concat(p.Concat))
	}

	if len(p.Require) > 0 || len(p.GreaterThan) > 0 {
		chain = append(chain, Require(p.Require, p.GreaterThan))
	}

	if len(p.Copy) > 0 {
		chain = append(chain, Copy(p.Copy))
	}

	if len(p.Keep) > 0 {
		chain = append(chain, Keep(p.Keep))
	}

	if len(p.Rename) > 0 {
		chain = append(chain, Rename(p.Rename))
	}

	if hasExclusions(p.Exclude) {
		chain = append(chain, Exclude(p.Exclude))
	}

	if p.DropIncomplete {
		chain = append(chain, DropIncomplete())
	}

	if p.TitleRewrite != nil {
		tr, err := NewTitleRewriter(p.TitleRewrite)
		if err != nil {
			return nil, fmt.Errorf("title_rewrite: %w", err)
		}

		chain = append(chain, tr.Rule())
	}

	if p.PrimaryEmail {
		chain = append(chain, PrimaryEmail())
	}

	if consts := constants(p); len(consts) > 0 {
		chain = append(chain, Constants(consts))
	}

	if len(p.Dates.Columns) > 0 {
		chain = append(chain, Dates(p.Dates))
	}

	chain = append(chain,
		Standardize(cleaning.Undisclosed, cleaning.MaskTokens, p.Dedupe),
		Country(m.Countries, cleaning.Undisclosed),
		City(m.Cities, cleaning.Undisclosed),
	)

	return chain, nil
}

// CustomerRules builds the customer-stage chain: optional firm derivation,
// stock-code filter, client enrichment, then title shortening.
func CustomerRules(stockCode string, firmFromEmail bool, clients ClientIndex, titles TitleIndex, undisclosed string) []Rule {
	var chain []Rule

	if firmFromEmail {
		chain = append(chain, FirmFromEmail(clients, undisclosed))
	}

	return append(chain,
		StockCode(stockCode),
		ClientProfile(clients, undisclosed),
		ClientLocation(clients, undisclosed),
		ShortTitle(titles),
	)
}

func constants(p *config.PublisherProfile) map[string]string {
	out := make(map[string]string, len(p.Constants)+1)
	for k, v := range p.Constants {
		out[k] = v
	}

	if p.Platform != "" {
		out[models.ColPlatform] = p.Platform
	}

	return out
}

func hasExclusions(ex config.ExcludeRules) bool {
	return len(ex.FirmContains) > 0 || len(ex.EmailSuffixes) > 0 || len(ex.Emails) > 0 ||
		len(ex.TitleContains) > 0 || len(ex.Titles) > 0 || len(ex.ColumnContains) > 0
}
