package rules

import (
	"strings"
	"time"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
)

// ParseDate tries layouts in order and renders the first match as YYYY-MM-DD.
func ParseDate(value string, layouts []string) (string, bool) {
	value = strings.TrimSpace(value)

	for _, layout := range layouts {
		if tm, err := time.Parse(layout, value); err == nil {
			return tm.Format(config.DefaultDateLayoutOut), true
		}
	}

	return "", false
}

// Dates converts columns to ISO dates. A row with any unparseable date is
// rejected.
func Dates(rules config.DateRules) Rule {
	return New("dates", func(t *models.Table) (int, error) {
		if err := t.Require(rules.Columns...); err != nil {
			return 0, err
		}

		out := t.Records[:0]
		rejected := 0

	rows:
		for _, rec := range t.Records {
			for _, col := range rules.Columns {
				d, ok := ParseDate(rec[col], rules.Layouts)
				if !ok {
					rejected++
					continue rows
				}

				rec[col] = d
			}

			out = append(out, rec)
		}

		t.Records = out

		return rejected, nil
	})
}
