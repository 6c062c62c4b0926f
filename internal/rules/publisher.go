package rules

import (
	"sort"
	"strings"

	"github.com/spf13/cast"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
	"datascrubber/pkg/utils"
)

var strs = utils.NewStringHelper()

func isEmpty(v string) bool {
	return strings.TrimSpace(v) == ""
}

// sortedKeys gives map-driven rules a stable order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Repeat emits each row N times, N read from column. Rows whose count is not a
// number are rejected; a count of zero drops the row.
func Repeat(column string) Rule {
	return New("repeat", func(t *models.Table) (int, error) {
		if err := t.Require(column); err != nil {
			return 0, err
		}

		out := make([]models.Record, 0, len(t.Records))
		rejected := 0

		for _, rec := range t.Records {
			n, err := cast.ToFloat64E(strings.TrimSpace(rec[column]))
			if err != nil {
				rejected++
				continue
			}

			for i := 0; i < int(n); i++ {
				out = append(out, rec.Clone())
			}
		}

		t.Records = out

		return rejected, nil
	})
}

// Coalesce fills empty target values from a fallback column. The map is keyed
// by target.
func Coalesce(pairs map[string]string) Rule {
	return New("coalesce", func(t *models.Table) (int, error) {
		for _, target := range sortedKeys(pairs) {
			fallback := pairs[target]
			if err := t.Require(fallback); err != nil {
				return 0, err
			}

			t.AddColumn(target, "")

			for _, rec := range t.Records {
				if isEmpty(rec[target]) {
					rec[target] = rec[fallback]
				}
			}
		}

		return 0, nil
	})
}

// Concat joins the non-empty source values of each rule into its target.
func Concat(rules []config.ConcatRule) Rule {
	return New("concat", func(t *models.Table) (int, error) {
		for _, cr := range rules {
			if err := t.Require(cr.Sources...); err != nil {
				return 0, err
			}

			t.AddColumn(cr.Target, "")

			for _, rec := range t.Records {
				parts := make([]string, 0, len(cr.Sources))

				for _, s := range cr.Sources {
					if v := strings.TrimSpace(rec[s]); v != "" {
						parts = append(parts, v)
					}
				}

				rec[cr.Target] = strings.Join(parts, cr.Separator)
			}
		}

		return 0, nil
	})
}

// Require keeps rows whose column equals the configured value, and rows whose
// numeric column exceeds the configured threshold.
func Require(equals map[string]string, greater map[string]float64) Rule {
	return New("require", func(t *models.Table) (int, error) {
		if err := t.Require(sortedKeys(equals)...); err != nil {
			return 0, err
		}

		if err := t.Require(sortedKeys(greater)...); err != nil {
			return 0, err
		}

		t.Filter(func(rec models.Record) bool {
			for col, want := range equals {
				if strings.TrimSpace(rec[col]) != want {
					return false
				}
			}

			for col, min := range greater {
				v, err := cast.ToFloat64E(strings.TrimSpace(rec[col]))
				if err != nil || v <= min {
					return false
				}
			}

			return true
		})

		return 0, nil
	})
}

// Copy creates columns from existing ones. The map is keyed by the new column.
func Copy(pairs map[string]string) Rule {
	return New("copy", func(t *models.Table) (int, error) {
		for _, dst := range sortedKeys(pairs) {
			src := pairs[dst]
			if err := t.Require(src); err != nil {
				return 0, err
			}

			if !t.HasColumn(dst) {
				t.Columns = append(t.Columns, dst)
			}

			for _, rec := range t.Records {
				rec[dst] = rec[src]
			}
		}

		return 0, nil
	})
}

// Keep restricts the table to columns, in that order.
func Keep(columns []string) Rule {
	return New("keep", func(t *models.Table) (int, error) {
		if err := t.Require(columns...); err != nil {
			return 0, err
		}

		t.Reindex(columns, "")

		return 0, nil
	})
}

// Rename renames columns. The map is keyed by the source name.
func Rename(mapping map[string]string) Rule {
	return New("rename", func(t *models.Table) (int, error) {
		t.Rename(mapping)
		return 0, nil
	})
}

// Exclude drops rows belonging to the publisher itself or to test traffic.
func Exclude(ex config.ExcludeRules) Rule {
	emails := make(map[string]bool, len(ex.Emails))
	for _, e := range ex.Emails {
		emails[e] = true
	}

	titles := make(map[string]bool, len(ex.Titles))
	for _, tt := range ex.Titles {
		titles[tt] = true
	}

	return New("exclude", func(t *models.Table) (int, error) {
		var need []string

		if len(ex.FirmContains) > 0 {
			need = append(need, models.ColFirmName)
		}

		if len(ex.EmailSuffixes) > 0 || len(ex.Emails) > 0 {
			need = append(need, models.ColEmail)
		}

		if len(ex.TitleContains) > 0 || len(ex.Titles) > 0 {
			need = append(need, models.ColReportTitle)
		}

		need = append(need, sortedKeys(ex.ColumnContains)...)

		if err := t.Require(need...); err != nil {
			return 0, err
		}

		t.Filter(func(rec models.Record) bool {
			for _, s := range ex.FirmContains {
				if strs.ContainsFold(rec[models.ColFirmName], s) {
					return false
				}
			}

			email := strings.TrimSpace(rec[models.ColEmail])
			if emails[email] {
				return false
			}

			for _, s := range ex.EmailSuffixes {
				if strings.HasSuffix(email, s) {
					return false
				}
			}

			title := rec[models.ColReportTitle]
			if titles[title] {
				return false
			}

			for _, s := range ex.TitleContains {
				if strings.Contains(title, s) {
					return false
				}
			}

			for col, subs := range ex.ColumnContains {
				for _, s := range subs {
					if strings.Contains(rec[col], s) {
						return false
					}
				}
			}

			return true
		})

		return 0, nil
	})
}

// DropIncomplete drops rows with any empty value.
func DropIncomplete() Rule {
	return New("drop_incomplete", func(t *models.Table) (int, error) {
		t.Filter(func(rec models.Record) bool {
			for _, c := range t.Columns {
				if isEmpty(rec[c]) || rec[c] == "nan" {
					return false
				}
			}

			return true
		})

		return 0, nil
	})
}

// PrimaryEmail keeps the first of several ';'-separated addresses.
func PrimaryEmail() Rule {
	return New("primary_email", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColEmail); err != nil {
			return 0, err
		}

		for _, rec := range t.Records {
			first, _, _ := strings.Cut(rec[models.ColEmail], ";")
			rec[models.ColEmail] = strings.TrimSpace(first)
		}

		return 0, nil
	})
}

// Constants sets columns to fixed values.
func Constants(values map[string]string) Rule {
	return New("constants", func(t *models.Table) (int, error) {
		for _, col := range sortedKeys(values) {
			t.SetColumn(col, values[col])
		}

		return 0, nil
	})
}
