package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"datascrubber/internal/ingest"
	"datascrubber/internal/models"
)

// MergeMissingClients appends rows to the missing-clients file at path,
// dropping duplicate rows. Nothing is written when rows is empty.
func (w *Writer) MergeMissingClients(path string, rows *models.Table) (int, error) {
	if rows.Len() == 0 {
		return 0, nil
	}

	merged := models.NewTable(models.MissingClientColumns...)

	existing, _, err := ingest.NewReader(nil).ReadFile(path, ingest.Options{})

	switch {
	case err == nil:
		merged.Concat(existing)
	case errors.Is(err, os.ErrNotExist):
	default:
		return 0, fmt.Errorf("failed to read existing missing clients: %w", err)
	}

	merged.Concat(rows)
	merged.Reindex(models.MissingClientColumns, "")
	dedupeRows(merged)

	if err := w.Write(path, merged, ""); err != nil {
		return 0, err
	}

	return merged.Len(), nil
}

// CombineMissingClients merges every per-customer missing-clients file in dir
// into the combined file, sorted by Firm Name. It returns the output path and
// row count, or an empty path when there was nothing to combine.
func (w *Writer) CombineMissingClients(dir string) (string, int, error) {
	paths, err := ingest.ListFiles(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", 0, nil
		}

		return "", 0, err
	}

	combined := models.NewTable(models.MissingClientColumns...)
	reader := ingest.NewReader(nil)
	sources := 0

	for _, p := range paths {
		if strings.HasPrefix(filepath.Base(p), AllMissingClients) {
			continue
		}

		tbl, _, err := reader.ReadFile(p, ingest.Options{})
		if err != nil {
			return "", 0, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}

		combined.Concat(tbl)
		sources++
	}

	if sources == 0 {
		return "", 0, nil
	}

	combined.Reindex(models.MissingClientColumns, "")
	dedupeRows(combined)
	combined.SortBy(models.ColFirmName, false)

	out := filepath.Join(dir, w.AllMissingClientsName())
	if err := w.Write(out, combined, ""); err != nil {
		return "", 0, err
	}

	return out, combined.Len(), nil
}

func dedupeRows(t *models.Table) {
	seen := make(map[string]bool, t.Len())

	t.Filter(func(rec models.Record) bool {
		var b strings.Builder
		for _, c := range t.Columns {
			b.WriteString(rec[c])
			b.WriteByte(0x1f)
		}

		key := b.String()
		if seen[key] {
			return false
		}

		seen[key] = true

		return true
	})
}
