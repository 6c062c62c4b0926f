// Package formatter renders run summaries as aligned text tables for the console.
package formatter

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"datascrubber/internal/models"
	"datascrubber/pkg/fingerprint"
	"datascrubber/pkg/utils"
)

// maxCellWidth caps long titles and error messages.
const maxCellWidth = 60

var strs = utils.NewStringHelper()

// RenderTable lays header and rows out as a pipe table padded by display width,
// so CJK cells line up.
func RenderTable(header []string, rows [][]string) string {
	table := make([][]string, 0, len(rows)+1)

	for _, row := range append([][]string{header}, rows...) {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strs.TruncateString(c, maxCellWidth)
		}

		table = append(table, cells)
	}

	colCount := len(header)
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	// Calculate max widths (using display width)
	colWidths := make([]int, colCount)

	for _, row := range table {
		for i := 0; i < len(row); i++ {
			if w := runewidth.StringWidth(row[i]); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	lines := make([]string, 0, len(table)+1)

	for i, row := range table {
		lines = append(lines, renderRow(row, colWidths))

		if i == 0 {
			sep := make([]string, colCount)
			for j := range sep {
				sep[j] = strings.Repeat("-", colWidths[j])
			}

			lines = append(lines, renderRow(sep, colWidths))
		}
	}

	return strings.Join(lines, "\n")
}

func renderRow(row []string, widths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j := range widths {
		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(" ")
		sb.WriteString(content)

		if padding := widths[j] - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}

// Results renders one line per work unit.
func Results(results []models.UnitResult) string {
	rows := make([][]string, 0, len(results))

	for _, r := range results {
		detail := r.Output
		if r.Err != nil {
			detail = r.Error()
		} else if r.Message != "" {
			detail = r.Message
		}

		rows = append(rows, []string{
			r.Unit.String(),
			string(r.Status),
			humanize.Comma(int64(r.RowsIn)),
			humanize.Comma(int64(r.RowsOut)),
			strconv.Itoa(r.Rejected),
			r.Duration.Round(time.Millisecond).String(),
			fingerprint.Short(r.InputHash),
			detail,
		})
	}

	return RenderTable([]string{"Unit", "Status", "In", "Out", "Rejected", "Took", "Input", "Detail"}, rows)
}
