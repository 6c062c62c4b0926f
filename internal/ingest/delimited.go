package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// SniffDelimiter picks tab, semicolon or comma from the first non-empty line.
func SniffDelimiter(text []byte) rune {
	var line []byte

	for _, l := range bytes.Split(text, []byte("\n")) {
		if len(bytes.TrimSpace(l)) > 0 {
			line = l
			break
		}
	}

	counts := map[rune]int{
		',':  bytes.Count(line, []byte(",")),
		'\t': bytes.Count(line, []byte("\t")),
		';':  bytes.Count(line, []byte(";")),
	}

	best := ','
	for _, r := range []rune{'\t', ';'} {
		if counts[r] > counts[best] {
			best = r
		}
	}

	return best
}

// ParseDelimited splits UTF-8 text into rows of trimmed cells.
func ParseDelimited(text []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = SniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to parse delimited text: %w", err)
		}

		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}

		rows = append(rows, rec)
	}

	return rows, nil
}
