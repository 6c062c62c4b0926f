// Package ingest reads raw publisher files of mixed formats and encodings into tables.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"datascrubber/internal/logger"
	"datascrubber/internal/models"
)

// ErrEmptyFile is returned when a file holds no header row after trimming.
var ErrEmptyFile = errors.New("file has no rows after header/footer trimming")

var supportedExtensions = map[string]bool{
	".csv":  true,
	".xls":  true,
	".xlsx": true,
}

// Options control how rows are turned into records.
type Options struct {
	// Header is the number of rows above the column names.
	Header int
	// Footer is the number of trailing rows to discard.
	Footer int
	// ColumnNames replaces the header row.
	ColumnNames []string
	// Headerless treats every remaining row as data; ColumnNames must be set.
	Headerless bool
}

// Progress is called after each file is loaded.
type Progress func(done, total int, path string)

// Reader loads raw files.
type Reader struct {
	logger   *logger.Logger
	progress Progress
}

// NewReader creates a new reader instance.
func NewReader(log *logger.Logger) *Reader {
	return &Reader{logger: log}
}

// WithProgress sets a per-file progress callback.
func (r *Reader) WithProgress(p Progress) *Reader {
	r.progress = p
	return r
}

// Supported reports whether name has an extension the reader accepts.
func Supported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ListFiles returns the supported files in dir, sorted by name. Hidden files and
// Office lock files (~$...) are ignored.
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var paths []string

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}

		if Supported(name) {
			paths = append(paths, filepath.Join(dir, name))
		}
	}

	sort.Strings(paths)

	return paths, nil
}

// ReadFiles loads every path and concatenates the results.
func (r *Reader) ReadFiles(ctx context.Context, paths []string, opts Options) (*models.Table, []models.SourceFile, error) {
	combined := models.NewTable()
	sources := make([]models.SourceFile, 0, len(paths))

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		tbl, src, err := r.ReadFile(path, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}

		combined.Concat(tbl)
		sources = append(sources, src)

		if r.progress != nil {
			r.progress(i+1, len(paths), path)
		}
	}

	return combined, sources, nil
}

// ReadFile loads a single file.
func (r *Reader) ReadFile(path string, opts Options) (*models.Table, models.SourceFile, error) {
	src := models.SourceFile{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, src, fmt.Errorf("failed to read file: %w", err)
	}

	src.Size = int64(len(data))

	format, err := SniffFormat(data)
	if err != nil {
		return nil, src, err
	}

	src.Format = format

	var rows [][]string

	switch format {
	case FormatXLSX:
		rows, err = ReadWorkbook(data)
	case FormatXLS:
		rows, err = ReadLegacyWorkbook(data)
	default:
		var text []byte

		text, src.Encoding, src.Confidence, err = DecodeAuto(data)
		if err == nil {
			rows, err = ParseDelimited(text)
		}
	}

	if err != nil {
		return nil, src, err
	}

	tbl, err := BuildTable(rows, opts)
	if err != nil {
		return nil, src, err
	}

	src.Rows = tbl.Len()

	if r.logger != nil {
		r.logger.Debug("loaded file",
			"file", filepath.Base(path),
			"format", src.Format,
			"encoding", src.Encoding,
			"size", humanize.Bytes(uint64(src.Size)),
			"rows", src.Rows,
		)
	}

	return tbl, src, nil
}

// BuildTable trims header/footer rows, names the columns and converts the
// remaining rows to records. Fully blank rows are skipped.
func BuildTable(rows [][]string, opts Options) (*models.Table, error) {
	if opts.Header > 0 {
		if opts.Header >= len(rows) {
			rows = nil
		} else {
			rows = rows[opts.Header:]
		}
	}

	if opts.Footer > 0 {
		if opts.Footer >= len(rows) {
			rows = nil
		} else {
			rows = rows[:len(rows)-opts.Footer]
		}
	}

	var header []string

	switch {
	case opts.Headerless:
		header = opts.ColumnNames
	case len(rows) == 0:
		return nil, ErrEmptyFile
	case len(opts.ColumnNames) > 0:
		header = opts.ColumnNames
		rows = rows[1:]
	default:
		header = rows[0]
		rows = rows[1:]
	}

	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns := nameColumns(header, width)
	tbl := models.NewTable(columns...)

	for _, row := range rows {
		if isBlank(row) {
			continue
		}

		rec := make(models.Record, len(columns))
		for i, c := range columns {
			if i < len(row) {
				rec[c] = row[i]
			} else {
				rec[c] = ""
			}
		}

		tbl.Records = append(tbl.Records, rec)
	}

	return tbl, nil
}

// nameColumns fills blank names with "Unnamed: i" and suffixes duplicates
// with ".n", the way spreadsheet exports are usually disambiguated.
func nameColumns(header []string, width int) []string {
	columns := make([]string, width)
	seen := make(map[string]int, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}

		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}

		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "." + strconv.Itoa(n+1)
		} else {
			seen[name] = 0
		}

		columns[i] = name
	}

	return columns
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}
