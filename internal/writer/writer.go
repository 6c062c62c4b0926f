// Package writer emits cleaned tables as xlsx or csv files in the dashboard layout.
package writer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"datascrubber/internal/logger"
	"datascrubber/internal/models"
	"datascrubber/pkg/fingerprint"
)

// Output formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const (
	sheetName = "Sheet1"
	creator   = "datascrubber"
)

// ErrUnknownFormat is returned for an output format other than xlsx or csv.
var ErrUnknownFormat = errors.New("unknown output format")

var bomUTF8 = []byte{0xEF, 0xBB, 0xBF}

// Writer writes tables in one output format.
type Writer struct {
	logger *logger.Logger
	format string
}

// New creates a writer for format.
func New(format string, log *logger.Logger) (*Writer, error) {
	if format != FormatXLSX && format != FormatCSV {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Writer{logger: log, format: format}, nil
}

// Ext returns the file extension including the dot.
func (w *Writer) Ext() string {
	return "." + w.format
}

// Write saves t to path, creating parent directories. stamp, if set, is stored
// in the workbook description so the output can be traced to its inputs; csv
// output has nowhere to keep it.
func (w *Writer) Write(path string, t *models.Table, stamp string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if w.format == FormatCSV {
		err = writeCSV(path, t)
	} else {
		err = writeXLSX(path, t, stamp)
	}

	if err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	w.logger.Debug("wrote file", "file", filepath.Base(path), "rows", t.Len())

	return nil
}

func writeXLSX(path string, t *models.Table, stamp string) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}

	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range t.Rows() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}

		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}

	props := &excelize.DocProperties{Creator: creator}
	if stamp != "" {
		props.Description = fingerprint.Stamp(stamp)
	}

	if err := f.SetDocProps(props); err != nil {
		return err
	}

	return f.SaveAs(path)
}

func writeCSV(path string, t *models.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.Write(bomUTF8); err != nil {
		return err
	}

	cw := csv.NewWriter(file)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}

	if err := cw.WriteAll(t.Rows()); err != nil {
		return err
	}

	return file.Close()
}

// ReadStamp returns the input fingerprint stored in an xlsx output.
func ReadStamp(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	props, err := f.GetDocProps()
	if err != nil {
		return "", err
	}

	return fingerprint.ParseStamp(props.Description)
}
