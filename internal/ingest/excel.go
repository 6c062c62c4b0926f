package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Format errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyWorkbook     = errors.New("workbook has no sheets")
	ErrBadWorkbook       = errors.New("malformed workbook")
)

// Detected content formats.
const (
	FormatXLSX      = "xlsx"
	FormatXLS       = "xls"
	FormatDelimited = "delimited"
)

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// SniffFormat inspects content rather than trusting the extension: publishers
// routinely ship delimited text or OOXML under a .xls name.
func SniffFormat(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS, nil
	}

	head := strings.ToLower(string(bytes.TrimSpace(bytes.TrimPrefix(data, bomUTF8))))
	if strings.HasPrefix(head, "<html") || strings.HasPrefix(head, "<!doctype") || strings.HasPrefix(head, "<table") {
		return "", fmt.Errorf("%w: html export", ErrUnsupportedFormat)
	}

	return FormatDelimited, nil
}

// ReadWorkbook returns the rows of the first sheet with trimmed cells.
func ReadWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}

	for _, row := range rows {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
	}

	return rows, nil
}

// ReadLegacyWorkbook returns the rows of the first sheet of a BIFF (.xls)
// workbook with trimmed cells. Missing rows come back empty so that header and
// footer offsets still count physical rows.
func ReadLegacyWorkbook(data []byte) (rows [][]string, err error) {
	// the BIFF parser panics on some truncated streams
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("%w: %v", ErrBadWorkbook, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadWorkbook, err)
	}

	if wb.NumSheets() == 0 {
		return nil, ErrEmptyWorkbook
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, ErrEmptyWorkbook
	}

	rows = make([][]string, 0, int(sheet.MaxRow)+1)

	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil || row.LastCol() <= 0 {
			rows = append(rows, nil)
			continue
		}

		cells := make([]string, row.LastCol())
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			cells[c] = strings.TrimSpace(row.Col(c))
		}

		rows = append(rows, cells)
	}

	return rows, nil
}
