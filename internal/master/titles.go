package master

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/xuri/excelize/v2"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
	"datascrubber/pkg/utils"
)

var strs = utils.NewStringHelper()

// Report title master column names.
const (
	colTitle    = "Title"
	colContent  = "Content"
	colPostDate = "Post Date"
)

// postDateLayouts are the renderings excelize and hand-edited sheets produce.
var postDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006/1/2",
	"01-02-06",
	"1/2/06",
	"1/2/2006",
	"01/02/2006",
	"2006年1月2日",
}

// Titles is a customer's report title master.
type Titles struct {
	postDates map[string]string
	List      []models.ReportTitle
}

// NewTitles indexes titles. A repeated Title keeps its last post date.
func NewTitles(list []models.ReportTitle) *Titles {
	t := &Titles{postDates: make(map[string]string, len(list)), List: list}

	for _, rt := range list {
		t.postDates[rt.Title] = rt.PostDate
	}

	return t
}

// LoadTitles reads a report title master file.
func LoadTitles(path string) (*Titles, error) {
	tbl, err := readSheet(path, colTitle, colContent, colPostDate)
	if err != nil {
		return nil, err
	}

	list := make([]models.ReportTitle, 0, tbl.Len())

	for i, rec := range tbl.Records {
		title := strings.TrimSpace(rec[colTitle])
		if title == "" {
			continue
		}

		date, err := ParsePostDate(rec[colPostDate])
		if err != nil {
			return nil, fmt.Errorf("title master row %d: %w", i+2, err)
		}

		list = append(list, models.ReportTitle{
			Title:    title,
			Content:  strings.TrimSpace(rec[colContent]),
			PostDate: date,
		})
	}

	return NewTitles(list), nil
}

// Shorten returns the first master Title contained in reportTitle, else the
// Title of the first Content contained in it ignoring spaces, else reportTitle.
// Both comparisons ignore case.
func (t *Titles) Shorten(reportTitle string) string {
	lower := strings.ToLower(reportTitle)

	for _, rt := range t.List {
		if strings.Contains(lower, strings.ToLower(rt.Title)) {
			return rt.Title
		}
	}

	compact := strs.StripSpaces(lower)

	for _, rt := range t.List {
		if rt.Content == "" {
			continue
		}

		if strings.Contains(compact, strs.StripSpaces(strings.ToLower(rt.Content))) {
			return rt.Title
		}
	}

	return reportTitle
}

// PostDate returns the post date of a shortened title.
func (t *Titles) PostDate(title string) (string, bool) {
	d, ok := t.postDates[title]
	return d, ok && d != ""
}

// ParsePostDate accepts an Excel serial number or a rendered date and returns
// YYYY-MM-DD. Blank input yields a blank date.
func ParsePostDate(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", nil
	}

	if serial, err := cast.ToFloat64E(v); err == nil {
		tm, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return "", fmt.Errorf("invalid excel date %q: %w", v, err)
		}

		return tm.Format(config.DefaultDateLayoutOut), nil
	}

	for _, layout := range postDateLayouts {
		if tm, err := time.Parse(layout, v); err == nil {
			return tm.Format(config.DefaultDateLayoutOut), nil
		}
	}

	return "", fmt.Errorf("unrecognized post date %q", v)
}
