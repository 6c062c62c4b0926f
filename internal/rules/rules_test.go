package rules

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"datascrubber/internal/config"
	"datascrubber/internal/models"
)

const undisclosed = "非公開"

func table(columns []string, rows ...[]string) *models.Table {
	t := models.NewTable(columns...)

	for _, row := range rows {
		rec := make(models.Record, len(columns))
		for i, c := range columns {
			rec[c] = row[i]
		}

		t.Records = append(t.Records, rec)
	}

	return t
}

func column(t *models.Table, col string) []string {
	out := make([]string, 0, t.Len())
	for _, rec := range t.Records {
		out = append(out, rec[col])
	}

	return out
}

func apply(t *testing.T, r Rule, tbl *models.Table) int {
	t.Helper()

	rejected, err := r.Apply(tbl)
	if err != nil {
		t.Fatalf("%s returned error: %v", r.Name(), err)
	}

	return rejected
}

func TestEngine_Run(t *testing.T) {
	tbl := table([]string{"n"}, []string{"1"}, []string{"2"}, []string{"x"})

	drop := filterRule("drop_x", func(rec models.Record) bool { return rec["n"] != "x" })
	reject := New("reject_one", func(t *models.Table) (int, error) {
		t.Records = t.Records[1:]
		return 1, nil
	})

	rep, err := NewEngine(nil, drop, reject).Run(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if rep.RowsIn != 3 || rep.RowsOut != 1 || rep.Rejected != 1 || len(rep.Steps) != 2 {
		t.Errorf("Report = %+v", rep)
	}

	if rep.Steps[0].RowsOut != 2 {
		t.Errorf("first step = %+v, want 2 rows out", rep.Steps[0])
	}
}

func TestEngine_Run_Errors(t *testing.T) {
	failing := New("boom", func(*models.Table) (int, error) { return 0, models.ErrMissingColumn })

	_, err := NewEngine(nil, failing).Run(context.Background(), models.NewTable())
	if !errors.Is(err, models.ErrMissingColumn) {
		t.Errorf("Run error = %v, want ErrMissingColumn", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewEngine(nil, failing).Run(ctx, models.NewTable()); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRepeat(t *testing.T) {
	tbl := table([]string{"id", "Views"}, []string{"a", "2"}, []string{"b", "0"}, []string{"c", "n/a"}, []string{"d", "1.0"})

	if rejected := apply(t, Repeat("Views"), tbl); rejected != 1 {
		t.Errorf("rejected = %d, want 1", rejected)
	}

	if got := column(tbl, "id"); !reflect.DeepEqual(got, []string{"a", "a", "d"}) {
		t.Errorf("ids = %v", got)
	}

	tbl.Records[0]["id"] = "changed"
	if tbl.Records[1]["id"] != "a" {
		t.Error("repeated rows share storage")
	}
}

func TestCoalesceAndConcat(t *testing.T) {
	tbl := table([]string{"First name", "姓", "Last name"},
		[]string{"", "山田", "Taro"},
		[]string{"Jane", "x", ""},
	)

	apply(t, Coalesce(map[string]string{"First name": "姓"}), tbl)
	apply(t, Concat([]config.ConcatRule{{Target: "User Name", Sources: []string{"First name", "Last name"}, Separator: " "}}), tbl)

	if got := column(tbl, "User Name"); !reflect.DeepEqual(got, []string{"山田 Taro", "Jane"}) {
		t.Errorf("User Name = %v", got)
	}

	if _, err := Coalesce(map[string]string{"a": "missing"}).Apply(tbl); !errors.Is(err, models.ErrMissingColumn) {
		t.Errorf("Coalesce error = %v, want ErrMissingColumn", err)
	}
}

func TestRequire(t *testing.T) {
	tbl := table([]string{"Event Type", "Open duration (ms)"},
		[]string{"OPEN", "5000"},
		[]string{"OPEN", "100"},
		[]string{"CLICK", "9000"},
		[]string{"OPEN", ""},
	)

	apply(t, Require(map[string]string{"Event Type": "OPEN"}, map[string]float64{"Open duration (ms)": 3000}), tbl)

	if tbl.Len() != 1 || tbl.Records[0]["Open duration (ms)"] != "5000" {
		t.Errorf("records = %v", tbl.Records)
	}
}

func TestCopyKeepRename(t *testing.T) {
	tbl := table([]string{"Published", "Customer Name", "Junk"}, []string{"2024/01/02", "Acme", "x"})

	apply(t, Copy(map[string]string{"Read Date": "Published"}), tbl)
	apply(t, Keep([]string{"Read Date", "Published", "Customer Name"}), tbl)
	apply(t, Rename(map[string]string{"Published": "Post Date", "Customer Name": "Firm Name"}), tbl)

	want := []string{"Read Date", "Post Date", "Firm Name"}
	if !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("Columns = %v, want %v", tbl.Columns, want)
	}

	if tbl.Records[0]["Read Date"] != "2024/01/02" || tbl.Records[0]["Post Date"] != "2024/01/02" {
		t.Errorf("record = %v", tbl.Records[0])
	}

	if _, err := Keep([]string{"Nope"}).Apply(tbl); !errors.Is(err, models.ErrMissingColumn) {
		t.Errorf("Keep error = %v, want ErrMissingColumn", err)
	}
}

func TestExclude(t *testing.T) {
	cols := []string{models.ColFirmName, models.ColEmail, models.ColReportTitle, "Conversion Page"}
	tbl := table(cols,
		[]string{"Keep Me", "a@fund.com", "(7203) Results", "p"},
		[]string{"NON-DISCLOSED COMPANY NAME Ltd", "b@fund.com", "(7203) Results", "p"},
		[]string{"Fund", "c@non-disclosedcompany.com", "(7203) Results", "p"},
		[]string{"Fund", "company@hotmail.com", "(7203) Results", "p"},
		[]string{"Fund", "d@fund.com", "テスト report", "p"},
		[]string{"Fund", "e@fund.com", "Q2", "p"},
		[]string{"Fund", "f@fund.com", "(7203) Results", "x non-disclosed link"},
	)

	apply(t, Exclude(config.ExcludeRules{
		FirmContains:   []string{"non-disclosed company name"},
		EmailSuffixes:  []string{"@non-disclosedcompany.com"},
		Emails:         []string{"company@hotmail.com"},
		TitleContains:  []string{"テスト"},
		Titles:         []string{"Q2"},
		ColumnContains: map[string][]string{"Conversion Page": {"non-disclosed link"}},
	}), tbl)

	if got := column(tbl, models.ColFirmName); !reflect.DeepEqual(got, []string{"Keep Me"}) {
		t.Errorf("kept firms = %v", got)
	}
}

func TestDropIncompletePrimaryEmailConstants(t *testing.T) {
	tbl := table([]string{models.ColEmail, "User Name"},
		[]string{"a@x.com; b@x.com", "A"},
		[]string{"c@x.com", ""},
		[]string{"nan", "D"},
	)

	apply(t, DropIncomplete(), tbl)
	apply(t, PrimaryEmail(), tbl)
	apply(t, Constants(map[string]string{models.ColCity: undisclosed}), tbl)

	if tbl.Len() != 1 || tbl.Records[0][models.ColEmail] != "a@x.com" || tbl.Records[0][models.ColCity] != undisclosed {
		t.Errorf("records = %v", tbl.Records)
	}
}

func TestParseDate(t *testing.T) {
	layouts := []string{"2006/01/02 15:04", "02/01/2006 15:04", "2-January-2006 3:04 PM", "2006-01-02 3:04:05 PM"}

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2024/03/07 10:15", "2024-03-07", true},
		{"07/03/2024 10:15", "2024-03-07", true},
		{"7-March-2024 9:05 AM", "2024-03-07", true},
		{"2024-03-07 9:05:00 PM", "2024-03-07", true},
		{"yesterday", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in, layouts)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseDate(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDates_RejectsUnparseable(t *testing.T) {
	tbl := table([]string{models.ColReadDate, models.ColPostDate},
		[]string{"2024/03/07 10:15", "2024/03/01 00:00"},
		[]string{"garbage", "2024/03/01 00:00"},
		[]string{"2024/03/08 10:15", ""},
	)

	rejected := apply(t, Dates(config.DateRules{
		Columns: []string{models.ColReadDate, models.ColPostDate},
		Layouts: []string{"2006/01/02 15:04"},
	}), tbl)

	if rejected != 2 || tbl.Len() != 1 {
		t.Fatalf("rejected = %d, rows = %d", rejected, tbl.Len())
	}

	if tbl.Records[0][models.ColPostDate] != "2024-03-01" {
		t.Errorf("record = %v", tbl.Records[0])
	}
}

func TestStandardize(t *testing.T) {
	tbl := table([]string{models.ColReadDate, models.ColTransactionID, models.ColFirmName, "Extra"},
		[]string{"2024-01-01", "t1", "Alpha", "x"},
		[]string{"2024-03-01", "t2", "***", "x"},
		[]string{"2024-02-01", "t1", "Restricted", "x"},
	)

	apply(t, Standardize(undisclosed, config.DefaultMaskTokens, true), tbl)

	if !reflect.DeepEqual(tbl.Columns, models.PrecleanedColumns) {
		t.Errorf("Columns = %v", tbl.Columns)
	}

	if got := column(tbl, models.ColTransactionID); !reflect.DeepEqual(got, []string{"t2", "t1"}) {
		t.Errorf("Transaction IDs = %v, want newest first and deduped", got)
	}

	if got := column(tbl, models.ColFirmName); !reflect.DeepEqual(got, []string{undisclosed, undisclosed}) {
		t.Errorf("Firm Name = %v, want masked", got)
	}

	if tbl.Records[0][models.ColCity] != undisclosed {
		t.Errorf("missing City = %q, want undisclosed", tbl.Records[0][models.ColCity])
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"KR", "Korea, Republic of"},
		{"TW", "Taiwan, Province of China"},
		{"HK", "Hong Kong"},
		{"VN", "Viet Nam"},
		{"GB", "United Kingdom"},
		{"US", "United States"},
		{"RU", "Russian Federation"},
		{"JP", "Japan"},
		{"kr", "Korea, Republic of"},
		{"JPN", "JPN"},
		{"XX", "XX"},
		{"Japan", "Japan"},
	}

	for _, tt := range tests {
		if got := CountryName(tt.code); got != tt.want {
			t.Errorf("CountryName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestCountryAndCity(t *testing.T) {
	tbl := table([]string{models.ColCountry, models.ColCity},
		[]string{"JP", "Chiyoda-ku"},
		[]string{"UK", "London"},
		[]string{undisclosed, undisclosed},
		[]string{"Hong Kong SAR", "hong kong"},
	)

	apply(t, Country(map[string]string{"UK": "United Kingdom", "Hong Kong SAR": "Hong Kong"}, undisclosed), tbl)
	apply(t, City(map[string]string{"Chiyoda-ku": "Tokyo"}, undisclosed), tbl)

	if got := column(tbl, models.ColCountry); !reflect.DeepEqual(got, []string{"JAPAN", "UNITED KINGDOM", undisclosed, "HONG KONG"}) {
		t.Errorf("Country = %v", got)
	}

	if got := column(tbl, models.ColCity); !reflect.DeepEqual(got, []string{"TOKYO", "LONDON", undisclosed, "HONG KONG"}) {
		t.Errorf("City = %v", got)
	}
}

func TestFromConversionPage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com/ir/7203?document=Q3%20results", "(7203) Q3 results"},
		{"https://example.com/ir/list?document=Initiation%EF%BC%880001%EF%BC%89", "(0001) Initiation"},
		{"https://example.com/ir/list?document=Financial%E3%80%80model", "Financialmodel"},
		{"no document parameter", "no document parameter"},
		{"https://x/7203?document=Q3%20results%20100%", "(7203) Q3 results 100%"},
		{"https://x/7203?document=50%off%2Fnow", "(7203) 50%off/now"},
		{"https://x/7203?document=bad%zzescape%21", "(7203) bad%zzescape!"},
	}

	for _, tt := range tests {
		if got := FromConversionPage(tt.in); got != tt.want {
			t.Errorf("FromConversionPage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTitleRewriter(t *testing.T) {
	tr, err := NewTitleRewriter(&config.TitleRewrite{
		Source:     "Conversion Page",
		Publishers: map[string]string{"Publisher 1": "(0001)"},
		Reports: map[string]string{
			"Financial model":       "(0001) Financial model",
			"Financial model notes": "(0002) Financial model notes",
		},
		Replacements: []config.Replacement{{Pattern: `\(\d+ pages\)`, Replace: ""}},
		DropTitles:   []string{"(0004) Duplicate"},
	})
	if err != nil {
		t.Fatalf("NewTitleRewriter returned error: %v", err)
	}

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://x/list?document=Publisher%201%20update", "(0001) update", true},
		{"https://x/list?document=Financial%20model%20notes", "(0002) Financial model notes", true},
		{"https://x/7203?document=Results%20(12%20pages)", "(7203) Results", true},
		{"https://x/0003?document=", "", false},
		{"https://x/0004?document=Duplicate", "", false},
	}

	for _, tt := range tests {
		got, ok := tr.Rewrite(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Rewrite(%q) = %q, %v, want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	tbl := table([]string{"Conversion Page"}, []string{"https://x/7203?document=A"}, []string{"https://x/0003?document="})
	apply(t, tr.Rule(), tbl)

	if got := column(tbl, models.ColReportTitle); !reflect.DeepEqual(got, []string{"(7203) A"}) {
		t.Errorf("Report Title = %v", got)
	}
}

func TestPublisherRules_Chain(t *testing.T) {
	profile := &config.PublisherProfile{
		Name:     "example_publisher_1",
		Platform: "example_publisher_1",
		Keep:     []string{"Transaction Date", "Customer Name", "Business eMail", "Customer Country", "Transaction Id", "Title"},
		Rename: map[string]string{
			"Transaction Date": "Read Date",
			"Customer Name":    "Firm Name",
			"Business eMail":   "Email",
			"Customer Country": "Country",
			"Transaction Id":   "Transaction ID",
			"Title":            "Report Title",
		},
		Exclude: config.ExcludeRules{FirmContains: []string{"non-disclosed company name"}},
		Dates:   config.DateRules{Columns: []string{"Read Date"}, Layouts: []string{"2006/01/02 15:04", "02/01/2006 15:04"}},
		Dedupe:  true,
	}

	cleaning := config.CleaningConfig{Undisclosed: undisclosed, MaskTokens: config.DefaultMaskTokens}

	chain, err := PublisherRules(profile, cleaning, Masters{Countries: map[string]string{}, Cities: map[string]string{}})
	if err != nil {
		t.Fatalf("PublisherRules returned error: %v", err)
	}

	var names []string
	for _, r := range chain {
		names = append(names, r.Name())
	}

	wantNames := []string{"keep", "rename", "exclude", "constants", "dates", "standardize", "country", "city"}
	if !reflect.DeepEqual(names, wantNames) {
		t.Errorf("chain = %v, want %v", names, wantNames)
	}

	raw := table([]string{"Transaction Date", "Customer Name", "Business eMail", "Customer Country", "Transaction Id", "Title", "Unused"},
		[]string{"2024/03/01 09:00", "Alpha Capital", "a@alpha.com", "US", "1", "(7203) Q3", "u"},
		[]string{"02/03/2024 09:00", "Beta", "***", "JP", "2", "(7203) Q3", "u"},
		[]string{"2024/03/03 09:00", "Non-Disclosed Company Name", "n@x.com", "JP", "3", "(7203) Q3", "u"},
		[]string{"2024/03/01 09:00", "Alpha Capital", "a@alpha.com", "US", "1", "(7203) Q3", "u"},
	)

	rep, err := NewEngine(nil, chain...).Run(context.Background(), raw)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if rep.RowsOut != 2 {
		t.Fatalf("RowsOut = %d, want 2", rep.RowsOut)
	}

	first := raw.Records[0]
	if first[models.ColReadDate] != "2024-03-02" || first[models.ColEmail] != undisclosed || first[models.ColCountry] != "JAPAN" {
		t.Errorf("first record = %v", first)
	}

	if first[models.ColPlatform] != "example_publisher_1" || first[models.ColPostDate] != undisclosed {
		t.Errorf("first record = %v", first)
	}
}

type fakeClients struct {
	clients []models.Client
}

func (f fakeClients) Lookup(firm string) (models.Client, bool) {
	for _, c := range f.clients {
		if strs.ContainsFold(c.Name, firm) && len(c.Name) == len(firm) {
			return c, true
		}
	}

	return models.Client{}, false
}

func (f fakeClients) Exact(firm string) (models.Client, bool) {
	for _, c := range f.clients {
		if c.Name == firm {
			return c, true
		}
	}

	return models.Client{}, false
}

func (f fakeClients) FirmForEmail(email string) (string, bool) {
	if email == "x@acme.com" {
		return "Acme", true
	}

	return "", false
}

type fakeTitles map[string]string

func (f fakeTitles) Shorten(reportTitle string) string {
	if reportTitle == "(7203) Q3 FY2024 results" {
		return "Q3 FY2024"
	}

	return reportTitle
}

func (f fakeTitles) PostDate(title string) (string, bool) {
	d, ok := f[title]
	return d, ok
}

func TestCustomerRules(t *testing.T) {
	clients := fakeClients{clients: []models.Client{
		{Name: "Acme", InvestorType: "Hedge Fund", InvestorStyle: "Value", City: "NEW YORK", Country: undisclosed},
	}}
	titles := fakeTitles{"Q3 FY2024": "2024-11-01"}

	tbl := table(models.PrecleanedColumns,
		[]string{"2024-12-01", undisclosed, undisclosed, "u", "x@acme.com", "BOSTON", "UNITED STATES", "(7203) Q3 FY2024 results", "p", "1"},
		[]string{"2024-12-02", undisclosed, undisclosed, "u", "y@other.com", "LONDON", "UNITED KINGDOM", "(7203) Q3 FY2024 results", "p", "2"},
		[]string{"2024-12-03", undisclosed, undisclosed, "u", "x@acme.com", "TOKYO", "JAPAN", "(9999) other", "p", "3"},
		[]string{"2024-12-04", undisclosed, undisclosed, "u", "x@acme.com", "TOKYO", "JAPAN", "(7203) untitled", "p", "4"},
	)

	chain := CustomerRules("7203", true, clients, titles, undisclosed)

	rep, err := NewEngine(nil, chain...).Run(context.Background(), tbl)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if rep.Rejected != 1 || tbl.Len() != 2 {
		t.Fatalf("rejected = %d, rows = %d", rep.Rejected, tbl.Len())
	}

	acme := tbl.Records[0]
	if acme[models.ColFirmName] != "Acme" || acme[models.ColInvestorType] != "Hedge Fund" || acme[models.ColInClientMaster] != "true" {
		t.Errorf("acme = %v", acme)
	}

	if acme[models.ColCity] != "NEW YORK" || acme[models.ColCountry] != "UNITED STATES" {
		t.Errorf("acme location = %s/%s, want city override only", acme[models.ColCity], acme[models.ColCountry])
	}

	if acme[models.ColTitle] != "Q3 FY2024" || acme[models.ColPostDate] != "2024-11-01" {
		t.Errorf("acme title = %s/%s", acme[models.ColTitle], acme[models.ColPostDate])
	}

	other := tbl.Records[1]
	if other[models.ColFirmName] != undisclosed || other[models.ColInvestorStyle] != undisclosed || other[models.ColInClientMaster] != "false" {
		t.Errorf("other = %v", other)
	}

	missing := MissingClients(tbl)
	if missing.Len() != 1 || missing.Records[0][models.ColEmail] != "y@other.com" {
		t.Errorf("MissingClients = %v", missing.Records)
	}

	if !reflect.DeepEqual(missing.Columns, models.MissingClientColumns) {
		t.Errorf("MissingClients columns = %v", missing.Columns)
	}
}
