package models

import (
	"time"
)

// Standard column names shared by every stage.
const (
	ColReadDate       = "Read Date"
	ColPostDate       = "Post Date"
	ColFirmName       = "Firm Name"
	ColUserName       = "User Name"
	ColEmail          = "Email"
	ColCity           = "City"
	ColCountry        = "Country"
	ColReportTitle    = "Report Title"
	ColPlatform       = "Platform"
	ColTransactionID  = "Transaction ID"
	ColTitle          = "Title"
	ColInvestorType   = "Investor Type"
	ColInvestorStyle  = "Investor Style"
	ColInClientMaster = "In Client Master"
	ColUpdatedOn      = "Updated On"
)

// PrecleanedColumns is the column order of a precleaned publisher file.
var PrecleanedColumns = []string{
	ColReadDate,
	ColPostDate,
	ColFirmName,
	ColUserName,
	ColEmail,
	ColCity,
	ColCountry,
	ColReportTitle,
	ColPlatform,
	ColTransactionID,
}

// CleanedColumns is the dashboard schema of a customer clean file.
var CleanedColumns = []string{
	ColReadDate,
	ColFirmName,
	ColCity,
	ColCountry,
	ColPostDate,
	ColReportTitle,
	ColTitle,
	ColPlatform,
	ColInvestorType,
	ColInvestorStyle,
}

// MissingClientColumns are written to the missing-clients files.
var MissingClientColumns = []string{
	ColFirmName,
	ColUserName,
	ColEmail,
	ColCity,
	ColCountry,
	ColPlatform,
}

// CleanedRecord is one dashboard row.
type CleanedRecord struct {
	ReadDate      string `json:"readDate"`
	FirmName      string `json:"firmName"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PostDate      string `json:"postDate"`
	ReportTitle   string `json:"reportTitle"`
	Title         string `json:"title"`
	Platform      string `json:"platform"`
	InvestorType  string `json:"investorType"`
	InvestorStyle string `json:"investorStyle"`
}

// Record converts the row to a generic record keyed by CleanedColumns.
func (c CleanedRecord) Record() Record {
	return Record{
		ColReadDate:      c.ReadDate,
		ColFirmName:      c.FirmName,
		ColCity:          c.City,
		ColCountry:       c.Country,
		ColPostDate:      c.PostDate,
		ColReportTitle:   c.ReportTitle,
		ColTitle:         c.Title,
		ColPlatform:      c.Platform,
		ColInvestorType:  c.InvestorType,
		ColInvestorStyle: c.InvestorStyle,
	}
}

// CleanedTable builds a table in dashboard column order.
func CleanedTable(rows []CleanedRecord) *Table {
	t := NewTable(CleanedColumns...)
	for _, r := range rows {
		t.Records = append(t.Records, r.Record())
	}

	return t
}

// SourceFile describes one ingested input file.
type SourceFile struct {
	Path       string `json:"path"`
	Format     string `json:"format"`
	Encoding   string `json:"encoding,omitempty"`
	Confidence int    `json:"confidence,omitempty"`
	Size       int64  `json:"size"`
	Rows       int    `json:"rows"`
}

// Stage identifies which operation a work unit runs.
type Stage string

// Pipeline stages.
const (
	StagePreclean       Stage = "preclean"
	StageCustomer       Stage = "customer"
	StageReadership     Stage = "readership"
	StageMissingClients Stage = "missing-clients"
)

// WorkUnit is one pipeline run over a publisher, a customer, or both.
type WorkUnit struct {
	Stage     Stage  `json:"stage"`
	Publisher string `json:"publisher,omitempty"`
	Customer  string `json:"customer,omitempty"`
}

// String renders the unit for logs.
func (u WorkUnit) String() string {
	switch {
	case u.Publisher != "" && u.Customer != "":
		return string(u.Stage) + ":" + u.Publisher + "/" + u.Customer
	case u.Publisher != "":
		return string(u.Stage) + ":" + u.Publisher
	case u.Customer != "":
		return string(u.Stage) + ":" + u.Customer
	default:
		return string(u.Stage)
	}
}

// UnitStatus is the outcome of a work unit.
type UnitStatus string

// Unit outcomes.
const (
	UnitSucceeded UnitStatus = "succeeded"
	UnitSkipped   UnitStatus = "skipped"
	UnitFailed    UnitStatus = "failed"
)

// UnitResult records what happened to a work unit.
type UnitResult struct {
	StartedAt time.Time     `json:"startedAt"`
	Err       error         `json:"-"`
	Unit      WorkUnit      `json:"unit"`
	Status    UnitStatus    `json:"status"`
	Output    string        `json:"output,omitempty"`
	InputHash string        `json:"inputHash,omitempty"`
	Message   string        `json:"message,omitempty"`
	RowsIn    int           `json:"rowsIn"`
	RowsOut   int           `json:"rowsOut"`
	Rejected  int           `json:"rejected"`
	Duration  time.Duration `json:"duration"`
}

// Error returns the unit error text, or an empty string.
func (r UnitResult) Error() string {
	if r.Err == nil {
		return ""
	}

	return r.Err.Error()
}
