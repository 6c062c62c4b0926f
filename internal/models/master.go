package models

// Publisher is an upstream vendor listed in the Publisher Master File.
type Publisher struct {
	Name   string `json:"name"`
	Header int    `json:"header"`
	Footer int    `json:"footer"`
}

// Customer is a downstream company identified by its stock code.
type Customer struct {
	Name      string `json:"name"`
	StockCode string `json:"stockCode"`
}

// Client is one row of the client master: an investor firm reading reports.
type Client struct {
	Name          string `json:"name"`
	Domain        string `json:"domain"`
	InvestorType  string `json:"investorType"`
	InvestorStyle string `json:"investorStyle"`
	City          string `json:"city"`
	Country       string `json:"country"`
}

// ReportTitle maps a shortened report title to its matching content and post date.
type ReportTitle struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	PostDate string `json:"postDate"`
}
