package rules

import (
	"strconv"
	"strings"

	"datascrubber/internal/models"
)

// ClientIndex resolves firms against the client master.
type ClientIndex interface {
	Lookup(firm string) (models.Client, bool)
	Exact(firm string) (models.Client, bool)
	FirmForEmail(email string) (string, bool)
}

// TitleIndex resolves report titles against a customer's title master.
type TitleIndex interface {
	Shorten(reportTitle string) string
	PostDate(title string) (string, bool)
}

// FirmFromEmail sets Firm Name from the client whose Domain matches the email
// domain label.
func FirmFromEmail(clients ClientIndex, undisclosed string) Rule {
	return New("firm_from_email", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColEmail); err != nil {
			return 0, err
		}

		t.AddColumn(models.ColFirmName, undisclosed)

		for _, rec := range t.Records {
			if name, ok := clients.FirmForEmail(rec[models.ColEmail]); ok {
				rec[models.ColFirmName] = name
			} else {
				rec[models.ColFirmName] = undisclosed
			}
		}

		return 0, nil
	})
}

// StockCode keeps rows whose Report Title mentions code.
func StockCode(code string) Rule {
	return filterRule("stock_code", func(rec models.Record) bool {
		return code != "" && strings.Contains(rec[models.ColReportTitle], code)
	})
}

// ClientProfile attaches investor type, style and client-master membership
// from a case-insensitive firm match.
func ClientProfile(clients ClientIndex, undisclosed string) Rule {
	return New("client_profile", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColFirmName); err != nil {
			return 0, err
		}

		for _, c := range []string{models.ColInvestorType, models.ColInvestorStyle, models.ColInClientMaster} {
			t.AddColumn(c, "")
		}

		for _, rec := range t.Records {
			cl, ok := clients.Lookup(rec[models.ColFirmName])
			if !ok {
				cl = models.Client{InvestorType: undisclosed, InvestorStyle: undisclosed}
			}

			rec[models.ColInvestorType] = cl.InvestorType
			rec[models.ColInvestorStyle] = cl.InvestorStyle
			rec[models.ColInClientMaster] = strconv.FormatBool(ok)
		}

		return 0, nil
	})
}

// ClientLocation overrides City and Country from an exact firm match unless
// the client master value is undisclosed.
func ClientLocation(clients ClientIndex, undisclosed string) Rule {
	return New("client_location", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColFirmName, models.ColCity, models.ColCountry); err != nil {
			return 0, err
		}

		for _, rec := range t.Records {
			cl, ok := clients.Exact(rec[models.ColFirmName])
			if !ok {
				continue
			}

			if cl.City != undisclosed {
				rec[models.ColCity] = cl.City
			}

			if cl.Country != undisclosed {
				rec[models.ColCountry] = cl.Country
			}
		}

		return 0, nil
	})
}

// ShortTitle sets Title to the shortened report title and Post Date to the
// title master date. Rows without a post date are rejected.
func ShortTitle(titles TitleIndex) Rule {
	return New("short_title", func(t *models.Table) (int, error) {
		if err := t.Require(models.ColReportTitle); err != nil {
			return 0, err
		}

		t.AddColumn(models.ColTitle, "")
		t.AddColumn(models.ColPostDate, "")

		out := t.Records[:0]
		rejected := 0

		for _, rec := range t.Records {
			title := titles.Shorten(rec[models.ColReportTitle])

			date, ok := titles.PostDate(title)
			if !ok {
				rejected++
				continue
			}

			rec[models.ColTitle] = title
			rec[models.ColPostDate] = date
			out = append(out, rec)
		}

		t.Records = out

		return rejected, nil
	})
}

// MissingClients returns the rows whose firm is absent from the client master,
// projected onto the missing-clients columns.
func MissingClients(t *models.Table) *models.Table {
	out := models.NewTable(models.MissingClientColumns...)

	for _, rec := range t.Records {
		if rec[models.ColInClientMaster] != "false" {
			continue
		}

		row := make(models.Record, len(models.MissingClientColumns))
		for _, c := range models.MissingClientColumns {
			row[c] = rec[c]
		}

		out.Records = append(out.Records, row)
	}

	return out
}
