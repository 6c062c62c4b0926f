package master

import (
	"fmt"
	"strings"

	"datascrubber/internal/models"
)

// Client master column names.
const (
	colClient        = "Client"
	colDomain        = "Domain"
	colInvestorType  = "Investor Type"
	colInvestorStyle = "Investor Style"
	colCity          = "City"
)

// Clients indexes the client master for the customer stage.
type Clients struct {
	byUpper  map[string]models.Client
	byExact  map[string]models.Client
	byDomain map[string]string
	Source   string
	List     []models.Client
}

// NewClients builds the lookup indexes. Name lookups keep the first match, domain
// lookups keep the last one.
func NewClients(list []models.Client) *Clients {
	c := &Clients{
		byUpper:  make(map[string]models.Client, len(list)),
		byExact:  make(map[string]models.Client, len(list)),
		byDomain: make(map[string]string, len(list)),
		List:     list,
	}

	for _, cl := range list {
		if _, ok := c.byUpper[strings.ToUpper(cl.Name)]; !ok {
			c.byUpper[strings.ToUpper(cl.Name)] = cl
		}

		if _, ok := c.byExact[cl.Name]; !ok {
			c.byExact[cl.Name] = cl
		}

		if cl.Domain != "" {
			c.byDomain[cl.Domain] = cl.Name
		}
	}

	return c
}

// LoadClients reads the newest file of the client master directory.
func LoadClients(dir string) (*Clients, error) {
	path, err := LatestFile(dir)
	if err != nil {
		return nil, err
	}

	tbl, err := readSheet(path, colClient, colInvestorType, colInvestorStyle)
	if err != nil {
		return nil, err
	}

	list := make([]models.Client, 0, tbl.Len())

	for _, rec := range tbl.Records {
		name := strings.TrimSpace(rec[colClient])
		if name == "" {
			continue
		}

		list = append(list, models.Client{
			Name:          name,
			Domain:        strings.TrimSpace(rec[colDomain]),
			InvestorType:  rec[colInvestorType],
			InvestorStyle: rec[colInvestorStyle],
			City:          rec[colCity],
			Country:       rec[colCountry],
		})
	}

	c := NewClients(list)
	c.Source = path

	return c, nil
}

// Lookup matches firm case-insensitively.
func (c *Clients) Lookup(firm string) (models.Client, bool) {
	cl, ok := c.byUpper[strings.ToUpper(firm)]
	return cl, ok
}

// Exact matches firm exactly.
func (c *Clients) Exact(firm string) (models.Client, bool) {
	cl, ok := c.byExact[firm]
	return cl, ok
}

// FirmForEmail returns the client whose Domain equals the first label of the
// email's domain part, e.g. "acme" for "x@acme.co.jp".
func (c *Clients) FirmForEmail(email string) (string, bool) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", false
	}

	label, _, _ := strings.Cut(email[at+1:], ".")

	name, ok := c.byDomain[label]

	return name, ok
}

// String summarizes the index for logs.
func (c *Clients) String() string {
	return fmt.Sprintf("Clients{Source: %s, Count: %d}", c.Source, len(c.List))
}
