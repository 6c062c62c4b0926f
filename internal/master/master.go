// Package master loads the master files that drive cleaning: publishers, customers,
// country and city mappings, the client master and per-customer report titles.
package master

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"

	"datascrubber/internal/config"
	"datascrubber/internal/ingest"
	"datascrubber/internal/models"
)

// Lookup errors.
var (
	ErrUnknownPublisher = errors.New("publisher not found in publisher master")
	ErrUnknownCustomer  = errors.New("customer not found in customer master")
	ErrNoClientMaster   = errors.New("no client master file found")
)

// Master file column names.
const (
	colPublisher   = "Publisher"
	colHeader      = "Header"
	colFooter      = "Footer"
	colCustomer    = "Customer"
	colStockCode   = "Stock Code"
	colCountryCode = "Country Code"
	colCountry     = "Country"
	colWrongCity   = "Wrong City"
	colCorrectCity = "Correct City"
)

// Data holds the master files shared by every unit of a run.
type Data struct {
	Countries  map[string]string
	Cities     map[string]string
	Publishers []models.Publisher
	Customers  []models.Customer
}

// Load reads the publisher, customer, country and city master files.
func Load(cfg *config.Config) (*Data, error) {
	d := &Data{}

	pubs, err := readSheet(cfg.MasterFile(cfg.MasterFiles.Publishers), colPublisher, colHeader, colFooter)
	if err != nil {
		return nil, err
	}

	for _, rec := range pubs.Records {
		name := strings.TrimSpace(rec[colPublisher])
		if name == "" {
			continue
		}

		header, err := toCount(rec[colHeader])
		if err != nil {
			return nil, fmt.Errorf("publisher %s header: %w", name, err)
		}

		footer, err := toCount(rec[colFooter])
		if err != nil {
			return nil, fmt.Errorf("publisher %s footer: %w", name, err)
		}

		d.Publishers = append(d.Publishers, models.Publisher{Name: name, Header: header, Footer: footer})
	}

	custs, err := readSheet(cfg.MasterFile(cfg.MasterFiles.Customers), colCustomer, colStockCode)
	if err != nil {
		return nil, err
	}

	for _, rec := range custs.Records {
		name := strings.TrimSpace(rec[colCustomer])
		if name == "" {
			continue
		}

		d.Customers = append(d.Customers, models.Customer{Name: name, StockCode: stockCode(rec[colStockCode])})
	}

	if d.Countries, err = readMapping(cfg.MasterFile(cfg.MasterFiles.Countries), colCountryCode, colCountry); err != nil {
		return nil, err
	}

	if d.Cities, err = readMapping(cfg.MasterFile(cfg.MasterFiles.Cities), colWrongCity, colCorrectCity); err != nil {
		return nil, err
	}

	return d, nil
}

// Publisher returns the master entry for name.
func (d *Data) Publisher(name string) (models.Publisher, error) {
	for _, p := range d.Publishers {
		if p.Name == name {
			return p, nil
		}
	}

	return models.Publisher{}, fmt.Errorf("%w: %s", ErrUnknownPublisher, name)
}

// Customer returns the master entry for name.
func (d *Data) Customer(name string) (models.Customer, error) {
	for _, c := range d.Customers {
		if c.Name == name {
			return c, nil
		}
	}

	return models.Customer{}, fmt.Errorf("%w: %s", ErrUnknownCustomer, name)
}

// PublisherNames returns publisher names in master order.
func (d *Data) PublisherNames() []string {
	names := make([]string, len(d.Publishers))
	for i, p := range d.Publishers {
		names[i] = p.Name
	}

	return names
}

// CustomerNames returns customer names in master order.
func (d *Data) CustomerNames() []string {
	names := make([]string, len(d.Customers))
	for i, c := range d.Customers {
		names[i] = c.Name
	}

	return names
}

// LatestFile returns the lexically greatest supported file in dir. Client
// master files carry a date prefix, so this is the newest one.
func LatestFile(dir string) (string, error) {
	paths, err := ingest.ListFiles(dir)
	if err != nil {
		return "", err
	}

	if len(paths) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoClientMaster, dir)
	}

	return paths[len(paths)-1], nil
}

func readSheet(path string, required ...string) (*models.Table, error) {
	tbl, _, err := ingest.NewReader(nil).ReadFile(path, ingest.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to read master file %s: %w", filepath.Base(path), err)
	}

	if err := tbl.Require(required...); err != nil {
		return nil, fmt.Errorf("master file %s: %w", filepath.Base(path), err)
	}

	return tbl, nil
}

func readMapping(path, from, to string) (map[string]string, error) {
	tbl, err := readSheet(path, from, to)
	if err != nil {
		return nil, err
	}

	m := make(map[string]string, tbl.Len())

	for _, rec := range tbl.Records {
		if k := strings.TrimSpace(rec[from]); k != "" {
			m[k] = strings.TrimSpace(rec[to])
		}
	}

	return m, nil
}

func toCount(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}

	if f < 0 {
		return 0, fmt.Errorf("negative row count %v", f)
	}

	return int(f), nil
}

// stockCode drops the ".0" suffix spreadsheets add to numeric codes.
func stockCode(v string) string {
	return strings.TrimSuffix(strings.TrimSpace(v), ".0")
}
