// Package config provides configuration management for the cleaning pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingRoot            = errors.New("paths.root is required")
	ErrInvalidOutputFormat    = errors.New("cleaning.output_format must be 'xlsx' or 'csv'")
	ErrInvalidWorkers         = errors.New("cleaning.workers must be at least 1")
	ErrMissingUndisclosed     = errors.New("cleaning.undisclosed must not be empty")
	ErrInvalidLogLevel        = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat       = errors.New("logging.format must be 'text' or 'json'")
	ErrProfileMissingName     = errors.New("publisher profile name is required")
	ErrDuplicateProfile       = errors.New("duplicate publisher profile")
	ErrProfileNoDateLayouts   = errors.New("dates.layouts is required when dates.columns is set")
	ErrProfileNegativeTrim    = errors.New("header and footer must be non-negative")
	ErrProfileConcatNoTarget  = errors.New("concat target is required")
	ErrProfileTitleNoSource   = errors.New("title_rewrite.source is required")
	ErrProfileBadReplacement  = errors.New("title_rewrite.replacements pattern is invalid")
	ErrProfileHeaderlessNames = errors.New("headerless requires column_names")
)

// Default values applied by ApplyDefaults.
const (
	DefaultUndisclosed   = "非公開"
	DefaultOutputFormat  = "xlsx"
	DefaultWorkers       = 4
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultDateLayoutOut = "2006-01-02"
)

// DefaultMaskTokens are the raw values treated as undisclosed.
var DefaultMaskTokens = []string{
	"***",
	"N/A - Free Content",
	"Restricted",
	"nan",
	"Unattributed",
	"Embargoed",
	"EMBARGOED",
	"Unknown",
}

// Config represents the complete pipeline configuration.
type Config struct {
	Paths       PathsConfig        `yaml:"paths"`
	MasterFiles MasterFilesConfig  `yaml:"master_files"`
	Cleaning    CleaningConfig     `yaml:"cleaning"`
	Logging     LoggingConfig      `yaml:"logging"`
	Publishers  []PublisherProfile `yaml:"publishers"`
}

// PathsConfig locates the data tree. Relative directories resolve against Root.
type PathsConfig struct {
	Root         string `yaml:"root"`
	MasterDir    string `yaml:"master_dir"`
	RawDir       string `yaml:"raw_dir"`
	UncleanedDir string `yaml:"uncleaned_dir"`
	PrecleanDir  string `yaml:"precleaned_dir"`
	CustomersDir string `yaml:"customers_dir"`
	CleanDataDir string `yaml:"clean_data_dir"`
	Ledger       string `yaml:"ledger"`
}

// MasterFilesConfig names the master files inside the master directory.
type MasterFilesConfig struct {
	Publishers        string `yaml:"publishers"`
	Customers         string `yaml:"customers"`
	Countries         string `yaml:"countries"`
	Cities            string `yaml:"cities"`
	ClientsDir        string `yaml:"clients_dir"`
	MissingClientsDir string `yaml:"missing_clients_dir"`
	TitlesDir         string `yaml:"titles_dir"`
	TitlesSuffix      string `yaml:"titles_suffix"`
}

// CleaningConfig holds options shared by every publisher.
type CleaningConfig struct {
	Undisclosed  string   `yaml:"undisclosed"`
	OutputFormat string   `yaml:"output_format"`
	MaskTokens   []string `yaml:"mask_tokens"`
	Workers      int      `yaml:"workers"`
	FailFast     bool     `yaml:"fail_fast"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	ShowProgress bool   `yaml:"show_progress"`
}

// PublisherProfile is the rule set applied to one publisher's raw files.
type PublisherProfile struct {
	Exclude             ExcludeRules       `yaml:"exclude"`
	TitleRewrite        *TitleRewrite      `yaml:"title_rewrite"`
	Header              *int               `yaml:"header"`
	Footer              *int               `yaml:"footer"`
	Coalesce            map[string]string  `yaml:"coalesce"`
	Require             map[string]string  `yaml:"require"`
	GreaterThan         map[string]float64 `yaml:"greater_than"`
	Copy                map[string]string  `yaml:"copy"`
	Rename              map[string]string  `yaml:"rename"`
	Constants           map[string]string  `yaml:"constants"`
	Name                string             `yaml:"name"`
	Platform            string             `yaml:"platform"`
	RepeatColumn        string             `yaml:"repeat_column"`
	Dates               DateRules          `yaml:"dates"`
	ColumnNames         []string           `yaml:"column_names"`
	Concat              []ConcatRule       `yaml:"concat"`
	Keep                []string           `yaml:"keep"`
	Headerless          bool               `yaml:"headerless"`
	DropIncomplete      bool               `yaml:"drop_incomplete"`
	PrimaryEmail        bool               `yaml:"primary_email"`
	Dedupe              bool               `yaml:"dedupe"`
	FirmFromEmailDomain bool               `yaml:"firm_from_email_domain"`
}

// ConcatRule joins source columns into target.
type ConcatRule struct {
	Target    string   `yaml:"target"`
	Separator string   `yaml:"separator"`
	Sources   []string `yaml:"sources"`
}

// ExcludeRules drop rows identifying the publisher's own or test traffic.
type ExcludeRules struct {
	ColumnContains map[string][]string `yaml:"column_contains"`
	FirmContains   []string            `yaml:"firm_contains"`
	EmailSuffixes  []string            `yaml:"email_suffixes"`
	Emails         []string            `yaml:"emails"`
	TitleContains  []string            `yaml:"title_contains"`
	Titles         []string            `yaml:"titles"`
}

// DateRules converts date columns to ISO dates.
type DateRules struct {
	Columns []string `yaml:"columns"`
	Layouts []string `yaml:"layouts"`
}

// TitleRewrite rebuilds report titles from a conversion-page URL column.
type TitleRewrite struct {
	Publishers   map[string]string `yaml:"publishers"`
	Reports      map[string]string `yaml:"reports"`
	Source       string            `yaml:"source"`
	Replacements []Replacement     `yaml:"replacements"`
	DropTitles   []string          `yaml:"drop_titles"`
}

// Replacement is a regular-expression substitution.
type Replacement struct {
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// Option overrides a setting after defaults are applied and before validation.
type Option func(*Config)

// WithRoot overrides paths.root. An empty root keeps the file value.
func WithRoot(root string) Option {
	return func(c *Config) {
		if root != "" {
			c.Paths.Root = root
		}
	}
}

// WithLogging overrides the log level and format. Empty values keep the file
// values.
func WithLogging(level, format string) Option {
	return func(c *Config) {
		setDefault(&level, c.Logging.Level)
		setDefault(&format, c.Logging.Format)
		c.Logging.Level = level
		c.Logging.Format = format
	}
}

// LoadConfig loads configuration from a YAML file. ${VAR} references are expanded
// from the environment before parsing.
func LoadConfig(path string, opts ...Option) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, opts...)
}

// Parse decodes, defaults and validates a YAML configuration document.
func Parse(data []byte, opts ...Option) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.ApplyDefaults()

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves configuration to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills empty fields with the standard data-tree layout.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Paths.MasterDir, "01_Master Files")
	setDefault(&c.Paths.RawDir, "02_Raw Data")
	setDefault(&c.Paths.UncleanedDir, "01_Uncleaned")
	setDefault(&c.Paths.PrecleanDir, "02_Precleaned")
	setDefault(&c.Paths.CustomersDir, "03_Customers")
	setDefault(&c.Paths.CleanDataDir, "01_Clean Data")
	setDefault(&c.Paths.Ledger, "datascrubber.db")

	setDefault(&c.MasterFiles.Publishers, "Publisher Master File.xlsx")
	setDefault(&c.MasterFiles.Customers, "Customer Stock Code Master File.xlsx")
	setDefault(&c.MasterFiles.Countries, "Country Mapping Master File.xlsx")
	setDefault(&c.MasterFiles.Cities, "City Mapping Master File.xlsx")
	setDefault(&c.MasterFiles.ClientsDir, "01_Client Master Files")
	setDefault(&c.MasterFiles.MissingClientsDir, "01_Missing Clients")
	setDefault(&c.MasterFiles.TitlesDir, "02_Report Title Master Files")
	setDefault(&c.MasterFiles.TitlesSuffix, "_Report Title Master File.xlsx")

	setDefault(&c.Cleaning.Undisclosed, DefaultUndisclosed)
	setDefault(&c.Cleaning.OutputFormat, DefaultOutputFormat)

	if c.Cleaning.MaskTokens == nil {
		c.Cleaning.MaskTokens = append([]string(nil), DefaultMaskTokens...)
	}

	if c.Cleaning.Workers == 0 {
		c.Cleaning.Workers = DefaultWorkers
	}

	setDefault(&c.Logging.Level, DefaultLogLevel)
	setDefault(&c.Logging.Format, DefaultLogFormat)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return ErrMissingRoot
	}

	if c.Cleaning.OutputFormat != "xlsx" && c.Cleaning.OutputFormat != "csv" {
		return ErrInvalidOutputFormat
	}

	if c.Cleaning.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Cleaning.Undisclosed == "" {
		return ErrMissingUndisclosed
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	seen := make(map[string]bool, len(c.Publishers))

	for i := range c.Publishers {
		p := &c.Publishers[i]
		if p.Name == "" {
			return fmt.Errorf("%w: publishers[%d]", ErrProfileMissingName, i)
		}

		if seen[p.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateProfile, p.Name)
		}

		seen[p.Name] = true

		if err := p.Validate(); err != nil {
			return fmt.Errorf("publisher %s: %w", p.Name, err)
		}
	}

	return nil
}

// Validate checks a single publisher profile.
func (p *PublisherProfile) Validate() error {
	if (p.Header != nil && *p.Header < 0) || (p.Footer != nil && *p.Footer < 0) {
		return ErrProfileNegativeTrim
	}

	if p.Headerless && len(p.ColumnNames) == 0 {
		return ErrProfileHeaderlessNames
	}

	if len(p.Dates.Columns) > 0 && len(p.Dates.Layouts) == 0 {
		return ErrProfileNoDateLayouts
	}

	for i, cr := range p.Concat {
		if cr.Target == "" {
			return fmt.Errorf("%w: concat[%d]", ErrProfileConcatNoTarget, i)
		}
	}

	if tr := p.TitleRewrite; tr != nil {
		if tr.Source == "" {
			return ErrProfileTitleNoSource
		}

		for i, r := range tr.Replacements {
			if _, err := regexp.Compile(r.Pattern); err != nil {
				return fmt.Errorf("%w: replacements[%d]: %v", ErrProfileBadReplacement, i, err)
			}
		}
	}

	return nil
}

// Profile returns the rule profile for publisher.
func (c *Config) Profile(publisher string) (*PublisherProfile, bool) {
	for i := range c.Publishers {
		if c.Publishers[i].Name == publisher {
			return &c.Publishers[i], true
		}
	}

	return nil, false
}

// MasterPath returns the master directory.
func (c *Config) MasterPath() string {
	return c.resolve(c.Paths.MasterDir)
}

// MasterFile returns the path of a file inside the master directory.
func (c *Config) MasterFile(name string) string {
	return filepath.Join(c.MasterPath(), name)
}

// ClientsPath returns the client master directory.
func (c *Config) ClientsPath() string {
	return filepath.Join(c.MasterPath(), c.MasterFiles.ClientsDir)
}

// MissingClientsPath returns the directory collecting missing-client files.
func (c *Config) MissingClientsPath() string {
	return filepath.Join(c.ClientsPath(), c.MasterFiles.MissingClientsDir)
}

// TitlesFile returns the report title master file of customer.
func (c *Config) TitlesFile(customer string) string {
	return filepath.Join(c.MasterPath(), c.MasterFiles.TitlesDir, customer+c.MasterFiles.TitlesSuffix)
}

// UncleanedPath follows structure: {root}/{raw_dir}/{uncleaned_dir}/{publisher}.
func (c *Config) UncleanedPath(publisher string) string {
	return filepath.Join(c.resolve(c.Paths.RawDir), c.Paths.UncleanedDir, publisher)
}

// PrecleanedPath follows structure: {root}/{raw_dir}/{precleaned_dir}/{publisher}.
func (c *Config) PrecleanedPath(publisher string) string {
	return filepath.Join(c.resolve(c.Paths.RawDir), c.Paths.PrecleanDir, publisher)
}

// CustomerPath follows structure: {root}/{customers_dir}/{customer}.
func (c *Config) CustomerPath(customer string) string {
	return filepath.Join(c.resolve(c.Paths.CustomersDir), customer)
}

// CleanDataPath follows structure: {root}/{customers_dir}/{customer}/{clean_data_dir}.
func (c *Config) CleanDataPath(customer string) string {
	return filepath.Join(c.CustomerPath(customer), c.Paths.CleanDataDir)
}

// LedgerPath returns the sqlite ledger location.
func (c *Config) LedgerPath() string {
	return c.resolve(c.Paths.Ledger)
}

// Today returns the date stamp used in output file names.
func (c *Config) Today(now time.Time) string {
	return now.Format(DefaultDateLayoutOut)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Root: %s, Profiles: %d, Format: %s, Workers: %d}",
		c.Paths.Root,
		len(c.Publishers),
		c.Cleaning.OutputFormat,
		c.Cleaning.Workers,
	)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.Paths.Root, p)
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
