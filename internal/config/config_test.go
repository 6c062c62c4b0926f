package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Helper to create a temp config file.
func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}

	return configPath
}

// validConfigYAML is a minimal valid configuration.
const validConfigYAML = `
paths:
  root: "${DATASCRUBBER_TEST_ROOT}"
cleaning:
  workers: 2
  output_format: csv
logging:
  level: debug
publishers:
  - name: example_publisher_1
    platform: example_publisher_1
    keep: ["Transaction Date", "Customer Name"]
    rename:
      Transaction Date: Read Date
      Customer Name: Firm Name
    exclude:
      firm_contains: ["non-disclosed company name"]
    dates:
      columns: ["Read Date"]
      layouts: ["2006/01/02 15:04", "02/01/2006 15:04"]
    dedupe: true
  - name: example_publisher_4
    header: 3
    footer: 1
    column_names: ["Read Date", "0", "Firm Name"]
`

func TestLoadConfig_Valid(t *testing.T) {
	t.Setenv("DATASCRUBBER_TEST_ROOT", "/data/scrubber")
	configPath := createTempConfigFile(t, validConfigYAML)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Paths.Root != "/data/scrubber" {
		t.Errorf("Root = %q, want env-expanded /data/scrubber", cfg.Paths.Root)
	}

	if len(cfg.Publishers) != 2 {
		t.Fatalf("Expected 2 publishers, got %d", len(cfg.Publishers))
	}

	p, ok := cfg.Profile("example_publisher_4")
	if !ok {
		t.Fatal("Profile example_publisher_4 not found")
	}

	if p.Header == nil || *p.Header != 3 || p.Footer == nil || *p.Footer != 1 {
		t.Errorf("Header/Footer override not parsed: %+v", p)
	}

	if cfg.Cleaning.Undisclosed != DefaultUndisclosed {
		t.Errorf("Undisclosed = %q, want default", cfg.Cleaning.Undisclosed)
	}

	if len(cfg.Cleaning.MaskTokens) != len(DefaultMaskTokens) {
		t.Errorf("MaskTokens = %v, want defaults", cfg.Cleaning.MaskTokens)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := createTempConfigFile(t, "invalid: yaml: content: [}")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("Expected error for invalid YAML, got nil")
	}
}

func TestConfig_Validate_Errors(t *testing.T) {
	neg := -1

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"missing root", func(c *Config) { c.Paths.Root = "" }, ErrMissingRoot},
		{"bad format", func(c *Config) { c.Cleaning.OutputFormat = "json" }, ErrInvalidOutputFormat},
		{"bad workers", func(c *Config) { c.Cleaning.Workers = -2 }, ErrInvalidWorkers},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, ErrInvalidLogFormat},
		{"unnamed profile", func(c *Config) { c.Publishers = []PublisherProfile{{}} }, ErrProfileMissingName},
		{
			"duplicate profile",
			func(c *Config) { c.Publishers = []PublisherProfile{{Name: "a"}, {Name: "a"}} },
			ErrDuplicateProfile,
		},
		{
			"negative header",
			func(c *Config) { c.Publishers = []PublisherProfile{{Name: "a", Header: &neg}} },
			ErrProfileNegativeTrim,
		},
		{
			"dates without layouts",
			func(c *Config) {
				c.Publishers = []PublisherProfile{{Name: "a", Dates: DateRules{Columns: []string{"Read Date"}}}}
			},
			ErrProfileNoDateLayouts,
		},
		{
			"headerless without names",
			func(c *Config) { c.Publishers = []PublisherProfile{{Name: "a", Headerless: true}} },
			ErrProfileHeaderlessNames,
		},
		{
			"bad replacement regex",
			func(c *Config) {
				c.Publishers = []PublisherProfile{{Name: "a", TitleRewrite: &TitleRewrite{
					Source:       "Conversion Page",
					Replacements: []Replacement{{Pattern: "(unclosed"}},
				}}}
			},
			ErrProfileBadReplacement,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Paths: PathsConfig{Root: "/root"}}
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Paths(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{Root: "/data"}}
	cfg.ApplyDefaults()

	tests := []struct {
		got  string
		want string
	}{
		{cfg.MasterFile(cfg.MasterFiles.Publishers), "/data/01_Master Files/Publisher Master File.xlsx"},
		{cfg.UncleanedPath("pub"), "/data/02_Raw Data/01_Uncleaned/pub"},
		{cfg.PrecleanedPath("pub"), "/data/02_Raw Data/02_Precleaned/pub"},
		{cfg.CleanDataPath("Acme"), "/data/03_Customers/Acme/01_Clean Data"},
		{cfg.MissingClientsPath(), "/data/01_Master Files/01_Client Master Files/01_Missing Clients"},
		{cfg.TitlesFile("Acme"), "/data/01_Master Files/02_Report Title Master Files/Acme_Report Title Master File.xlsx"},
		{cfg.LedgerPath(), "/data/datascrubber.db"},
	}

	for _, tt := range tests {
		if filepath.ToSlash(tt.got) != tt.want {
			t.Errorf("path = %s, want %s", tt.got, tt.want)
		}
	}
}

func TestConfig_SaveConfig(t *testing.T) {
	cfg := &Config{Paths: PathsConfig{Root: "/data"}}
	cfg.ApplyDefaults()

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig of saved config failed: %v", err)
	}

	if loaded.Paths.Root != "/data" || loaded.Cleaning.Workers != DefaultWorkers {
		t.Errorf("round trip mismatch: %s", loaded)
	}

	if !strings.Contains(loaded.String(), "Workers: 4") {
		t.Errorf("String() = %s", loaded.String())
	}
}

func TestParse_Overrides(t *testing.T) {
	noRoot := "logging:\n  level: warn\n"

	if _, err := Parse([]byte(noRoot)); !errors.Is(err, ErrMissingRoot) {
		t.Fatalf("Parse without root error = %v, want ErrMissingRoot", err)
	}

	cfg, err := Parse([]byte(noRoot), WithRoot("/srv/data"), WithLogging("", "json"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if cfg.Paths.Root != "/srv/data" {
		t.Errorf("Root = %q, want /srv/data", cfg.Paths.Root)
	}

	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want warn/json", cfg.Logging)
	}

	if _, err := Parse([]byte(noRoot), WithRoot("/srv/data"), WithLogging("loud", "")); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("Parse with bad level error = %v, want ErrInvalidLogLevel", err)
	}
}

func TestLoadConfig_Example(t *testing.T) {
	t.Setenv("DATASCRUBBER_ROOT", t.TempDir())

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "datascrubber.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if len(cfg.Publishers) != 8 {
		t.Errorf("profiles = %d, want 8", len(cfg.Publishers))
	}

	if cfg.Cleaning.Undisclosed != "非公開" || cfg.Cleaning.OutputFormat != "xlsx" || cfg.Cleaning.Workers != 4 || cfg.Cleaning.FailFast {
		t.Errorf("Cleaning = %+v", cfg.Cleaning)
	}

	p, ok := cfg.Profile("example_publisher_7")
	if !ok {
		t.Fatal("example_publisher_7 profile missing")
	}

	if p.TitleRewrite == nil || p.TitleRewrite.Source != "Conversion Page" || !p.PrimaryEmail {
		t.Errorf("example_publisher_7 = %+v", p)
	}

	if p, _ := cfg.Profile("example_publisher_8"); p.GreaterThan["Open duration (ms)"] != 3000 {
		t.Errorf("greater_than = %v", p.GreaterThan)
	}
}
