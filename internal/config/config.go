package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// AppConfig holds the complete application configuration
type AppConfig struct {
	Scraper   ScraperConfig   `yaml:"scraper" json:"scraper"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Proxies   ProxyConfig     `yaml:"proxies" json:"proxies"`
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Sites     SitesConfig     `yaml:"sites" json:"sites"`
	Snapshot  SnapshotConfig  `yaml:"snapshot" json:"snapshot"`
	Dashboard DashboardConfig `yaml:"dashboard" json:"dashboard"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// ScraperConfig controls fetching and orchestration
type ScraperConfig struct {
	Workers        int           `yaml:"workers" json:"workers"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay" json:"retry_delay"`
	RateLimit      time.Duration `yaml:"rate_limit" json:"rate_limit"`
	UserAgents     []string      `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
}

// SearchConfig is the vehicle family every adapter looks for
type SearchConfig struct {
	Make      string `yaml:"make" json:"make"`
	Model     string `yaml:"model" json:"model"`
	YearMin   int    `yaml:"year_min" json:"year_min"`
	YearMax   int    `yaml:"year_max" json:"year_max"`
	VINPrefix string `yaml:"vin_prefix" json:"vin_prefix"`
	Zip       string `yaml:"zip" json:"zip"`
}

// ProxyConfig holds the proxy configuration
type ProxyConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Rotate  bool     `yaml:"rotate" json:"rotate"`
	List    []string `yaml:"list" json:"list"`
	Auth    struct {
		Username string `yaml:"username" json:"username"`
		Password string `yaml:"password" json:"password"`
	} `yaml:"auth" json:"auth"`
}

// BrowserConfig holds the browser automation settings
type BrowserConfig struct {
	Enabled   bool          `yaml:"enabled" json:"enabled"`
	Headless  bool          `yaml:"headless" json:"headless"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	WaitTime  time.Duration `yaml:"wait_time" json:"wait_time"`
	PartDelay time.Duration `yaml:"part_delay" json:"part_delay"`
	Parts     []string      `yaml:"parts" json:"parts"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
}

// SitesConfig holds per-site knobs
type SitesConfig struct {
	LKQLocationsFile string `yaml:"lkq_locations_file" json:"lkq_locations_file"`
	LKQWorkers       int    `yaml:"lkq_workers" json:"lkq_workers"`
	CarPartWorkers   int    `yaml:"carpart_workers" json:"carpart_workers"`
}

// SnapshotConfig locates persisted scans
type SnapshotConfig struct {
	Dir    string `yaml:"dir" json:"dir"`
	Prefix string `yaml:"prefix" json:"prefix"`
}

// DashboardConfig holds the web dashboard settings
type DashboardConfig struct {
	Addr        string        `yaml:"addr" json:"addr"`
	CacheTTL    time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	ScanWorkers int           `yaml:"scan_workers" json:"scan_workers"`
	ScanTimeout time.Duration `yaml:"scan_timeout" json:"scan_timeout"`
}

// TelemetryConfig enables trace export when an endpoint is set
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name" json:"service_name"`
}

// Default returns the built-in configuration
func Default() *AppConfig {
	return &AppConfig{
		Scraper: ScraperConfig{
			Workers:        4,
			Timeout:        300 * time.Second,
			RequestTimeout: 30 * time.Second,
			MaxRetries:     2,
			RetryDelay:     2 * time.Second,
			RateLimit:      250 * time.Millisecond,
			UserAgents:     DefaultUserAgents,
		},
		Search: SearchConfig{
			Make:      "Honda",
			Model:     "Insight",
			YearMin:   1999,
			YearMax:   2006,
			VINPrefix: "JHMZE",
			Zip:       "10001",
		},
		Proxies: ProxyConfig{
			Rotate: true,
			List:   []string{},
		},
		Browser: BrowserConfig{
			Enabled:   true,
			Headless:  true,
			UserAgent: DefaultUserAgents[0],
			WaitTime:  10 * time.Second,
			PartDelay: 2 * time.Second,
			Parts:     DefaultParts,
			BaseURL:   "https://car-part.com/index.htm",
		},
		Sites: SitesConfig{
			LKQLocationsFile: "lkq_locations_complete.txt",
			LKQWorkers:       10,
			CarPartWorkers:   4,
		},
		Snapshot: SnapshotConfig{
			Dir:    "data",
			Prefix: "honda_insight_listings",
		},
		Dashboard: DashboardConfig{
			Addr:        ":5000",
			CacheTTL:    time.Hour,
			ScanWorkers: 9,
			ScanTimeout: 300 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "salvage-yard-monitor",
		},
	}
}

// Load reads filename over the defaults, then decodes <name>.local.<ext> on top when present.
// Keys the local file sets win, including false and zero values.
// Files ending in .json or .json5 are decoded as JSON5, anything else as YAML.
func Load(filename string) (*AppConfig, error) {
	cfg := Default()
	if err := decodeFile(filename, cfg); err != nil {
		return nil, err
	}

	local := localName(filename)
	if _, err := os.Stat(local); err == nil {
		if err := decodeFile(local, cfg); err != nil {
			return nil, err
		}
		slog.Info("merging config with local overrides", "local", local)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := cfg.fillDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(filename string, out *AppConfig) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json", ".json5":
		err = json5.Unmarshal(data, out)
	default:
		err = yaml.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	return nil
}

// localName turns config.yaml into config.local.yaml
func localName(filename string) string {
	ext := filepath.Ext(filename)
	return strings.TrimSuffix(filename, ext) + ".local" + ext
}

// fillDefaults restores defaults for fields a file blanked out. Sections without
// meaningful zero values are merged field by field.
func (c *AppConfig) fillDefaults() error {
	d := Default()
	for _, section := range []struct {
		name     string
		dst, src any
	}{
		{"sites", &c.Sites, d.Sites},
		{"snapshot", &c.Snapshot, d.Snapshot},
		{"telemetry", &c.Telemetry, d.Telemetry},
	} {
		if err := mergo.Merge(section.dst, section.src); err != nil {
			return fmt.Errorf("fill %s defaults: %w", section.name, err)
		}
	}
	if len(c.Scraper.UserAgents) == 0 {
		c.Scraper.UserAgents = d.Scraper.UserAgents
	}
	if c.Scraper.Workers <= 0 {
		c.Scraper.Workers = d.Scraper.Workers
	}
	if c.Scraper.RequestTimeout <= 0 {
		c.Scraper.RequestTimeout = d.Scraper.RequestTimeout
	}
	if len(c.Browser.Parts) == 0 {
		c.Browser.Parts = d.Browser.Parts
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = c.Scraper.UserAgents[0]
	}
	return nil
}

// LoadEnv reads a .env file into the process environment. A missing file is not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from environment variables
func (c *AppConfig) ApplyEnv(getenv func(string) string) error {
	if v := getenv("MONITOR_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MONITOR_WORKERS: %w", err)
		}
		c.Scraper.Workers = n
	}
	if v := getenv("MONITOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MONITOR_TIMEOUT: %w", err)
		}
		c.Scraper.Timeout = d
	}
	if v := getenv("MONITOR_DATA_DIR"); v != "" {
		c.Snapshot.Dir = v
	}
	if v := getenv("DASHBOARD_ADDR"); v != "" {
		c.Dashboard.Addr = v
	}
	if v := getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	return nil
}
