package models

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	// VINNotFound replaces an identifier that could not be recovered
	VINNotFound = "Not Found"
	// VINNotDisplayed marks the low-confidence record produced from a bare year mention
	VINNotDisplayed = "VIN_NOT_DISPLAYED"
	// VINNoMatch marks a listing element that carried no VIN-shaped text
	VINNoMatch = "VIN_NOT_FOUND"
)

// Vehicle is one scraped listing. Optional fields are nil when absent.
type Vehicle struct {
	UniqueID    string     `json:"vin"`
	Year        *string    `json:"year"`
	Make        *string    `json:"make"`
	Model       *string    `json:"model"`
	Location    *string    `json:"location"`
	Yard        *string    `json:"yard"`
	Row         *string    `json:"row"`
	DateAdded   *string    `json:"date_added"`
	SourceURL   string     `json:"source_url"`
	Price       *string    `json:"price"`
	ContactInfo *string    `json:"contact_info"`
	StockNumber *string    `json:"stock_number,omitempty"`
	ScrapedAt   *time.Time `json:"scraped_at,omitempty"`
}

// WithScrapedAt returns a copy of v stamped with t
func (v Vehicle) WithScrapedAt(t time.Time) Vehicle {
	v.ScrapedAt = &t
	return v
}

// String renders "YEAR MAKE MODEL (ID)" for log lines
func (v Vehicle) String() string {
	return fmt.Sprintf("%s %s %s (%s)", Deref(v.Year), Deref(v.Make), Deref(v.Model), v.UniqueID)
}

// Str returns a pointer to s, or nil when s is empty
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or ""
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SiteStatus records how a site's scrape ended
type SiteStatus int

const (
	StatusOK SiteStatus = iota
	StatusTimeout
	StatusError
)

func (s SiteStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s SiteStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *SiteStatus) UnmarshalText(b []byte) error {
	switch string(b) {
	case "ok":
		*s = StatusOK
	case "timeout":
		*s = StatusTimeout
	case "error":
		*s = StatusError
	default:
		return fmt.Errorf("unknown site status %q", string(b))
	}
	return nil
}

// SiteReport describes one site's slot in a scan
type SiteReport struct {
	Status   SiteStatus    `json:"status"`
	Count    int           `json:"count"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ScanResult is the aggregate of one scan. Sites keep registration order.
type ScanResult struct {
	Timestamp time.Time
	order     []string
	sites     map[string][]Vehicle
	Reports   map[string]SiteReport
}

// NewScanResult creates an empty result stamped with ts
func NewScanResult(ts time.Time) *ScanResult {
	return &ScanResult{
		Timestamp: ts,
		sites:     make(map[string][]Vehicle),
		Reports:   make(map[string]SiteReport),
	}
}

// Set stores the vehicles for a site. The first Set of a name fixes its position.
func (r *ScanResult) Set(site string, vehicles []Vehicle) {
	if _, ok := r.sites[site]; !ok {
		r.order = append(r.order, site)
	}
	if vehicles == nil {
		vehicles = []Vehicle{}
	}
	r.sites[site] = vehicles
}

// Site returns the vehicles recorded for a site
func (r *ScanResult) Site(site string) []Vehicle {
	return r.sites[site]
}

// SiteNames returns site keys in insertion order
func (r *ScanResult) SiteNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All flattens every site's vehicles in site order
func (r *ScanResult) All() []Vehicle {
	var all []Vehicle
	for _, name := range r.order {
		all = append(all, r.sites[name]...)
	}
	return all
}

// TotalCount returns the number of vehicles across sites
func (r *ScanResult) TotalCount() int {
	n := 0
	for _, vs := range r.sites {
		n += len(vs)
	}
	return n
}

// orderedSites encodes as a JSON object while keeping key order
type orderedSites struct {
	order []string
	sites map[string][]Vehicle
}

func (o orderedSites) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, name := range o.order {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(o.sites[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, key...)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

// SitesJSON returns the site map as an order-preserving JSON marshaler
func (r *ScanResult) SitesJSON() json.Marshaler {
	return orderedSites{order: r.order, sites: r.sites}
}

// SiteStats is the per-site projection of Statistics
type SiteStats struct {
	Count     int      `json:"count"`
	Years     []string `json:"years"`
	Locations []string `json:"locations"`
	Yards     []string `json:"yards"`
}

// Statistics aggregates a ScanResult
type Statistics struct {
	TotalCount          int                  `json:"total_vehicles"`
	SitesScraped        int                  `json:"sites_scraped"`
	SitesWithResults    int                  `json:"sites_with_results"`
	SitesWithoutResults int                  `json:"sites_without_results"`
	Timestamp           time.Time            `json:"timestamp"`
	PerSite             map[string]SiteStats `json:"site_stats"`
}

// Diff is the change between two scans by unique ID
type Diff struct {
	Added   []Vehicle `json:"added"`
	Removed []Vehicle `json:"removed"`
}
