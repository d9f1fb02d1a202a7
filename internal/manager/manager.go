// Package manager runs the site adapters and works with the results they produce.
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/williampepple1/salvage-yard-monitor/internal/adapters"
	"github.com/williampepple1/salvage-yard-monitor/internal/clean"
	"github.com/williampepple1/salvage-yard-monitor/internal/worker"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownSite is returned for a site name that is not registered
var ErrUnknownSite = errors.New("unknown site")

var tracer = otel.Tracer("internal/manager")

// Options configure a Manager
type Options struct {
	Logger *slog.Logger
	// Now stamps scan results; defaults to time.Now
	Now func() time.Time
}

// Manager fans scrapes out across the registered adapters
type Manager struct {
	registry *adapters.Registry
	logger   *slog.Logger
	now      func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// New creates a Manager over registry
func New(registry *adapters.Registry, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{registry: registry, logger: opts.Logger, now: opts.Now}
}

// siteRun is one adapter's slot in a scan
type siteRun struct {
	vehicles []models.Vehicle
	report   models.SiteReport
}

// ScrapeAll runs every adapter with at most workers at a time, each bounded by timeout.
// A site that times out or panics gets an empty slot and a matching report. The timeout
// is best effort: an adapter that ignores its context keeps running in the background
// after its slot has been filled.
func (m *Manager) ScrapeAll(ctx context.Context, workers int, timeout time.Duration) *models.ScanResult {
	ctx, span := tracer.Start(ctx, "ScrapeAll", trace.WithAttributes(
		attribute.Int("scan.workers", workers),
		attribute.String("scan.timeout", timeout.String()),
	))
	defer span.End()

	all := m.registry.All()
	result := models.NewScanResult(m.now())
	m.logger.InfoContext(ctx, "starting scan", "sites", len(all), "workers", workers, "timeout", timeout)

	outcomes := worker.Run(ctx, workers, all, func(ctx context.Context, a adapters.Adapter) (siteRun, error) {
		return m.run(ctx, a, timeout), nil
	})
	for i, o := range outcomes {
		name := all[i].Name()
		run := o.Value
		if o.Err != nil {
			run = siteRun{report: models.SiteReport{Status: statusFor(o.Err), Error: o.Err.Error()}}
		}
		result.Set(name, run.vehicles)
		result.Reports[name] = run.report
	}

	cleaned := clean.Results(result)
	for _, name := range cleaned.SiteNames() {
		rep := cleaned.Reports[name]
		rep.Count = len(cleaned.Site(name))
		cleaned.Reports[name] = rep
	}

	span.SetAttributes(attribute.Int("scan.total", cleaned.TotalCount()))
	m.logger.InfoContext(ctx, "scan finished", "total", cleaned.TotalCount())
	return cleaned
}

// ScrapeSite runs a single adapter directly, without a timeout
func (m *Manager) ScrapeSite(ctx context.Context, name string) ([]models.Vehicle, error) {
	a, ok := m.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSite, name)
	}
	run := m.run(ctx, a, 0)
	if run.report.Status != models.StatusOK {
		return []models.Vehicle{}, fmt.Errorf("scrape %s: %s", name, run.report.Error)
	}
	return clean.Vehicles(run.vehicles), nil
}

// run executes one adapter in its own goroutine so a timeout or panic only costs its slot
func (m *Manager) run(ctx context.Context, a adapters.Adapter, timeout time.Duration) siteRun {
	name := a.Name()
	ctx, span := tracer.Start(ctx, "scrape "+name, trace.WithAttributes(attribute.String("site", name)))
	defer span.End()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := m.logger.With("site", name)
	started := time.Now()
	done := make(chan siteRun, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- siteRun{report: models.SiteReport{Status: models.StatusError, Error: fmt.Sprintf("panic: %v", r)}}
			}
		}()
		vehicles := a.ScrapeListings(ctx)
		done <- siteRun{vehicles: vehicles, report: models.SiteReport{Status: models.StatusOK}}
	}()

	var out siteRun
	select {
	case out = <-done:
	case <-ctx.Done():
		out = siteRun{report: models.SiteReport{Status: statusFor(ctx.Err()), Error: ctx.Err().Error()}}
	}
	out.report.Duration = time.Since(started)
	if out.vehicles == nil {
		out.vehicles = []models.Vehicle{}
	}

	span.SetAttributes(
		attribute.String("site.status", out.report.Status.String()),
		attribute.Int("site.count", len(out.vehicles)),
	)
	switch out.report.Status {
	case models.StatusOK:
		logger.InfoContext(ctx, "site finished", "count", len(out.vehicles), "duration", out.report.Duration)
	default:
		span.SetStatus(codes.Error, out.report.Error)
		logger.ErrorContext(ctx, "site failed", "status", out.report.Status, "error", out.report.Error)
	}
	return out
}

func statusFor(err error) models.SiteStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.StatusTimeout
	}
	return models.StatusError
}

// GetStatistics summarises a result without scraping anything
func GetStatistics(result *models.ScanResult) models.Statistics {
	stats := models.Statistics{
		Timestamp: result.Timestamp,
		PerSite:   make(map[string]models.SiteStats),
	}
	for _, name := range result.SiteNames() {
		vehicles := result.Site(name)
		stats.SitesScraped++
		stats.TotalCount += len(vehicles)
		if len(vehicles) > 0 {
			stats.SitesWithResults++
		} else {
			stats.SitesWithoutResults++
		}

		var years, locations, yards []*string
		for i := range vehicles {
			years = append(years, vehicles[i].Year)
			locations = append(locations, vehicles[i].Location)
			yards = append(yards, vehicles[i].Yard)
		}
		stats.PerSite[name] = models.SiteStats{
			Count:     len(vehicles),
			Years:     distinct(years),
			Locations: distinct(locations),
			Yards:     distinct(yards),
		}
	}
	return stats
}

func distinct(values []*string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, v := range values {
		if v == nil || *v == "" {
			continue
		}
		if _, ok := seen[*v]; ok {
			continue
		}
		seen[*v] = struct{}{}
		out = append(out, *v)
	}
	sort.Strings(out)
	return out
}

// Filter narrows a result. Zero fields do not filter.
type Filter struct {
	Year     string
	Location string
	MaxPrice *float64
}

// Match reports whether v passes every set predicate. A price that does not parse
// passes the max-price check.
func (f Filter) Match(v models.Vehicle) bool {
	if f.Year != "" && models.Deref(v.Year) != f.Year {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(models.Deref(v.Location)), strings.ToLower(f.Location)) {
		return false
	}
	if f.MaxPrice != nil {
		if price, ok := parsePrice(models.Deref(v.Price)); ok && price > *f.MaxPrice {
			return false
		}
	}
	return true
}

func parsePrice(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	p, err := strconv.ParseFloat(s, 64)
	return p, err == nil
}

// FilterResults returns a new result with only the matching vehicles. Site order and
// reports are kept.
func FilterResults(result *models.ScanResult, f Filter) *models.ScanResult {
	out := models.NewScanResult(result.Timestamp)
	for _, name := range result.SiteNames() {
		kept := []models.Vehicle{}
		for _, v := range result.Site(name) {
			if f.Match(v) {
				kept = append(kept, v)
			}
		}
		out.Set(name, kept)
		if rep, ok := result.Reports[name]; ok {
			out.Reports[name] = rep
		}
	}
	return out
}

// SitesWithoutResults lists the sites whose slot is empty, in order
func SitesWithoutResults(result *models.ScanResult) []string {
	var out []string
	for _, name := range result.SiteNames() {
		if len(result.Site(name)) == 0 {
			out = append(out, name)
		}
	}
	return out
}

// SiteInfo describes every registered adapter in order
func (m *Manager) SiteInfo() []adapters.Info {
	var out []adapters.Info
	for _, a := range m.registry.All() {
		if d, ok := a.(adapters.Describer); ok {
			out = append(out, d.Info())
			continue
		}
		out = append(out, adapters.Info{Name: a.Name(), DisplayName: a.Name()})
	}
	return out
}

// Validate reports, per registered name, whether an adapter is in place under it
func (m *Manager) Validate() map[string]bool {
	out := make(map[string]bool)
	for _, name := range m.registry.Names() {
		a, ok := m.registry.Get(name)
		out[name] = ok && a != nil && a.Name() == name
	}
	return out
}

// Adapter returns the adapter registered under name
func (m *Manager) Adapter(name string) (adapters.Adapter, bool) {
	return m.registry.Get(name)
}

// Names lists the registered sites in order
func (m *Manager) Names() []string {
	return m.registry.Names()
}

// Close releases adapters that hold resources, then the clients the registry created.
// Later calls return the first call's result.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		var errs []error
		for _, a := range m.registry.All() {
			c, ok := a.(io.Closer)
			if !ok {
				continue
			}
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", a.Name(), err))
			}
		}
		if err := m.registry.Close(); err != nil {
			errs = append(errs, err)
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}
