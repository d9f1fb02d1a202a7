// Package adapters holds one scraping strategy per salvage-yard site.
//
// Every adapter is fail-soft: ScrapeListings logs what went wrong and returns whatever it
// managed to collect, possibly nothing. Nothing past the Adapter boundary sees an error.
package adapters

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/internal/fetch"
	"github.com/williampepple1/salvage-yard-monitor/internal/vin"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// Adapter scrapes one site
type Adapter interface {
	Name() string
	ScrapeListings(ctx context.Context) []models.Vehicle
}

// Kind is the search strategy an adapter uses
type Kind string

const (
	KindHTTP     Kind = "http"
	KindForm     Kind = "form"
	KindParallel Kind = "parallel"
	KindBrowser  Kind = "browser"
)

// Info describes an adapter for listings and status pages
type Info struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Kind        Kind   `json:"kind"`
	URL         string `json:"url"`
}

// Describer is implemented by adapters that can describe themselves
type Describer interface {
	Info() Info
}

// Target is the vehicle family being searched for
type Target struct {
	Make      string
	Model     string
	YearMin   int
	YearMax   int
	VINPrefix string
	Zip       string
}

// TargetFromConfig builds a Target from the search section
func TargetFromConfig(cfg config.SearchConfig) Target {
	return Target{
		Make:      cfg.Make,
		Model:     cfg.Model,
		YearMin:   cfg.YearMin,
		YearMax:   cfg.YearMax,
		VINPrefix: strings.ToUpper(cfg.VINPrefix),
		Zip:       cfg.Zip,
	}
}

// Years lists the target model years as strings, oldest first
func (t Target) Years() []string {
	var years []string
	for y := t.YearMin; y <= t.YearMax; y++ {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

// YearsFrom is Years clipped to start no earlier than min
func (t Target) YearsFrom(min int) []string {
	var years []string
	for _, y := range t.Years() {
		if n, _ := strconv.Atoi(y); n >= min {
			years = append(years, y)
		}
	}
	return years
}

// InRange reports whether a 4-digit year falls in the target range
func (t Target) InRange(year string) bool {
	n, err := strconv.Atoi(year)
	if err != nil {
		return false
	}
	return n >= t.YearMin && n <= t.YearMax
}

// Decoder returns a VIN year decoder centred on the target range
func (t Target) Decoder() vin.Decoder {
	return vin.Decoder{Min: t.YearMin, Max: t.YearMax}
}

// Matches reports whether make and model name the target family
func (t Target) Matches(mk, model string) bool {
	return strings.EqualFold(strings.TrimSpace(mk), t.Make) &&
		strings.Contains(strings.ToLower(model), strings.ToLower(t.Model))
}

// Base holds what every adapter shares
type Base struct {
	info      Info
	fetcher   fetch.Fetcher
	target    Target
	logger    *slog.Logger
	extractor *extraction.Extractor
}

func newBase(info Info, deps Deps, rules extraction.SiteRules) Base {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Base{
		info:      info,
		fetcher:   deps.Fetcher,
		target:    deps.Target,
		logger:    logger.With("site", info.Name),
		extractor: extraction.NewExtractor(rules),
	}
}

// Name returns the registry key
func (b *Base) Name() string { return b.info.Name }

// Info describes the adapter
func (b *Base) Info() Info { return b.info }

func (b *Base) client() fetch.Fetcher { return b.fetcher }

// get fetches a page, logging when it is absent
func (b *Base) get(ctx context.Context, url string) (string, bool) {
	resp := b.fetcher.Get(ctx, url, nil)
	if resp == nil {
		b.logger.WarnContext(ctx, "page unavailable", "url", url)
		return "", false
	}
	b.logger.DebugContext(ctx, "fetched page", "url", url, "status", resp.StatusCode, "bytes", len(resp.Body))
	return resp.Body, true
}

// findVINs returns the distinct VINs on a page that pass validation
func (b *Base) findVINs(ctx context.Context, html string) []string {
	var out []string
	for _, v := range vin.FindAll(html, b.target.VINPrefix) {
		switch vin.Validate(v, b.target.VINPrefix) {
		case vin.TierConfirmed:
			out = append(out, v)
		case vin.TierPlausible:
			b.logger.WarnContext(ctx, "vin lacks manufacturer prefix", "vin", v)
			out = append(out, v)
		default:
			b.logger.WarnContext(ctx, "invalid vin", "vin", v)
		}
	}
	return out
}

// vinPage runs the VIN-window strategy over a raw page. Records whose decoded year
// falls outside the target range are dropped.
func (b *Base) vinPage(ctx context.Context, sourceURL, html string) []models.Vehicle {
	vehicles := []models.Vehicle{}
	for _, id := range b.findVINs(ctx, html) {
		window, ok := extraction.Window(html, id, extraction.WindowRadius)
		if !ok {
			b.logger.WarnContext(ctx, "no context found for vin", "vin", id)
			continue
		}
		v := b.vehicleFromWindow(id, window, sourceURL)
		if v.Year != nil && !b.target.InRange(*v.Year) {
			b.logger.DebugContext(ctx, "vin outside target years", "vin", id, "year", *v.Year)
			continue
		}
		vehicles = append(vehicles, v)
	}
	b.logger.InfoContext(ctx, "extracted listings", "count", len(vehicles))
	return vehicles
}

// resultPage runs vinPage and, when that finds nothing on a page naming the target model,
// falls back to generic listing extraction
func (b *Base) resultPage(ctx context.Context, sourceURL, html string) []models.Vehicle {
	if vehicles := b.vinPage(ctx, sourceURL, html); len(vehicles) > 0 {
		return vehicles
	}
	if b.target.Model == "" || !strings.Contains(strings.ToLower(html), strings.ToLower(b.target.Model)) {
		return []models.Vehicle{}
	}

	found := extraction.GenericListings(b.parse(ctx, html), html, extraction.GenericQuery{
		Years:     b.target.Years(),
		Make:      b.target.Make,
		Model:     b.target.Model,
		SourceURL: sourceURL,
	})
	vehicles := []models.Vehicle{}
	for _, v := range found {
		if year := models.Deref(v.Year); year != "" && !b.target.InRange(year) {
			continue
		}
		vehicles = append(vehicles, v)
	}
	b.logger.InfoContext(ctx, "no vins found, used generic listings", "count", len(vehicles))
	return vehicles
}

// vehicleFromWindow builds a record from one VIN's context window
func (b *Base) vehicleFromWindow(id, window, sourceURL string) models.Vehicle {
	year, _ := b.target.Decoder().DecodeYear(id)
	f := b.extractor.Fields(window)
	return models.Vehicle{
		UniqueID:    id,
		Year:        models.Str(year),
		Make:        models.Str(b.target.Make),
		Model:       models.Str(b.target.Model),
		Location:    models.Str(f.Location),
		Yard:        models.Str(f.Yard),
		Row:         models.Str(f.Row),
		DateAdded:   models.Str(f.Date),
		SourceURL:   sourceURL,
		Price:       models.Str(f.Price),
		ContactInfo: models.Str(f.Contact),
	}
}

// parse builds a DOM, logging on failure
func (b *Base) parse(ctx context.Context, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		b.logger.ErrorContext(ctx, "parse page", "error", err)
		return nil
	}
	return doc
}

// formSearch fetches pageURL, fills its first form and returns the submitted result
// page with its URL. Without a form the page itself is returned.
func (b *Base) formSearch(ctx context.Context, pageURL string, ft extraction.FormTarget) (string, string, bool) {
	html, ok := b.get(ctx, pageURL)
	if !ok {
		return "", "", false
	}
	doc := b.parse(ctx, html)
	if doc == nil {
		return "", "", false
	}
	form, ok := extraction.FirstForm(doc, pageURL)
	if !ok {
		b.logger.DebugContext(ctx, "no search form, parsing page", "url", pageURL)
		return html, pageURL, true
	}

	if ft.Make == "" {
		ft.Make = b.target.Make
	}
	if ft.Model == "" {
		ft.Model = b.target.Model
	}
	resp := form.Submit(ctx, b.fetcher, form.Fill(ft))
	if resp == nil {
		b.logger.WarnContext(ctx, "search submit failed", "action", form.Action, "method", form.Method)
		return "", "", false
	}
	return resp.Body, form.Action, true
}
