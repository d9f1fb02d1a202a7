package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/clean"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/internal/io"
	"github.com/williampepple1/salvage-yard-monitor/internal/worker"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

const (
	lkqBase = "https://www.lkqpickyourpart.com"
	lkqYard = "LKQ Pick Your Part"
)

var (
	lkqSlugRe     = regexp.MustCompile(`/(?:parts|inventory)/([^/]+)/`)
	lkqLocationRe = regexp.MustCompile(`/(?:parts|inventory)/([^/]+)-\d+/`)
	lkqSearchRe   = regexp.MustCompile(`search=(\d{4})`)
)

// lkqEmptyPhrases mark an inventory page with no matches
var lkqEmptyPhrases = []string{"don't see any", "no vehicles"}

// LKQ searches every LKQ Pick Your Part yard for every target year
type LKQ struct {
	Base
	locationsFile string
	workers       int
}

type lkqJob struct {
	URL  string
	Year string
}

// NewLKQ creates the LKQ adapter
func NewLKQ(deps Deps, cfg config.SitesConfig) *LKQ {
	workers := cfg.LKQWorkers
	if workers <= 0 {
		workers = 10
	}
	return &LKQ{
		Base: newBase(
			Info{Name: "lkq", DisplayName: lkqYard, Kind: KindParallel, URL: lkqBase},
			deps, extraction.SiteRules{},
		),
		locationsFile: cfg.LKQLocationsFile,
		workers:       workers,
	}
}

// ScrapeListings implements Adapter
func (a *LKQ) ScrapeListings(ctx context.Context) []models.Vehicle {
	locations, err := io.ReadLocationsOr(a.locationsFile, config.DefaultLKQLocations)
	if err != nil {
		a.logger.ErrorContext(ctx, "could not read locations file, using fallback locations",
			"file", a.locationsFile, "error", err)
	}
	if len(locations) == 0 {
		a.logger.ErrorContext(ctx, "no LKQ locations loaded")
		return []models.Vehicle{}
	}

	var jobs []lkqJob
	for _, loc := range locations {
		for _, year := range a.target.Years() {
			jobs = append(jobs, lkqJob{URL: a.InventoryURL(loc, year), Year: year})
		}
	}
	a.logger.InfoContext(ctx, "searching LKQ yards", "locations", len(locations), "requests", len(jobs))

	outcomes := worker.Run(ctx, a.workers, jobs, func(ctx context.Context, j lkqJob) ([]models.Vehicle, error) {
		return a.scrapeLocation(ctx, j), nil
	})
	for _, err := range worker.Errors(outcomes) {
		a.logger.ErrorContext(ctx, "location search failed", "error", err)
	}

	// Yards can list the same vehicle under several year searches
	vehicles := clean.DedupBy(worker.Collect(outcomes), clean.ByUniqueID)
	a.logger.InfoContext(ctx, "extracted listings", "count", len(vehicles))
	return vehicles
}

// InventoryURL turns a yard's parts or inventory URL into a year search URL.
// URLs without a recognisable yard slug are returned unchanged.
func (a *LKQ) InventoryURL(locationURL, year string) string {
	m := lkqSlugRe.FindStringSubmatch(locationURL)
	if m == nil {
		return locationURL
	}
	search := strings.ToLower(fmt.Sprintf("%s+%s+%s", year, url.QueryEscape(a.target.Make), url.QueryEscape(a.target.Model)))
	return fmt.Sprintf("%s/inventory/%s/?search=%s", lkqBase, m[1], search)
}

// lkqLocation derives a display name from the yard slug, e.g. "monrovia-1281" is "Monrovia"
func lkqLocation(pageURL string) string {
	m := lkqLocationRe.FindStringSubmatch(pageURL)
	if m == nil {
		return lkqYard
	}
	words := strings.Fields(strings.ReplaceAll(m[1], "-", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func (a *LKQ) scrapeLocation(ctx context.Context, j lkqJob) []models.Vehicle {
	html, ok := a.get(ctx, j.URL)
	if !ok {
		return nil
	}
	doc := a.parse(ctx, html)
	if doc == nil {
		return nil
	}
	return a.inventoryRows(doc, j.URL)
}

// inventoryRows reads div.pypvi_resultRow rows, keeping only the target family in the searched year
func (a *LKQ) inventoryRows(doc *goquery.Document, pageURL string) []models.Vehicle {
	text := strings.ToLower(doc.Text())
	for _, phrase := range lkqEmptyPhrases {
		if strings.Contains(text, phrase) {
			return nil
		}
	}

	targetYear := ""
	if m := lkqSearchRe.FindStringSubmatch(pageURL); m != nil {
		targetYear = m[1]
	}
	location := lkqLocation(pageURL)

	var vehicles []models.Vehicle
	doc.Find("div.pypvi_resultRow").Each(func(_ int, row *goquery.Selection) {
		v, ok := a.rowVehicle(row, location, pageURL)
		if !ok {
			return
		}
		if !a.target.Matches(models.Deref(v.Make), models.Deref(v.Model)) {
			return
		}
		if targetYear == "" || models.Deref(v.Year) != targetYear {
			return
		}
		vehicles = append(vehicles, v)
	})
	return vehicles
}

func (a *LKQ) rowVehicle(row *goquery.Selection, location, pageURL string) (models.Vehicle, bool) {
	link := row.Find("a.pypvi_ymm").First()
	if link.Length() == 0 {
		return models.Vehicle{}, false
	}
	ymm, ok := extraction.SplitYMM(strings.Join(strings.Fields(link.Text()), ""), extraction.DefaultMakes)
	if !ok {
		return models.Vehicle{}, false
	}

	var dateAdded string
	if t := row.Find("time").First(); t.Length() > 0 {
		dateAdded = t.AttrOr("datetime", "")
	}

	source := pageURL
	if href, ok := link.Attr("href"); ok && href != "" {
		if !strings.HasPrefix(href, "http") {
			href = lkqBase + href
		}
		source = href
	}

	id := "LKQ_" + row.AttrOr("id", "")
	if id == "LKQ_" {
		id = fmt.Sprintf("LKQ_%s_%s_%s_%s", location, ymm.Year, ymm.Make, ymm.Model)
	}

	return models.Vehicle{
		UniqueID:  id,
		Year:      models.Str(ymm.Year),
		Make:      models.Str(ymm.Make),
		Model:     models.Str(ymm.Model),
		Location:  models.Str(location),
		Yard:      models.Str(lkqYard),
		DateAdded: models.Str(dateAdded),
		SourceURL: source,
	}, true
}
