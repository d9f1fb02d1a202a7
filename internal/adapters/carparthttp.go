package adapters

import (
	"context"
	"net/url"

	"github.com/williampepple1/salvage-yard-monitor/internal/clean"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/internal/worker"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

const carPartSearchURL = "https://car-part.com/cgi-bin/search.cgi"

// CarPartHTTP searches car-part.com without a browser by posting its search form once
// per target year
type CarPartHTTP struct {
	Base
	workers int
}

// NewCarPartHTTP creates the form-posting car-part adapter
func NewCarPartHTTP(deps Deps, cfg config.SitesConfig) *CarPartHTTP {
	workers := cfg.CarPartWorkers
	if workers <= 0 {
		workers = 4
	}
	rules := extraction.SiteRules{
		Location: extraction.Rules{
			extraction.R("city-state-zip", `(?i)([A-Z][a-z]+,\s*[A-Z]{2}\s+\d{5})`, 1),
			extraction.R("city-state", `(?i)([A-Z][a-z]+,\s*[A-Z]{2})`, 1),
		}.Then(extraction.LabelledLocation),
		Yard: extraction.Rules{
			extraction.R("auto-parts", `(?i)([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*[ \t]+Auto[ \t]+Parts)`, 1),
			extraction.R("salvage", `(?i)([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*[ \t]+Salvage)`, 1),
			extraction.R("recycling", `(?i)([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*[ \t]+Recycling)`, 1),
			extraction.R("yard-label", `(?i)Yard\s*:?\s*([A-Za-z0-9][A-Za-z0-9 ]*)`, 1),
		},
	}
	return &CarPartHTTP{
		Base: newBase(
			Info{Name: "carpart", DisplayName: "Car-Part.com", Kind: KindParallel, URL: carPartSearchURL},
			deps, rules,
		),
		workers: workers,
	}
}

// presets are the fields the search form expects regardless of what it renders
func (a *CarPartHTTP) presets(year string) url.Values {
	v := url.Values{}
	for k, val := range map[string]string{
		"make": a.target.Make, "model": a.target.Model, "year": year, "yearend": year,
		"part": "", "userLocation": "", "userRadius": "500", "userZip": a.target.Zip,
		"color": "", "miles": "", "price": "", "pricelow": "", "pricehigh": "", "description": "",
		"sort": "distance", "new": "N", "used": "Y", "interchange": "Y",
	} {
		v.Set(k, val)
	}
	return v
}

// ScrapeListings implements Adapter
func (a *CarPartHTTP) ScrapeListings(ctx context.Context) []models.Vehicle {
	html, ok := a.get(ctx, carPartSearchURL)
	if !ok {
		return []models.Vehicle{}
	}
	doc := a.parse(ctx, html)
	if doc == nil {
		return []models.Vehicle{}
	}
	form, ok := extraction.FirstForm(doc, carPartSearchURL)
	if !ok {
		a.logger.WarnContext(ctx, "no search form found", "url", carPartSearchURL)
		return []models.Vehicle{}
	}

	outcomes := worker.Run(ctx, a.workers, a.target.Years(), func(ctx context.Context, year string) ([]models.Vehicle, error) {
		values := form.Fill(extraction.FormTarget{
			Make:    a.target.Make,
			Model:   a.target.Model,
			Year:    year,
			Presets: a.presets(year),
		})
		resp := form.Submit(ctx, a.fetcher, values)
		if resp == nil {
			a.logger.WarnContext(ctx, "year search failed", "year", year)
			return nil, nil
		}
		return a.vinPage(ctx, carPartSearchURL, resp.Body), nil
	})
	for _, err := range worker.Errors(outcomes) {
		a.logger.ErrorContext(ctx, "year search failed", "error", err)
	}

	vehicles := clean.DedupBy(worker.Collect(outcomes), clean.ByUniqueID)
	a.logger.InfoContext(ctx, "extracted listings", "count", len(vehicles))
	return vehicles
}
