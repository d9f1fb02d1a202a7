package adapters

import (
	"context"

	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// PageAdapter issues one GET to a search URL that already encodes the filters,
// then runs the VIN-window strategy over the response
type PageAdapter struct {
	Base
	searchURL string
}

func newPageAdapter(info Info, deps Deps, searchURL string, rules extraction.SiteRules) *PageAdapter {
	info.Kind = KindHTTP
	info.URL = searchURL
	return &PageAdapter{Base: newBase(info, deps, rules), searchURL: searchURL}
}

// ScrapeListings implements Adapter
func (a *PageAdapter) ScrapeListings(ctx context.Context) []models.Vehicle {
	a.logger.InfoContext(ctx, "starting scrape", "url", a.searchURL)
	html, ok := a.get(ctx, a.searchURL)
	if !ok {
		return []models.Vehicle{}
	}
	return a.vinPage(ctx, a.searchURL, html)
}
