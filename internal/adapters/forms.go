package adapters

import (
	"context"

	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// FormAdapter fills in the first search form on a page, submits it, and runs the
// VIN-window strategy over the result, falling back to generic listings
type FormAdapter struct {
	Base
	pageURL string
	// anyYear fills year selects with the first target year the form offers
	anyYear bool
}

func newFormAdapter(info Info, deps Deps, pageURL string, rules extraction.SiteRules) *FormAdapter {
	info.Kind = KindForm
	info.URL = pageURL
	return &FormAdapter{Base: newBase(info, deps, rules), pageURL: pageURL}
}

// ScrapeListings implements Adapter
func (a *FormAdapter) ScrapeListings(ctx context.Context) []models.Vehicle {
	a.logger.InfoContext(ctx, "starting scrape", "url", a.pageURL)
	ft := extraction.FormTarget{}
	if a.anyYear {
		ft.Years = a.target.Years()
	}
	html, _, ok := a.formSearch(ctx, a.pageURL, ft)
	if !ok {
		return []models.Vehicle{}
	}
	return a.resultPage(ctx, a.pageURL, html)
}

// brandRules is the location/yard table shared by the form sites: "<brand> - <branch>",
// then the labelled fields, then the default yard name
func brandRules(brands []string, defaultYard string) extraction.SiteRules {
	var location, yard extraction.Rules
	for _, b := range brands {
		location = append(location, extraction.R("brand-branch", `(?i)`+b+`[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1))
	}
	location = location.Then(extraction.LabelledLocation)

	for _, b := range brands {
		yard = append(yard, extraction.YardPatterns(b)[:2]...)
	}
	yard = yard.Then(extraction.YardPatterns(brands[0])[2:])

	return extraction.SiteRules{Location: location, Yard: yard, DefaultYard: defaultYard}
}

// NewWilberts creates the Wilberts U-Pull-It adapter
func NewWilberts(deps Deps) *FormAdapter {
	return newFormAdapter(
		Info{Name: "wilberts", DisplayName: "Wilberts U-Pull-It"},
		deps,
		"https://www.wilberts.com/u-pull-it/vehicle-inventory-search/",
		brandRules([]string{`Wilberts\s*U-Pull-It`, `Wilberts`}, "Wilberts U-Pull-It"),
	)
}

// NewNVPAP creates the NVPAP part-interchange adapter
func NewNVPAP(deps Deps) *FormAdapter {
	a := newFormAdapter(
		Info{Name: "nvpap", DisplayName: "NVPAP"},
		deps,
		"https://nvpap.com/part-interchange/",
		brandRules([]string{`NVPAP`}, "NVPAP"),
	)
	a.anyYear = true
	return a
}

// NewPullNSave creates the Pull-N-Save adapter
func NewPullNSave(deps Deps) *FormAdapter {
	return newFormAdapter(
		Info{Name: "pullnsave", DisplayName: "Pull-N-Save"},
		deps,
		"https://www.pullnsave.com/inventory/",
		brandRules([]string{`Pull-N-Save`, `Pull\s*N\s*Save`}, "Pull-N-Save"),
	)
}
