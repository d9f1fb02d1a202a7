package adapters

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

const upullmURL = "https://route34upullm.com/inventory/"

// UPullM scrapes Route 34 U-Pull-M. The inventory page has a free-text search which
// is POSTed back to the same URL.
type UPullM struct {
	Base
}

// NewUPullM creates the U-Pull-M adapter
func NewUPullM(deps Deps) *UPullM {
	rules := extraction.SiteRules{
		Location: extraction.Rules{
			extraction.R("route34-branch", `(?i)Route\s*34\s*U-Pull-M[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
			extraction.R("brand-branch", `(?i)U-Pull-M[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
		}.Then(extraction.LabelledLocation),
		Yard: extraction.Rules{
			extraction.R("route34-branch", `(?i)Route\s*34\s*U-Pull-M[ \t]*-?[ \t]*([A-Za-z][A-Za-z ]*)`, 1),
			extraction.R("route34", `(?i)(Route\s*34\s*U-Pull-M)`, 1),
			extraction.R("brand", `(?i)(U-Pull-M)`, 1),
		}.Then(extraction.YardPatterns(`U-Pull-M`)[2:]),
		DefaultLocation: "Route 34, CT",
		DefaultYard:     "Route 34 U-Pull-M",
	}
	return &UPullM{Base: newBase(
		Info{Name: "upullm", DisplayName: "U-Pull-M", Kind: KindForm, URL: upullmURL},
		deps, rules,
	)}
}

// ScrapeListings implements Adapter
func (a *UPullM) ScrapeListings(ctx context.Context) []models.Vehicle {
	html, ok := a.get(ctx, upullmURL)
	if !ok {
		return []models.Vehicle{}
	}
	doc := a.parse(ctx, html)
	if doc == nil {
		return []models.Vehicle{}
	}

	if doc.Find("form").Length() == 0 && doc.Find(`input[type="search"]`).Length() == 0 {
		return a.vinPage(ctx, upullmURL, html)
	}

	inputs := doc.Find(`input[type="search"], input[type="text"]`)
	if inputs.Length() == 0 {
		a.logger.WarnContext(ctx, "no search inputs found, parsing current page")
		return a.vinPage(ctx, upullmURL, html)
	}

	term := strings.ToLower(a.target.Model)
	values := url.Values{
		"search": {term},
		"q":      {strings.ToLower(a.target.Make + " " + a.target.Model)},
		"query":  {term},
		"make":   {strings.ToLower(a.target.Make)},
		"model":  {term},
	}
	inputs.Each(func(_ int, s *goquery.Selection) {
		if name := s.AttrOr("name", ""); name != "" {
			values.Set(name, term)
		}
	})

	resp := a.fetcher.PostForm(ctx, upullmURL, values)
	if resp == nil {
		a.logger.WarnContext(ctx, "search submit failed")
		return []models.Vehicle{}
	}
	return a.resultPage(ctx, upullmURL, resp.Body)
}
