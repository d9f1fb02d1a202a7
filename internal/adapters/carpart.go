package adapters

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/browser"
	"github.com/williampepple1/salvage-yard-monitor/internal/clean"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

const (
	carPartURL        = "https://car-part.com/index.htm"
	carPartFirstYear  = 2000
	carPartAllAreas   = "All Areas/Select an Area"
	carPartSubmit     = `input[type="image"]`
	carPartResearch   = `input[type="image"], input[value*="SEARCH"]`
	carPartDummyRadio = `input[type="radio"][name="dummyVar"]`
	carPartAlertWait  = 3 * time.Second
)

var carPartYearRe = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// carPartDealerRules read the dealer cell, which holds the yard name, city and phone
var carPartDealerRules = extraction.SiteRules{
	Location: extraction.Rules{
		extraction.R("city-state", `([A-Z][a-z]+,\s*[A-Z]{2})`, 1),
		extraction.R("state-zip", `([A-Z]{2}\s+\d{5})`, 1),
		extraction.R("city-state-nocomma", `([A-Z][a-z]+\s+[A-Z]{2})`, 1),
	},
	Yard: extraction.Rules{
		extraction.R("trade-name", `([A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*[ \t]+(?:Auto|Salvage|Parts|Recycling))`, 1),
		extraction.R("trade-name-loose", `([A-Z&][A-Za-z \t&]+(?:Auto|Salvage|Parts|Recycling))`, 1),
		extraction.R("call", `Call[ \t]+([A-Z][A-Za-z \t]+)`, 1),
	},
}

// CarPart searches car-part.com with a real browser. The site only answers part searches,
// so each configured part is searched in turn and a vehicle is kept once every part
// was found on it.
type CarPart struct {
	Base
	open      func(ctx context.Context) (browser.Driver, error)
	baseURL   string
	parts     []string
	partDelay time.Duration
	dealer    *extraction.Extractor
}

// NewCarPart creates the browser-driven car-part adapter
func NewCarPart(deps Deps, cfg config.BrowserConfig) *CarPart {
	base := cfg.BaseURL
	if base == "" {
		base = carPartURL
	}
	parts := cfg.Parts
	if len(parts) == 0 {
		parts = config.DefaultParts
	}
	return &CarPart{
		Base: newBase(
			Info{Name: "carpart", DisplayName: "Car-Part.com", Kind: KindBrowser, URL: base},
			deps, extraction.SiteRules{},
		),
		open:      deps.OpenDriver,
		baseURL:   base,
		parts:     parts,
		partDelay: cfg.PartDelay,
		dealer:    extraction.NewExtractor(carPartDealerRules),
	}
}

// ScrapeListings implements Adapter
func (a *CarPart) ScrapeListings(ctx context.Context) []models.Vehicle {
	years := a.target.YearsFrom(carPartFirstYear)
	if len(years) == 0 {
		a.logger.InfoContext(ctx, "no target years listed on car-part")
		return []models.Vehicle{}
	}
	if a.open == nil {
		a.logger.ErrorContext(ctx, "no browser available")
		return []models.Vehicle{}
	}

	drv, err := a.open(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "start browser", "error", err)
		return []models.Vehicle{}
	}
	defer func() {
		if err := drv.Close(); err != nil {
			a.logger.WarnContext(ctx, "close browser", "error", err)
		}
	}()

	var all []models.Vehicle
	for i, part := range a.parts {
		if i > 0 && !sleep(ctx, a.partDelay) {
			break
		}
		found, err := a.searchPart(ctx, drv, part, years)
		if err != nil {
			a.logger.WarnContext(ctx, "part search failed", "part", part, "error", err)
			continue
		}
		a.logger.InfoContext(ctx, "part search done", "part", part, "count", len(found))
		// A stock number counts once per part, however many rows list it
		all = append(all, clean.DedupBy(found, clean.ByStockNumber)...)
	}

	vehicles := clean.MultiPartFilter(all, clean.ByStockNumber)
	if vehicles == nil {
		vehicles = []models.Vehicle{}
	}
	a.logger.InfoContext(ctx, "extracted listings", "count", len(vehicles), "parts", len(a.parts))
	return vehicles
}

// searchPart runs one part search from the landing page to the results table
func (a *CarPart) searchPart(ctx context.Context, drv browser.Driver, part string, years []string) ([]models.Vehicle, error) {
	if err := drv.Navigate(ctx, a.baseURL); err != nil {
		return nil, fmt.Errorf("open search page: %w", err)
	}

	if err := a.selectText(ctx, drv, "#year", years[0]); err != nil {
		return nil, err
	}
	if err := a.selectText(ctx, drv, "#model", a.target.Make+" "+a.target.Model); err != nil {
		return nil, err
	}
	ok, err := drv.SelectByText(ctx, `select[name="userPart"]`, part)
	if err != nil {
		return nil, fmt.Errorf("select part: %w", err)
	}
	if !ok {
		a.logger.WarnContext(ctx, "part not offered", "part", part)
		return nil, nil
	}
	if err := a.selectText(ctx, drv, "#Loc", carPartAllAreas); err != nil {
		return nil, err
	}
	if err := a.submit(ctx, drv); err != nil {
		return nil, err
	}

	html, err := drv.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	if strings.Contains(html, "INVALID SELECTION") {
		a.logger.WarnContext(ctx, "search rejected", "part", part)
		return nil, nil
	}

	if strings.Contains(html, "Non-Interchange search using only "+a.target.Make+" "+a.target.Model) {
		if html, err = a.nonInterchange(ctx, drv, html, years); err != nil {
			return nil, err
		}
	}
	if carPartEmpty(html) {
		return nil, nil
	}

	if strings.Contains(html, "radio") && strings.Contains(html, "dummyVar") {
		if err := drv.ClickNth(ctx, carPartDummyRadio, 0); err != nil {
			return nil, fmt.Errorf("choose part description: %w", err)
		}
		if err := drv.Click(ctx, carPartSubmit); err != nil {
			return nil, fmt.Errorf("submit part description: %w", err)
		}
		if html, err = drv.HTML(ctx); err != nil {
			return nil, fmt.Errorf("read results: %w", err)
		}
		if carPartEmpty(html) {
			return nil, nil
		}
	}

	return a.resultRows(ctx, html, drv.URL(ctx)), nil
}

func (a *CarPart) selectText(ctx context.Context, drv browser.Driver, sel, text string) error {
	ok, err := drv.SelectByText(ctx, sel, text)
	if err != nil {
		return fmt.Errorf("select %s: %w", sel, err)
	}
	if !ok {
		return fmt.Errorf("select %s %q: %w", sel, text, browser.ErrNotFound)
	}
	return nil
}

// submit fills the ZIP and posts the search. A ZIP complaint gets one retry.
func (a *CarPart) submit(ctx context.Context, drv browser.Driver) error {
	const zipField = `input[name="userZip"]`
	if drv.Exists(ctx, zipField) {
		if err := drv.SetValue(ctx, zipField, a.target.Zip); err != nil {
			return fmt.Errorf("fill zip: %w", err)
		}
	}
	if err := drv.Click(ctx, carPartSubmit); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}

	msg, ok := drv.TakeAlert(ctx, carPartAlertWait)
	if !ok {
		return nil
	}
	a.logger.InfoContext(ctx, "search alert", "message", msg)
	if !strings.Contains(strings.ToLower(msg), "zip") {
		return nil
	}
	if err := drv.SetValue(ctx, zipField, a.target.Zip); err != nil {
		return fmt.Errorf("refill zip: %w", err)
	}
	if err := drv.Click(ctx, carPartSubmit); err != nil {
		return fmt.Errorf("resubmit search: %w", err)
	}
	return nil
}

// nonInterchange narrows a model-only search to the target years and resubmits it.
// The first year select gets the first year and the second gets the last.
func (a *CarPart) nonInterchange(ctx context.Context, drv browser.Driver, html string, years []string) (string, error) {
	if err := drv.ClickNth(ctx, `input[type="radio"]`, 1); err != nil {
		return "", fmt.Errorf("choose non-interchange: %w", err)
	}

	doc := a.parse(ctx, html)
	if doc == nil {
		return "", fmt.Errorf("parse non-interchange page")
	}
	first, last := years[0], years[len(years)-1]
	picked := 0
	doc.Find("select[name]").Each(func(_ int, s *goquery.Selection) {
		if picked == 2 || !hasOption(s, first) || !hasOption(s, last) {
			return
		}
		year := first
		if picked == 1 {
			year = last
		}
		sel := fmt.Sprintf(`select[name=%q]`, s.AttrOr("name", ""))
		if err := drv.SelectByValue(ctx, sel, year); err != nil {
			a.logger.WarnContext(ctx, "set year range", "select", sel, "error", err)
			return
		}
		picked++
	})

	if err := drv.Click(ctx, carPartResearch); err != nil {
		return "", fmt.Errorf("submit non-interchange: %w", err)
	}
	out, err := drv.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("read results: %w", err)
	}
	return out, nil
}

func hasOption(s *goquery.Selection, text string) bool {
	found := false
	s.Find("option").EachWithBreak(func(_ int, o *goquery.Selection) bool {
		found = strings.TrimSpace(o.Text()) == text || o.AttrOr("value", "") == text
		return !found
	})
	return found
}

func carPartEmpty(html string) bool {
	return strings.Contains(html, "No parts found") || strings.Contains(html, "0 parts found")
}

// resultRows reads the table headed by Stock# and Price. Cells are
// year/part/model, description, grade, stock#, price, dealer, distance.
func (a *CarPart) resultRows(ctx context.Context, html, pageURL string) []models.Vehicle {
	doc := a.parse(ctx, html)
	if doc == nil {
		return nil
	}
	if pageURL == "" {
		pageURL = a.baseURL
	}

	table, ok := carPartResultTable(doc)
	if !ok {
		a.logger.WarnContext(ctx, "no results table", "url", pageURL)
		return nil
	}

	var vehicles []models.Vehicle
	ownRows(table).Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.ChildrenFiltered("td")
		if cells.Length() < 5 {
			return
		}
		cell := func(n int) string {
			if n >= cells.Length() {
				return ""
			}
			return strings.TrimSpace(cells.Eq(n).Text())
		}

		stock := cell(3)
		if stock == "" || stock == "-" || stock == "N/A" {
			return
		}
		year := carPartYearRe.FindString(cell(0))
		if year != "" && !a.target.InRange(year) {
			return
		}

		var dealer string
		if cells.Length() > 5 {
			inner, _ := cells.Eq(5).Html()
			dealer = extraction.StripTags(inner)
		}
		f := a.dealer.Fields(dealer)
		yard := f.Yard
		if yard == "" {
			yard = firstLine(dealer)
		}

		vehicles = append(vehicles, models.Vehicle{
			UniqueID:    stock,
			StockNumber: models.Str(stock),
			Year:        models.Str(year),
			Make:        models.Str(a.target.Make),
			Model:       models.Str(a.target.Model),
			Location:    models.Str(f.Location),
			Yard:        models.Str(yard),
			SourceURL:   pageURL,
			Price:       carPartPrice(cell(4)),
			ContactInfo: models.Str(f.Contact),
		})
	})
	return vehicles
}

// carPartResultTable finds the first table whose own header row names Stock# and Price
func carPartResultTable(doc *goquery.Document) (*goquery.Selection, bool) {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		header := ownRows(t).First().Clone().Find("table").Remove().End().Text()
		if strings.Contains(header, "Stock#") && strings.Contains(header, "Price") {
			found = t
			return false
		}
		return true
	})
	return found, found != nil
}

// ownRows returns the rows of t, leaving out rows of nested tables
func ownRows(t *goquery.Selection) *goquery.Selection {
	return t.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
		return tr.Closest("table").IsSelection(t)
	})
}

func carPartPrice(raw string) *string {
	switch raw {
	case "", "-", "N/A":
		return nil
	case "Call":
		return models.Str(raw)
	}
	if strings.HasPrefix(raw, "$") {
		return models.Str(raw)
	}
	return models.Str("$" + raw)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// sleep waits d or until ctx is done, reporting whether the full wait elapsed
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
