package extraction

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/williampepple1/salvage-yard-monitor/internal/vin"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// ListingSelectors are tried in this order by GenericListings
var ListingSelectors = []string{
	".vehicle-listing",
	".listing",
	".vehicle",
	".inventory-item",
	".part-listing",
	".result",
	".item",
	"tr",
	".car-listing",
}

var yearRe = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

// GenericQuery describes what GenericListings is looking for
type GenericQuery struct {
	Selectors []string
	Years     []string
	Make      string
	Model     string
	SourceURL string
}

// GenericListings extracts listings from pages without a known structure. It stops at the
// first selector producing any vehicles. With no structured match, a mention of a target
// year yields at most one low-confidence record.
func GenericListings(doc *goquery.Document, rawHTML string, q GenericQuery) []models.Vehicle {
	selectors := q.Selectors
	if len(selectors) == 0 {
		selectors = ListingSelectors
	}

	if doc != nil {
		for _, sel := range selectors {
			var vehicles []models.Vehicle
			doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
				vehicles = append(vehicles, listingFromText(s.Text(), q))
			})
			if len(vehicles) > 0 {
				return vehicles
			}
		}
	}

	for _, year := range q.Years {
		if strings.Contains(rawHTML, year) {
			return []models.Vehicle{{
				UniqueID:  models.VINNotDisplayed,
				Year:      models.Str(year),
				Make:      models.Str(q.Make),
				Model:     models.Str(q.Model),
				SourceURL: q.SourceURL,
			}}
		}
	}
	return nil
}

func listingFromText(text string, q GenericQuery) models.Vehicle {
	id := models.VINNoMatch
	if vins := vin.FindAll(text, ""); len(vins) > 0 {
		id = vins[0]
	}
	loc, _ := LocationRules.First(text)
	date, _ := DateRules.First(text)
	price, _ := PriceRules.First(text)

	return models.Vehicle{
		UniqueID:  id,
		Year:      models.Str(yearRe.FindString(text)),
		Make:      models.Str(q.Make),
		Model:     models.Str(q.Model),
		Location:  models.Str(loc),
		DateAdded: models.Str(date),
		Price:     models.Str(price),
		SourceURL: q.SourceURL,
	}
}
