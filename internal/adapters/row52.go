package adapters

import (
	"fmt"
	"net/url"

	"github.com/williampepple1/salvage-yard-monitor/internal/extraction"
)

const row52Base = "https://www.row52.com"

// Row52 make and model ids for Honda Insight
const (
	row52MakeID  = "145"
	row52ModelID = "2466"
)

// Row52 scrapes the row52.com search page
type Row52 struct {
	*PageAdapter
}

// NewRow52 creates the row52 adapter
func NewRow52(deps Deps) *Row52 {
	rules := extraction.SiteRules{
		Location: extraction.Rules{
			extraction.R("known-city", `(Fresno|Arlington|Tacoma|Vancouver|Fairfield|Rancho Cordova|Sacramento|Portland|Seattle|San Francisco)`, 1),
			extraction.R("truncated-city", `(Arlingto|Vancouve|Fairfiel|Rancho C|Sacram|Portlan|Seattl)`, 1),
			extraction.R("capitalised", `([A-Z][a-z]{4,})[ \t]*(?:,[ \t]*[A-Z]{2})?`, 1),
		},
		Yard: extraction.Rules{
			extraction.R("pick-n-pull", `PICK-n-PULL[ \t]+([A-Za-z][A-Za-z ]*)`, 1),
			extraction.R("truncated-yard", `(Arlingto|Vancouve|Fairfiel|Rancho C|Sacram|Portlan|Seattl|Fresno|Tacoma)`, 1),
		},
		RepairTruncation: true,
	}
	return &Row52{PageAdapter: newPageAdapter(
		Info{Name: "row52", DisplayName: "Row52"},
		deps, row52SearchURL(deps.Target), rules,
	)}
}

func row52SearchURL(t Target) string {
	q := url.Values{}
	q.Set("YMMorVin", "YMM")
	q.Set("Year", fmt.Sprintf("%d-%d", t.YearMin, t.YearMax))
	for i := 1; i <= 17; i++ {
		q.Set(fmt.Sprintf("V%d", i), "")
	}
	q.Set("ZipCode", "")
	q.Set("Page", "1")
	q.Set("ModelId", row52ModelID)
	q.Set("MakeId", row52MakeID)
	q.Set("LocationId", "")
	q.Set("IsVin", "false")
	q.Set("Distance", "50")
	return row52Base + "/Search/?" + q.Encode()
}

// DetailURL returns the vehicle page for a VIN
func (a *Row52) DetailURL(vin string) string {
	return row52Base + "/Vehicle/" + url.PathEscape(vin)
}
