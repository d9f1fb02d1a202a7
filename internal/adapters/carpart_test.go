package adapters

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/salvage-yard-monitor/internal/browser"
	"github.com/williampepple1/salvage-yard-monitor/internal/browser/browsertest"
	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/internal/fetch/fetchtest"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

const carPartLanding = `<html><body><form>
<select id="year"><option>1999</option><option>2000</option><option>2001</option></select>
<select id="model"><option>Honda Civic</option><option>Honda Insight</option></select>
<select name="userPart"><option>A Pillar</option><option>Fender</option></select>
<select id="Loc"><option>All Areas/Select an Area</option><option>Albany</option></select>
<input type="text" name="userZip">
<input type="image" src="search.gif">
</form></body></html>`

const carPartDisambiguation = `<html><body><form>
<input type="radio" name="dummyVar" value="1"> Fender, Left
<input type="radio" name="dummyVar" value="2"> Fender, Right
<input type="image" src="search.gif">
</form></body></html>`

func carPartResults(rows string) string {
	return `<html><body><table><tr><td>
<table>
<tr><th>Year Part Model</th><th>Description</th><th>Grade</th><th>Stock#</th><th>Price</th><th>Dealer Info</th><th>Dist</th></tr>
` + rows + `
</table>
</td></tr></table></body></html>`
}

const (
	rowABC = `<tr><td>2002 Honda Insight</td><td>Left</td><td>A</td><td>ABC123</td><td>450</td>` +
		`<td>Best Auto Salvage<br>Fresno, CA 93706<br>(559) 555-0100</td><td>12</td></tr>`
	rowXYZ = `<tr><td>2001 Honda Insight</td><td>Left</td><td>B</td><td>XYZ789</td><td>Call</td>` +
		`<td>Call Joe<br>Reno NV</td><td>200</td></tr>`
	rowNoStock = `<tr><td>2003 Honda Insight</td><td>Left</td><td>B</td><td>-</td><td>100</td><td>Somewhere</td><td>1</td></tr>`
)

func carPartDeps(drv browser.Driver) Deps {
	deps := testDeps(fetchtest.New(nil))
	deps.OpenDriver = func(ctx context.Context) (browser.Driver, error) { return drv, nil }
	return deps
}

func carPartConfig(parts ...string) config.BrowserConfig {
	return config.BrowserConfig{Enabled: true, BaseURL: carPartURL, Parts: parts}
}

func TestCarPartKeepsVehiclesWithEveryPart(t *testing.T) {
	drv := &browsertest.Fake{
		Pages:  map[string]string{carPartURL: carPartLanding},
		Alerts: []string{"Please enter a valid ZIP code"},
		OnClick: func(c browsertest.Click) (string, bool) {
			switch c.Selected[`select[name="userPart"]`] {
			case "A Pillar":
				// the ZIP alert keeps the first submit on the search page
				if c.Count == 1 {
					return "", false
				}
				return carPartResults(rowABC + rowXYZ + rowNoStock), true
			case "Fender":
				if c.Count == 1 {
					return carPartDisambiguation, true
				}
				return carPartResults(rowABC), true
			}
			return "<p>No parts found</p>", true
		},
	}
	a := NewCarPart(carPartDeps(drv), carPartConfig("A Pillar", "Fender", "Steering Wheel"))

	got := a.ScrapeListings(context.Background())
	expected := []models.Vehicle{{
		UniqueID:    "ABC123",
		StockNumber: models.Str("ABC123"),
		Year:        models.Str("2002"),
		Make:        models.Str("Honda"),
		Model:       models.Str("Insight"),
		Location:    models.Str("Fresno, CA"),
		Yard:        models.Str("Best Auto Salvage"),
		SourceURL:   carPartURL,
		Price:       models.Str("$450"),
		ContactInfo: models.Str("(559) 555-0100"),
	}}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("listings mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, drv.Closed())

	actions := drv.Actions()
	require.Contains(t, actions, "select #year 2000")
	require.Contains(t, actions, "select #model Honda Insight")
	require.Contains(t, actions, "alert Please enter a valid ZIP code")
	require.Contains(t, actions, `click input[type="radio"][name="dummyVar"] 0`)

	zipFills := 0
	for _, action := range actions {
		if action == `set input[name="userZip"] 10001` {
			zipFills++
		}
	}
	// two parts searched, plus one retry after the alert
	require.Equal(t, 3, zipFills)
}

func TestCarPartResultRows(t *testing.T) {
	a := NewCarPart(carPartDeps(&browsertest.Fake{}), carPartConfig())

	got := a.resultRows(context.Background(), carPartResults(rowABC+rowXYZ+rowNoStock), "https://car-part.com/cgi-bin/search.cgi")
	require.Len(t, got, 2)

	xyz := got[1]
	require.Equal(t, "XYZ789", xyz.UniqueID)
	require.Equal(t, "2001", models.Deref(xyz.Year))
	require.Equal(t, "Call", models.Deref(xyz.Price))
	require.Equal(t, "Reno NV", models.Deref(xyz.Location))
	require.Equal(t, "Joe", models.Deref(xyz.Yard))
	require.Equal(t, "https://car-part.com/cgi-bin/search.cgi", xyz.SourceURL)
}

func TestCarPartPrice(t *testing.T) {
	testCases := []struct {
		raw      string
		expected *string
	}{
		{raw: "", expected: nil},
		{raw: "-", expected: nil},
		{raw: "N/A", expected: nil},
		{raw: "Call", expected: models.Str("Call")},
		{raw: "125", expected: models.Str("$125")},
		{raw: "$90", expected: models.Str("$90")},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, carPartPrice(tc.raw), tc.raw)
	}
}

func TestCarPartInvalidSelection(t *testing.T) {
	drv := &browsertest.Fake{
		Pages: map[string]string{carPartURL: carPartLanding},
		OnClick: func(browsertest.Click) (string, bool) {
			return "<p>INVALID SELECTION</p>", true
		},
	}
	a := NewCarPart(carPartDeps(drv), carPartConfig("A Pillar"))

	got, err := a.searchPart(context.Background(), drv, "A Pillar", []string{"2000"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestCarPartNonInterchange(t *testing.T) {
	narrow := `<html><body><form>
<p>Non-Interchange search using only Honda Insight</p>
<input type="radio" name="mode" value="i"><input type="radio" name="mode" value="n">
<select name="startYear"><option>2000</option><option>2006</option></select>
<select name="endYear"><option>2000</option><option>2006</option></select>
<input type="submit" value="SEARCH">
</form></body></html>`
	drv := &browsertest.Fake{
		Pages: map[string]string{carPartURL: carPartLanding},
		OnClick: func(c browsertest.Click) (string, bool) {
			if c.Count == 1 {
				return narrow, true
			}
			return carPartResults(rowABC), true
		},
	}
	a := NewCarPart(carPartDeps(drv), carPartConfig("A Pillar"))

	got, err := a.searchPart(context.Background(), drv, "A Pillar", []string{"2000", "2003", "2006"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "ABC123", got[0].UniqueID)

	actions := drv.Actions()
	require.Contains(t, actions, `click input[type="radio"] 1`)
	require.Contains(t, actions, `select select[name="startYear"] 2000`)
	require.Contains(t, actions, `select select[name="endYear"] 2006`)
}

func TestCarPartBrowserUnavailable(t *testing.T) {
	deps := testDeps(fetchtest.New(nil))
	deps.OpenDriver = func(ctx context.Context) (browser.Driver, error) {
		return nil, errors.New("no chrome")
	}

	got := NewCarPart(deps, carPartConfig()).ScrapeListings(context.Background())
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestCarPartHTTP(t *testing.T) {
	form := `<form action="/cgi-bin/search.cgi" method="post">
<select name="year"><option>2001</option><option>2002</option></select>
<select name="model"><option value="HI">Honda Insight</option></select>
<input type="image" name="go" src="go.gif">
</form>`
	listing := `<tr><td>` + insightVIN + `</td><td>Best Auto Parts<br>Fresno, CA 93706<br>(559) 555-0100</td></tr>`

	fake := &fetchtest.Fake{
		Handler: func(method, rawURL string, values url.Values) (string, bool) {
			if method == http.MethodGet {
				return form, true
			}
			if values.Get("year") == "2002" {
				return listing, true
			}
			return "<p>nothing</p>", true
		},
	}
	deps := testDeps(fake)
	deps.Target.YearMin, deps.Target.YearMax = 2001, 2002

	got := NewCarPartHTTP(deps, config.SitesConfig{CarPartWorkers: 2}).ScrapeListings(context.Background())
	require.Len(t, got, 1)
	require.Equal(t, insightVIN, got[0].UniqueID)
	require.Equal(t, "Fresno, CA 93706", models.Deref(got[0].Location))
	require.Equal(t, "Best Auto Parts", models.Deref(got[0].Yard))
	require.Equal(t, "(559) 555-0100", models.Deref(got[0].ContactInfo))

	var posts []fetchtest.Request
	for _, r := range fake.Requests() {
		if r.Method == http.MethodPost {
			posts = append(posts, r)
		}
	}
	require.Len(t, posts, 2)
	for _, p := range posts {
		require.Equal(t, carPartSearchURL, p.URL)
		require.Equal(t, "HI", p.Values.Get("model"))
		require.Equal(t, p.Values.Get("year"), p.Values.Get("yearend"))
		require.Equal(t, "10001", p.Values.Get("userZip"))
		require.Equal(t, "distance", p.Values.Get("sort"))
	}
}

func TestCarPartHTTPSameVehicleEveryYear(t *testing.T) {
	form := `<form action="/cgi-bin/search.cgi" method="post">
<select name="year"><option>2000</option><option>2006</option></select>
<input type="submit" value="Search">
</form>`
	listing := `<tr><td>` + insightVIN + `</td><td>Best Auto Parts<br>Fresno, CA 93706</td></tr>`

	fake := &fetchtest.Fake{
		Handler: func(method, rawURL string, values url.Values) (string, bool) {
			if method == http.MethodGet {
				return form, true
			}
			// interchange results ignore the searched year
			return listing, true
		},
	}
	deps := testDeps(fake)
	deps.Target.YearMin, deps.Target.YearMax = 2000, 2006

	got := NewCarPartHTTP(deps, config.SitesConfig{CarPartWorkers: 3}).ScrapeListings(context.Background())
	require.Len(t, got, 1)
	require.Equal(t, insightVIN, got[0].UniqueID)
	require.Len(t, fake.Requests(), 8)
}

func TestCarPartRepeatedRowsCountOncePerPart(t *testing.T) {
	drv := &browsertest.Fake{
		Pages: map[string]string{carPartURL: carPartLanding},
		OnClick: func(c browsertest.Click) (string, bool) {
			switch c.Selected[`select[name="userPart"]`] {
			case "A Pillar":
				return carPartResults(rowABC + rowABC + rowXYZ), true
			case "Fender":
				return carPartResults(rowXYZ), true
			}
			return "<p>No parts found</p>", true
		},
	}
	a := NewCarPart(carPartDeps(drv), carPartConfig("A Pillar", "Fender"))

	got := a.ScrapeListings(context.Background())
	require.Len(t, got, 1)
	require.Equal(t, "XYZ789", got[0].UniqueID)
}
