package extraction

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/salvage-yard-monitor/internal/fetch/fetchtest"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestWindow(t *testing.T) {
	text := strings.Repeat("a", 50) + "NEEDLE" + strings.Repeat("b", 50)

	w, ok := Window(text, "NEEDLE", 10)
	require.True(t, ok)
	require.Equal(t, strings.Repeat("a", 10)+"NEEDLE"+strings.Repeat("b", 10), w)

	w, ok = Window(text, "NEEDLE", 1000)
	require.True(t, ok)
	require.Equal(t, text, w)

	_, ok = Window(text, "MISSING", 10)
	require.False(t, ok)
	_, ok = Window(text, "", 10)
	require.False(t, ok)
}

func TestStripTags(t *testing.T) {
	got := StripTags(`ass="x">Fresno, CA</td><td>Row 12</td><td class`)
	require.Contains(t, got, "Fresno, CA")
	require.Contains(t, got, "Row 12")
	require.NotContains(t, got, "<")
	require.NotContains(t, got, "class")
}

func TestRulesFirstMatchWins(t *testing.T) {
	rules := Rules{
		R("digits", `(\d+)`, 1),
		Literal("letters", `[a-z]+`),
	}
	v, ok := rules.First("abc 42")
	require.True(t, ok)
	require.Equal(t, "42", v)

	v, ok = rules.First("abc")
	require.True(t, ok)
	require.Equal(t, "letters", v)

	_, ok = rules.First("!!!")
	require.False(t, ok)
}

func TestBaseTables(t *testing.T) {
	testCases := []struct {
		rules    Rules
		text     string
		expected string
	}{
		{LocationRules, "at Fresno, CA today", "Fresno, CA"},
		{LocationRules, "yard in Tacoma WA", "Tacoma WA"},
		{DateRules, "added Jan 5, 2024", "Jan 5, 2024"},
		{DateRules, "added 1/5/2024", "1/5/2024"},
		{DateRules, "added 2024-01-05", "2024-01-05"},
		{PriceRules, "only $1,250.00!", "$1,250.00"},
		{PriceRules, "Price: 300", "300"},
		{ContactRules, "call (555) 123-4567", "(555) 123-4567"},
		{ContactRules, "mail yard@example.com", "yard@example.com"},
		{RowRules, "Row 12", "12"},
	}
	for _, tc := range testCases {
		got, ok := tc.rules.First(tc.text)
		require.True(t, ok, tc.text)
		require.Equal(t, tc.expected, got, tc.text)
	}
}

func TestThenDoesNotAlias(t *testing.T) {
	site := make(Rules, 1, 4)
	site[0] = R("a", `a`, 0)
	x := site.Then(RowRules)
	y := site.Then(DateRules)
	require.Equal(t, "row", x[1].Name)
	require.Equal(t, "month-day-year", y[1].Name)
}

func TestExtractorFields(t *testing.T) {
	ex := NewExtractor(SiteRules{
		Location:         Rules{R("known", `(Fresno|Sacram)`, 1)},
		Yard:             Rules{R("pnp", `PICK-n-PULL\s+([A-Za-z]+)`, 1)},
		DefaultYard:      "Unknown Yard",
		RepairTruncation: true,
	})

	window := `<div class="vehicle"><span>Fresno, CA</span><span>Row 12</span>` +
		`<span>Jan 5, 2024</span><span>PICK-n-PULL Sacram</span></div>`
	got := ex.Fields(window)

	want := Fields{
		Location: "Fresno",
		Yard:     "Sacramento",
		Row:      "12",
		Date:     "Jan 5, 2024",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fields() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractorDefaults(t *testing.T) {
	ex := NewExtractor(SiteRules{DefaultLocation: "Route 34, CT", DefaultYard: "Route 34 U-Pull-M"})
	got := ex.Fields("nothing useful here")
	require.Equal(t, "Route 34, CT", got.Location)
	require.Equal(t, "Route 34 U-Pull-M", got.Yard)
	require.Empty(t, got.Row)
}

func TestGenericListingsSelectorPriority(t *testing.T) {
	doc := parse(t, `<html><body>
		<div class="listing">2002 Honda Insight JHMZE73402S000001 Omaha, NE $500</div>
		<div class="listing">2004 Honda Insight no vin</div>
		<div class="item">ignored</div>
	</body></html>`)

	got := GenericListings(doc, "", GenericQuery{Make: "Honda", Model: "Insight", SourceURL: "https://example.com"})
	require.Len(t, got, 2)
	require.Equal(t, "JHMZE73402S000001", got[0].UniqueID)
	require.Equal(t, "2002", models.Deref(got[0].Year))
	require.Equal(t, "Omaha, NE", models.Deref(got[0].Location))
	require.Equal(t, "$500", models.Deref(got[0].Price))
	require.Equal(t, models.VINNoMatch, got[1].UniqueID)
	require.Equal(t, "https://example.com", got[1].SourceURL)
}

func TestGenericListingsYearMention(t *testing.T) {
	raw := `<html><body><p>We stock the 2003 model</p></body></html>`
	doc := parse(t, raw)
	// The <tr> selector finds nothing; neither does any other.
	got := GenericListings(doc, raw, GenericQuery{Years: []string{"2001", "2003"}, Make: "Honda", Model: "Insight"})
	require.Len(t, got, 1)
	require.Equal(t, models.VINNotDisplayed, got[0].UniqueID)
	require.Equal(t, "2003", models.Deref(got[0].Year))

	require.Empty(t, GenericListings(doc, raw, GenericQuery{Years: []string{"1999"}}))
}

const formPage = `<html><body>
<form action="/search" method="post">
  <input type="hidden" name="token" value="abc">
  <select name="vehicle_make"><option value="">Any</option><option value="7">HONDA</option></select>
  <select name="vehicle_model"><option value="1">ACCORD</option><option value="2">Insite</option></select>
  <select name="year"><option value="2001">2001</option><option value="2002">2002</option></select>
  <input type="text" name="keyword_search">
  <input type="submit" name="go" value="Go">
</form>
</body></html>`

func TestFormFill(t *testing.T) {
	form, ok := FirstForm(parse(t, formPage), "https://yard.example.com/inventory/")
	require.True(t, ok)
	require.Equal(t, "https://yard.example.com/search", form.Action)
	require.Equal(t, http.MethodPost, form.Method)

	values := form.Fill(FormTarget{Make: "Honda", Model: "Insight", Year: "2002"})
	require.Equal(t, "abc", values.Get("token"))
	require.Equal(t, "7", values.Get("vehicle_make"))
	// "Insite" is close enough for the fuzzy fallback
	require.Equal(t, "2", values.Get("vehicle_model"))
	require.Equal(t, "2002", values.Get("year"))
	require.Equal(t, "Honda Insight", values.Get("keyword_search"))
	require.False(t, values.Has("go"))
}

func TestFormFillKeepsPresets(t *testing.T) {
	form, ok := FirstForm(parse(t, `<form><input name="make"><input name="q"></form>`), "https://x.example.com/p")
	require.True(t, ok)
	require.Equal(t, http.MethodGet, form.Method)
	require.Equal(t, "https://x.example.com/p", form.Action)

	values := form.Fill(FormTarget{Make: "Honda", Model: "Insight", Query: "insight", Presets: map[string][]string{"make": {"HONDA"}}})
	require.Equal(t, "HONDA", values.Get("make"))
	require.Equal(t, "insight", values.Get("q"))
}

func TestFormSubmit(t *testing.T) {
	fake := fetchtest.New(map[string]string{"https://yard.example.com/search": "ok"})
	form := &Form{Action: "https://yard.example.com/search", Method: http.MethodPost}

	resp := form.Submit(context.Background(), fake, map[string][]string{"q": {"insight"}})
	require.NotNil(t, resp)
	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPost, reqs[0].Method)
	require.Equal(t, "insight", reqs[0].Values.Get("q"))
}

func TestFirstFormMissing(t *testing.T) {
	_, ok := FirstForm(parse(t, `<p>no form</p>`), "https://x.example.com")
	require.False(t, ok)
}

func TestSplitYMM(t *testing.T) {
	testCases := []struct {
		text     string
		expected YMM
	}{
		{"2002HONDAINSIGHT", YMM{Year: "2002", Make: "HONDA", Model: "INSIGHT", Tier: SplitVocabulary}},
		{"2004Hondainsight", YMM{Year: "2004", Make: "HONDA", Model: "insight", Tier: SplitVocabulary}},
		{"2001SAAB9", YMM{Year: "2001", Make: "SAAB", Model: "9", Tier: SplitRegex}},
		{"2003saabnine", YMM{Year: "2003", Make: "saab", Model: "nine", Tier: SplitMidpoint}},
		{"2005HONDAINSIGHTHYBRIDCOUPEEDITION", YMM{Year: "2005", Make: "HONDA", Model: "INSIGHTHYBRIDCOUPEED", Tier: SplitVocabulary}},
	}
	for _, tc := range testCases {
		got, ok := SplitYMM(tc.text, DefaultMakes)
		require.True(t, ok, tc.text)
		if diff := cmp.Diff(tc.expected, got); diff != "" {
			t.Errorf("SplitYMM(%q) mismatch (-want +got):\n%s", tc.text, diff)
		}
	}

	_, ok := SplitYMM("HONDA", DefaultMakes)
	require.False(t, ok)
	_, ok = SplitYMM("2002", DefaultMakes)
	require.False(t, ok)
}
