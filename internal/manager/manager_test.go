package manager

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/williampepple1/salvage-yard-monitor/internal/adapters"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

type stubAdapter struct {
	name   string
	scrape func(ctx context.Context) []models.Vehicle
	closed atomic.Int32
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) ScrapeListings(ctx context.Context) []models.Vehicle { return s.scrape(ctx) }

func (s *stubAdapter) Close() error {
	s.closed.Add(1)
	return nil
}

func returning(vs ...models.Vehicle) func(context.Context) []models.Vehicle {
	return func(context.Context) []models.Vehicle { return vs }
}

func vehicle(id, year, location, price string) models.Vehicle {
	return models.Vehicle{
		UniqueID: id,
		Year:     models.Str(year),
		Location: models.Str(location),
		Price:    models.Str(price),
	}
}

func newManager(as ...adapters.Adapter) *Manager {
	return New(adapters.NewFrom(as...), Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC) },
	})
}

func TestScrapeAllIsolatesFailures(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	m := newManager(
		&stubAdapter{name: "good", scrape: returning(vehicle("JHMZE14742T000556", "2002", "Fresno, CA", "$100"))},
		&stubAdapter{name: "panics", scrape: func(context.Context) []models.Vehicle { panic("boom") }},
		&stubAdapter{name: "hangs", scrape: func(context.Context) []models.Vehicle {
			<-release
			return nil
		}},
		&stubAdapter{name: "empty", scrape: returning()},
	)

	result := m.ScrapeAll(context.Background(), 2, 50*time.Millisecond)

	require.Equal(t, []string{"good", "panics", "hangs", "empty"}, result.SiteNames())
	require.Len(t, result.Site("good"), 1)
	require.Empty(t, result.Site("panics"))
	require.Empty(t, result.Site("hangs"))
	require.NotNil(t, result.Site("empty"))
	require.Equal(t, 1, result.TotalCount())

	require.Equal(t, models.StatusOK, result.Reports["good"].Status)
	require.Equal(t, 1, result.Reports["good"].Count)
	require.Equal(t, models.StatusError, result.Reports["panics"].Status)
	require.Contains(t, result.Reports["panics"].Error, "boom")
	require.Equal(t, models.StatusTimeout, result.Reports["hangs"].Status)
	require.Equal(t, models.StatusOK, result.Reports["empty"].Status)
	require.Equal(t, []string{"panics", "hangs", "empty"}, SitesWithoutResults(result))
}

func TestScrapeAllCleansResults(t *testing.T) {
	m := newManager(&stubAdapter{name: "s", scrape: returning(
		vehicle(" jhmze14742t000556 ", "2002", "Sacram", "  $1,250.00 "),
		vehicle("", "2001", "Portland", "Call"),
	)})

	result := m.ScrapeAll(context.Background(), 1, time.Second)
	got := result.Site("s")
	require.Len(t, got, 2)
	require.Equal(t, "JHMZE14742T000556", got[0].UniqueID)
	require.Equal(t, "Sacramento", models.Deref(got[0].Location))
	require.Equal(t, "$1,250.00", models.Deref(got[0].Price))
	require.Equal(t, models.VINNotFound, got[1].UniqueID)
}

func TestScrapeAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newManager(&stubAdapter{name: "s", scrape: returning(vehicle("x", "2002", "", ""))})
	result := m.ScrapeAll(ctx, 1, time.Second)
	require.Empty(t, result.Site("s"))
	require.Equal(t, models.StatusError, result.Reports["s"].Status)
}

func TestScrapeSite(t *testing.T) {
	m := newManager(&stubAdapter{name: "s", scrape: returning(vehicle("JHMZE14742T000556", "2002", "Fresno", ""))})

	got, err := m.ScrapeSite(context.Background(), "s")
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = m.ScrapeSite(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUnknownSite)
}

func TestScrapeSitePanics(t *testing.T) {
	m := newManager(&stubAdapter{name: "s", scrape: func(context.Context) []models.Vehicle { panic("bad page") }})

	got, err := m.ScrapeSite(context.Background(), "s")
	require.Error(t, err)
	require.Empty(t, got)
}

func sampleResult() *models.ScanResult {
	r := models.NewScanResult(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	r.Set("row52", []models.Vehicle{
		vehicle("A", "2002", "Fresno, CA", "$900"),
		vehicle("B", "2001", "fresno", "Call"),
		vehicle("C", "2002", "Portland", "$1,500"),
	})
	r.Set("lkq", []models.Vehicle{vehicle("D", "2000", "Monrovia", "")})
	r.Set("fenix", nil)
	return r
}

func TestGetStatistics(t *testing.T) {
	stats := GetStatistics(sampleResult())

	require.Equal(t, 4, stats.TotalCount)
	require.Equal(t, 3, stats.SitesScraped)
	require.Equal(t, 2, stats.SitesWithResults)
	require.Equal(t, 1, stats.SitesWithoutResults)

	expected := models.SiteStats{
		Count:     3,
		Years:     []string{"2001", "2002"},
		Locations: []string{"Fresno, CA", "Portland", "fresno"},
		Yards:     []string{},
	}
	if diff := cmp.Diff(expected, stats.PerSite["row52"]); diff != "" {
		t.Errorf("row52 stats mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 0, stats.PerSite["fenix"].Count)
}

func TestFilterResults(t *testing.T) {
	maxPrice := 1000.0
	testCases := []struct {
		name     string
		filter   Filter
		expected map[string][]string
	}{
		{
			name:     "year",
			filter:   Filter{Year: "2002"},
			expected: map[string][]string{"row52": {"A", "C"}, "lkq": {}, "fenix": {}},
		},
		{
			name:     "location is case-insensitive",
			filter:   Filter{Location: "FRESNO"},
			expected: map[string][]string{"row52": {"A", "B"}, "lkq": {}, "fenix": {}},
		},
		{
			name:     "unparseable prices pass",
			filter:   Filter{MaxPrice: &maxPrice},
			expected: map[string][]string{"row52": {"A", "B"}, "lkq": {"D"}, "fenix": {}},
		},
		{
			name:     "combined",
			filter:   Filter{Year: "2002", Location: "fresno", MaxPrice: &maxPrice},
			expected: map[string][]string{"row52": {"A"}, "lkq": {}, "fenix": {}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterResults(sampleResult(), tc.filter)
			require.Equal(t, []string{"row52", "lkq", "fenix"}, got.SiteNames())

			ids := make(map[string][]string)
			for _, name := range got.SiteNames() {
				ids[name] = []string{}
				for _, v := range got.Site(name) {
					ids[name] = append(ids[name], v.UniqueID)
				}
			}
			if diff := cmp.Diff(tc.expected, ids); diff != "" {
				t.Errorf("filtered ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSiteInfoAndValidate(t *testing.T) {
	m := newManager(&stubAdapter{name: "a", scrape: returning()}, &stubAdapter{name: "b", scrape: returning()})

	require.Equal(t, []adapters.Info{{Name: "a", DisplayName: "a"}, {Name: "b", DisplayName: "b"}}, m.SiteInfo())
	require.Equal(t, map[string]bool{"a": true, "b": true}, m.Validate())
	require.Equal(t, []string{"a", "b"}, m.Names())

	got, ok := m.Adapter("b")
	require.True(t, ok)
	require.Equal(t, "b", got.Name())
	_, ok = m.Adapter("c")
	require.False(t, ok)
}

func TestCloseOnce(t *testing.T) {
	a := &stubAdapter{name: "a", scrape: returning()}
	m := newManager(a)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.Equal(t, int32(1), a.closed.Load())
}
