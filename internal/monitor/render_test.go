package monitor

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

func scan() *models.ScanResult {
	r := models.NewScanResult(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC))
	r.Set("row52", []models.Vehicle{{
		UniqueID: "JHMZE14742T000556",
		Year:     models.Str("2002"),
		Location: models.Str("Fresno"),
		Row:      models.Str("12"),
	}})
	r.Set("lkq", nil)
	r.Reports["lkq"] = models.SiteReport{Status: models.StatusTimeout}
	return r
}

func TestSummary(t *testing.T) {
	var out bytes.Buffer
	Renderer{Out: &out, Title: "Honda Insight"}.Summary(scan())

	s := out.String()
	require.Contains(t, s, "Honda Insight Listings Summary")
	require.Contains(t, s, "ROW52")
	require.Contains(t, s, "found")
	require.Contains(t, s, "LKQ")
	require.Contains(t, s, "timeout")
	require.NotContains(t, s, "No Honda Insight listings found.")
}

func TestSummaryEmpty(t *testing.T) {
	var out bytes.Buffer
	Renderer{Out: &out, Title: "Honda Insight"}.Summary(models.NewScanResult(time.Now()))
	require.Contains(t, out.String(), "No Honda Insight listings found.")
}

func TestDetails(t *testing.T) {
	var out bytes.Buffer
	Renderer{Out: &out}.Details(scan())

	s := out.String()
	require.Contains(t, s, "Detailed Listings - ROW52")
	require.Contains(t, s, "JHMZE14742T000556")
	require.Contains(t, s, "N/A")
	require.NotContains(t, s, "Detailed Listings - LKQ")
}

func TestDiff(t *testing.T) {
	var out bytes.Buffer
	r := Renderer{Out: &out}

	r.Diff(models.Diff{})
	require.Contains(t, out.String(), "No changes")

	out.Reset()
	r.Diff(models.Diff{
		Added:   []models.Vehicle{{UniqueID: "JHMZE14742T000556", Year: models.Str("2002")}},
		Removed: []models.Vehicle{{UniqueID: "JHMZE1474YT000001"}},
	})
	s := out.String()
	require.Contains(t, s, "New listings: 1")
	require.Contains(t, s, "Removed listings: 1")
	require.Contains(t, s, "JHMZE1474YT000001")
}
