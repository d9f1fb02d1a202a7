// Package monitor renders scan results for the terminal.
package monitor

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/williampepple1/salvage-yard-monitor/internal/manager"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// Renderer writes tables to Out
type Renderer struct {
	Out io.Writer
	// Title names the vehicle family in headings, e.g. "Honda Insight"
	Title string
}

func (r Renderer) title() string {
	if r.Title == "" {
		return "Vehicle"
	}
	return r.Title
}

func (r Renderer) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.Out)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// Summary prints one row per site
func (r Renderer) Summary(result *models.ScanResult) {
	if result.TotalCount() == 0 {
		fmt.Fprintf(r.Out, "No %s listings found.\n", r.title())
	}

	stats := manager.GetStatistics(result)
	t := r.newTable(r.title() + " Listings Summary")
	t.AppendHeader(table.Row{"Site", "Status", "Vehicles Found", "Years", "Locations"})
	for _, name := range result.SiteNames() {
		s := stats.PerSite[name]
		t.AppendRow(table.Row{
			strings.ToUpper(name),
			siteStatus(result, name),
			s.Count,
			strings.Join(s.Years, ", "),
			len(s.Locations),
		})
	}
	t.AppendFooter(table.Row{"Total", "", stats.TotalCount, "", ""})
	t.Render()
}

func siteStatus(result *models.ScanResult, name string) string {
	rep, ok := result.Reports[name]
	switch {
	case ok && rep.Status != models.StatusOK:
		return rep.Status.String()
	case len(result.Site(name)) > 0:
		return "found"
	default:
		return "none"
	}
}

// Details prints every listing of each site that has any
func (r Renderer) Details(result *models.ScanResult) {
	for _, name := range result.SiteNames() {
		vehicles := result.Site(name)
		if len(vehicles) == 0 {
			continue
		}
		t := r.newTable("Detailed Listings - " + strings.ToUpper(name))
		t.AppendHeader(table.Row{"Year", "VIN", "Location", "Yard", "Row", "Date Added", "Price"})
		for _, v := range vehicles {
			t.AppendRow(table.Row{
				orNA(v.Year), v.UniqueID, orNA(v.Location), orNA(v.Yard),
				orNA(v.Row), orNA(v.DateAdded), orNA(v.Price),
			})
		}
		t.Render()
	}
}

// Diff prints the listings that appeared and disappeared since the previous scan
func (r Renderer) Diff(diff models.Diff) {
	if len(diff.Added) == 0 && len(diff.Removed) == 0 {
		fmt.Fprintln(r.Out, "No changes since the previous scan.")
		return
	}
	if len(diff.Added) > 0 {
		t := r.newTable(fmt.Sprintf("New listings: %d", len(diff.Added)))
		t.AppendHeader(table.Row{"Year", "VIN", "Location", "Source"})
		for _, v := range diff.Added {
			t.AppendRow(table.Row{orNA(v.Year), v.UniqueID, orNA(v.Location), v.SourceURL})
		}
		t.Render()
	}
	if len(diff.Removed) > 0 {
		t := r.newTable(fmt.Sprintf("Removed listings: %d", len(diff.Removed)))
		t.AppendHeader(table.Row{"Year", "VIN", "Location", "Source"})
		for _, v := range diff.Removed {
			t.AppendRow(table.Row{orNA(v.Year), v.UniqueID, orNA(v.Location), v.SourceURL})
		}
		t.Render()
	}
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return "N/A"
	}
	return *s
}
