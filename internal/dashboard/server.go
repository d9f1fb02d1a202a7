package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/williampepple1/salvage-yard-monitor/internal/io"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// Scanner runs a full scan
type Scanner interface {
	ScrapeAll(ctx context.Context, workers int, timeout time.Duration) *models.ScanResult
}

// Snapshots persists and reloads scans
type Snapshots interface {
	Save(result *models.ScanResult, name string) (string, error)
	Latest() (string, error)
	Load(path string) (*models.ScanResult, error)
}

// Options configure a Server
type Options struct {
	State       *State
	Scanner     Scanner
	Store       Snapshots
	CacheTTL    time.Duration
	ScanWorkers int
	ScanTimeout time.Duration
	Title       string
	Logger      *slog.Logger
	Now         func() time.Time
}

// Server is the dashboard HTTP surface
type Server struct {
	opts Options
	// ctx bounds background scans, which outlive the request that started them
	ctx    context.Context
	logger *slog.Logger
	scans  sync.WaitGroup
}

// NewServer creates a Server. Scans started through it stop when ctx is done.
func NewServer(ctx context.Context, opts Options) *Server {
	if opts.State == nil {
		opts.State = &State{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.ScanWorkers <= 0 {
		opts.ScanWorkers = 9
	}
	if opts.ScanTimeout <= 0 {
		opts.ScanTimeout = 300 * time.Second
	}
	if opts.Title == "" {
		opts.Title = "Honda Insight"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{opts: opts, ctx: ctx, logger: opts.Logger}
}

// Handler returns the routed, instrumented handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/listings", s.handleListings)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return Chain(mux, Recover(s.logger), Logger(s.logger), OTel("dashboard"))
}

// Wait blocks until background scans have finished
func (s *Server) Wait() {
	s.scans.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// current returns the cached scan, reloading the latest snapshot when the cache is
// empty or older than the TTL
func (s *Server) current(ctx context.Context) Snapshot {
	snap := s.opts.State.Snapshot()
	if snap.Result != nil && s.opts.Now().Sub(snap.LoadedAt) <= s.opts.CacheTTL {
		return snap
	}
	if s.opts.Store == nil {
		return snap
	}

	path, err := s.opts.Store.Latest()
	if err != nil {
		if !errors.Is(err, io.ErrNoSnapshots) {
			s.logger.ErrorContext(ctx, "find latest snapshot", "error", err)
		}
		return snap
	}
	result, err := s.opts.Store.Load(path)
	if err != nil {
		s.logger.ErrorContext(ctx, "load snapshot", "path", path, "error", err)
		return snap
	}
	s.opts.State.Cache(result, s.opts.Now())
	s.logger.InfoContext(ctx, "loaded snapshot", "path", path, "total", result.TotalCount())
	return s.opts.State.Snapshot()
}

type siteListings struct {
	Count    int              `json:"count"`
	Listings []models.Vehicle `json:"listings"`
}

type listingsResponse struct {
	Listings       []models.Vehicle             `json:"listings"`
	BySite         map[string]siteListings      `json:"by_site"`
	TotalCount     int                          `json:"total_count"`
	LastUpdated    *time.Time                   `json:"last_updated"`
	ScanInProgress bool                         `json:"scan_in_progress"`
	Reports        map[string]models.SiteReport `json:"reports,omitempty"`
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	snap := s.current(r.Context())
	res := listingsResponse{
		Listings:       []models.Vehicle{},
		BySite:         map[string]siteListings{},
		ScanInProgress: snap.Scanning,
	}
	if snap.Result != nil {
		if all := snap.Result.All(); all != nil {
			res.Listings = all
		}
		for _, name := range snap.Result.SiteNames() {
			vs := snap.Result.Site(name)
			res.BySite[name] = siteListings{Count: len(vs), Listings: vs}
		}
		res.TotalCount = snap.Result.TotalCount()
		res.Reports = snap.Result.Reports
		last := snap.LastScan
		res.LastUpdated = &last
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	id, err := s.opts.State.Begin()
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Scan already in progress"})
		return
	}

	s.scans.Add(1)
	go s.scan(id)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "scan_id": id})
}

func (s *Server) scan(id string) {
	defer s.scans.Done()
	logger := s.logger.With("scan_id", id)
	logger.InfoContext(s.ctx, "starting background scan")

	var result *models.ScanResult
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorContext(s.ctx, "background scan panicked", "error", r)
			result = nil
		}
		s.opts.State.Finish(result, s.opts.Now())
	}()

	result = s.opts.Scanner.ScrapeAll(s.ctx, s.opts.ScanWorkers, s.opts.ScanTimeout)
	logger.InfoContext(s.ctx, "background scan completed",
		"total", result.TotalCount(), "sites", len(result.SiteNames()))

	if s.opts.Store != nil {
		path, err := s.opts.Store.Save(result, "")
		if err != nil {
			logger.ErrorContext(s.ctx, "save results", "error", err)
			return
		}
		logger.InfoContext(s.ctx, "results saved", "path", path)
	}
}

type statusResponse struct {
	ScanInProgress bool       `json:"scan_in_progress"`
	LastScanTime   *time.Time `json:"last_scan_time"`
	CachedCount    int        `json:"cached_count"`
	SitesCount     int        `json:"sites_count"`
	ScanID         string     `json:"scan_id,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.opts.State.Snapshot()
	res := statusResponse{ScanInProgress: snap.Scanning, ScanID: snap.ScanID}
	if snap.Result != nil {
		last := snap.LastScan
		res.LastScanTime = &last
		res.CachedCount = snap.Result.TotalCount()
		res.SitesCount = len(snap.Result.SiteNames())
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.current(r.Context())
	result := snap.Result
	if result == nil {
		result = models.NewScanResult(s.opts.Now())
	}

	// Listings per site
	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    s.opts.Title + " Listings",
		Subtitle: "by site",
	}))
	var sites []string
	var counts []opts.BarData
	for _, name := range result.SiteNames() {
		sites = append(sites, name)
		counts = append(counts, opts.BarData{Value: len(result.Site(name))})
	}
	bar.SetXAxis(sites).AddSeries("Listings", counts)

	// Listings per model year
	pie := charts.NewPie()
	pie.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: "Model Years"}))
	years := make(map[string]int)
	for _, v := range result.All() {
		year := models.Deref(v.Year)
		if year == "" {
			year = "unknown"
		}
		years[year]++
	}
	keys := make([]string, 0, len(years))
	for y := range years {
		keys = append(keys, y)
	}
	sort.Strings(keys)
	var slices []opts.PieData
	for _, y := range keys {
		slices = append(slices, opts.PieData{Name: y, Value: years[y]})
	}
	pie.AddSeries("Vehicles", slices)

	page := components.NewPage()
	page.PageTitle = s.opts.Title + " Monitor"
	page.AddCharts(bar, pie)
	if err := page.Render(w); err != nil {
		s.logger.ErrorContext(r.Context(), "render dashboard", "error", err)
	}
}
