package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/williampepple1/salvage-yard-monitor/internal/config"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// ErrNoSnapshots is returned by Latest when the directory holds no snapshot files
var ErrNoSnapshots = errors.New("no snapshots found")

// legacyTimeLayout is the timezone-less ISO layout older snapshots were written with
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

// Store reads and writes scan snapshots in a directory
type Store struct {
	Dir    string
	Prefix string
	// Now is used to stamp scraped_at and default file names
	Now func() time.Time
}

// NewStore creates a store from the snapshot configuration
func NewStore(cfg config.SnapshotConfig) *Store {
	return &Store{Dir: cfg.Dir, Prefix: cfg.Prefix, Now: time.Now}
}

type snapshot struct {
	Timestamp  string                       `json:"timestamp"`
	TotalCount int                          `json:"total_count"`
	Sites      json.RawMessage              `json:"sites"`
	Reports    map[string]models.SiteReport `json:"reports,omitempty"`
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Store) prefix() string {
	if s.Prefix == "" {
		return "honda_insight_listings"
	}
	return s.Prefix
}

// DefaultName returns <prefix>_YYYYMMDD_HHMMSS.json for t
func (s *Store) DefaultName(t time.Time) string {
	return fmt.Sprintf("%s_%s.json", s.prefix(), t.Format("20060102_150405"))
}

// Path resolves name inside the store directory. Names containing a directory are used as-is.
func (s *Store) Path(name string) string {
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	return filepath.Join(s.Dir, name)
}

// Save writes result to name, or to a timestamped default name when name is empty.
// Every vehicle is stamped with scraped_at at save time.
func (s *Store) Save(result *models.ScanResult, name string) (string, error) {
	now := s.now()
	if name == "" {
		name = s.DefaultName(now)
	}
	path := s.Path(name)

	stamped := models.NewScanResult(result.Timestamp)
	for _, site := range result.SiteNames() {
		vehicles := result.Site(site)
		out := make([]models.Vehicle, len(vehicles))
		for i, v := range vehicles {
			out[i] = v.WithScrapedAt(now)
		}
		stamped.Set(site, out)
	}

	sites, err := json.Marshal(stamped.SitesJSON())
	if err != nil {
		return "", fmt.Errorf("encode sites: %w", err)
	}
	data, err := json.MarshalIndent(snapshot{
		Timestamp:  result.Timestamp.Format(time.RFC3339Nano),
		TotalCount: result.TotalCount(),
		Sites:      sites,
		Reports:    result.Reports,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	if err := writeFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes data to a temp file beside path and renames it into place.
// The result is world-readable like a file from os.WriteFile.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	// CreateTemp opens with 0600
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

// Load reads a snapshot, keeping its site order
func (s *Store) Load(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	ts, err := parseTimestamp(doc.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parse %s: timestamp: %w", path, err)
	}
	result := models.NewScanResult(ts)
	if err := decodeSites(doc.Sites, result); err != nil {
		return nil, fmt.Errorf("parse %s: sites: %w", path, err)
	}
	for name, report := range doc.Reports {
		result.Reports[name] = report
	}
	return result, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(legacyTimeLayout, s, time.Local)
}

// decodeSites walks the sites object token by token so key order survives
func decodeSites(raw json.RawMessage, result *models.ScanResult) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected site name, got %v", tok)
		}
		var vehicles []models.Vehicle
		if err := dec.Decode(&vehicles); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		result.Set(name, vehicles)
	}
	_, err = dec.Token()
	return err
}

// Latest returns the snapshot with the newest modification time
func (s *Store) Latest() (string, error) {
	return s.LatestExcept("")
}

// LatestExcept is Latest ignoring the file at exclude
func (s *Store) LatestExcept(exclude string) (string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoSnapshots
	}
	if err != nil {
		return "", err
	}

	var (
		best    string
		bestMod time.Time
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, s.prefix()+"_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.Dir, name)
		if exclude != "" && sameFile(path, exclude) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = path, info.ModTime()
		}
	}
	if best == "" {
		return "", ErrNoSnapshots
	}
	return best, nil
}

func sameFile(a, b string) bool {
	ia, err := os.Stat(a)
	if err != nil {
		return false
	}
	ib, err := os.Stat(b)
	if err != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return os.SameFile(ia, ib)
}

// Compare diffs two scans by unique ID. Both sides keep their scan order.
func Compare(current, previous *models.ScanResult) models.Diff {
	var cur, prev []models.Vehicle
	if current != nil {
		cur = current.All()
	}
	if previous != nil {
		prev = previous.All()
	}
	return models.Diff{
		Added:   missingFrom(cur, prev),
		Removed: missingFrom(prev, cur),
	}
}

// missingFrom returns the vehicles of a whose ID is absent from b
func missingFrom(a, b []models.Vehicle) []models.Vehicle {
	ids := make(map[string]struct{}, len(b))
	for _, v := range b {
		ids[v.UniqueID] = struct{}{}
	}
	out := []models.Vehicle{}
	seen := map[string]struct{}{}
	for _, v := range a {
		if _, ok := ids[v.UniqueID]; ok {
			continue
		}
		if _, dup := seen[v.UniqueID]; dup {
			continue
		}
		seen[v.UniqueID] = struct{}{}
		out = append(out, v)
	}
	return out
}
