// Package dashboard serves the listings API and a chart page over the latest scan.
package dashboard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// ErrScanInProgress is returned by Begin while a scan is running
var ErrScanInProgress = errors.New("scan already in progress")

// State is the dashboard's cache and scan state machine: idle, then scanning, then idle.
// It is safe for concurrent use.
type State struct {
	mu       sync.Mutex
	scanning bool
	scanID   string
	result   *models.ScanResult
	loadedAt time.Time
	lastScan time.Time
}

// Snapshot is a consistent copy of the State
type Snapshot struct {
	Scanning bool
	ScanID   string
	Result   *models.ScanResult
	// LoadedAt is when Result entered the cache
	LoadedAt time.Time
	// LastScan is when Result was produced
	LastScan time.Time
}

// Begin moves to scanning and returns the new scan's ID
func (s *State) Begin() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning {
		return "", ErrScanInProgress
	}
	s.scanning = true
	s.scanID = uuid.NewString()
	return s.scanID, nil
}

// Finish moves back to idle, caching result when it is not nil
func (s *State) Finish(result *models.ScanResult, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanning = false
	if result != nil {
		s.result, s.loadedAt, s.lastScan = result, at, result.Timestamp
	}
}

// Cache replaces the cached result without touching the scan state
func (s *State) Cache(result *models.ScanResult, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result, s.loadedAt, s.lastScan = result, at, result.Timestamp
}

// Snapshot returns the current state
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Scanning: s.scanning,
		ScanID:   s.scanID,
		Result:   s.result,
		LoadedAt: s.loadedAt,
		LastScan: s.lastScan,
	}
}
