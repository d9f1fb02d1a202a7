package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/williampepple1/salvage-yard-monitor/internal/adapters"
	snapshots "github.com/williampepple1/salvage-yard-monitor/internal/io"
)

type stubFinder struct {
	urls      []string
	err       error
	reachable map[string]bool
	validated bool
}

func (f *stubFinder) DiscoverLocations(ctx context.Context) ([]string, error) {
	return f.urls, f.err
}

func (f *stubFinder) ValidateLocations(ctx context.Context, urls []string) []string {
	f.validated = true
	var out []string
	for _, u := range urls {
		if f.reachable[u] {
			out = append(out, u)
		}
	}
	return out
}

const (
	anaheim  = "https://www.lkqpickyourpart.com/parts/anaheim-1265/"
	monrovia = "https://www.lkqpickyourpart.com/parts/monrovia-1281/"
)

func TestWriteLocations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lkq_locations_complete.txt")
	finder := &stubFinder{urls: []string{anaheim, monrovia}}
	var out bytes.Buffer

	require.NoError(t, writeLocations(context.Background(), finder, &out, path, false))
	require.False(t, finder.validated)
	require.Contains(t, out.String(), "Saved 2 LKQ locations to "+path)
	require.Contains(t, out.String(), "  1. "+anaheim)

	got, err := snapshots.ReadLocations(path)
	require.NoError(t, err)
	require.Equal(t, []string{anaheim, monrovia}, got)
}

func TestWriteLocationsValidated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.txt")
	finder := &stubFinder{urls: []string{anaheim, monrovia}, reachable: map[string]bool{monrovia: true}}

	require.NoError(t, writeLocations(context.Background(), finder, &bytes.Buffer{}, path, true))
	got, err := snapshots.ReadLocations(path)
	require.NoError(t, err)
	require.Equal(t, []string{monrovia}, got)

	finder.reachable = nil
	err = writeLocations(context.Background(), finder, &bytes.Buffer{}, path, true)
	require.ErrorIs(t, err, adapters.ErrNoLocations)

	// a failed run leaves the previous file alone
	got, err = snapshots.ReadLocations(path)
	require.NoError(t, err)
	require.Equal(t, []string{monrovia}, got)
}

func TestWriteLocationsDiscoveryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.txt")
	boom := errors.New("picker missing")

	err := writeLocations(context.Background(), &stubFinder{err: boom}, &bytes.Buffer{}, path, false)
	require.ErrorIs(t, err, boom)
	require.NoFileExists(t, path)
}

func TestLocationsCommandRegistered(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"lkq-locations"})
	require.NoError(t, err)
	require.Equal(t, "lkq-locations", cmd.Name())
	require.NotNil(t, cmd.Flags().Lookup("out"))
	require.NotNil(t, cmd.InheritedFlags().Lookup("config"))
}
