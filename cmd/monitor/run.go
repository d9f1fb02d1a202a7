package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	snapshots "github.com/williampepple1/salvage-yard-monitor/internal/io"
	"github.com/williampepple1/salvage-yard-monitor/internal/monitor"
	"github.com/williampepple1/salvage-yard-monitor/pkg/models"
)

// autoName marks --save or --compare given without a value
const autoName = "-"

type scanFlags struct {
	runScan  bool
	watch    bool
	interval time.Duration
	save     string
	compare  string
	site     string
	workers  int
	timeout  time.Duration
	details  bool
}

type scanner interface {
	ScrapeAll(ctx context.Context, workers int, timeout time.Duration) *models.ScanResult
	ScrapeSite(ctx context.Context, name string) ([]models.Vehicle, error)
}

type runner struct {
	scanner scanner
	store   *snapshots.Store
	render  monitor.Renderer
	out     io.Writer
	logger  *slog.Logger
	flags   scanFlags
	now     func() time.Time
}

func (r *runner) timestamp() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// scan runs one scan and handles display, save and compare
func (r *runner) scan(ctx context.Context) error {
	var result *models.ScanResult
	if r.flags.site != "" {
		vehicles, err := r.scanner.ScrapeSite(ctx, r.flags.site)
		if err != nil {
			return err
		}
		result = models.NewScanResult(r.timestamp())
		result.Set(r.flags.site, vehicles)
	} else {
		fmt.Fprintf(r.out, "Scanning with %d workers (timeout %s per site)...\n", r.flags.workers, r.flags.timeout)
		result = r.scanner.ScrapeAll(ctx, r.flags.workers, r.flags.timeout)
	}

	r.render.Summary(result)
	if r.flags.details {
		r.render.Details(result)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scan interrupted: %w", err)
	}

	var saved string
	if r.flags.save != "" {
		name := r.flags.save
		if name == autoName {
			name = ""
		}
		var err error
		saved, err = r.store.Save(result, name)
		if err != nil {
			return fmt.Errorf("save results: %w", err)
		}
		fmt.Fprintf(r.out, "Results saved to %s\n", saved)
	}

	if r.flags.compare != "" {
		return r.diff(result, saved)
	}
	return nil
}

// diff compares result with the --compare snapshot, or with the newest one other than saved
func (r *runner) diff(result *models.ScanResult, saved string) error {
	path := r.flags.compare
	if path == autoName {
		var err error
		path, err = r.store.LatestExcept(saved)
		if errors.Is(err, snapshots.ErrNoSnapshots) {
			fmt.Fprintln(r.out, "No previous scan to compare against.")
			return nil
		}
		if err != nil {
			return err
		}
	} else {
		path = r.store.Path(path)
	}

	previous, err := r.store.Load(path)
	if err != nil {
		return fmt.Errorf("load previous scan: %w", err)
	}
	fmt.Fprintf(r.out, "Comparing with %s\n", path)
	r.render.Diff(snapshots.Compare(result, previous))
	return nil
}

// watch scans every interval, saving and comparing each run, until ctx is done
func (r *runner) watch(ctx context.Context) error {
	if r.flags.save == "" {
		r.flags.save = autoName
	}
	if r.flags.compare == "" {
		r.flags.compare = autoName
	}

	for {
		if err := r.scan(ctx); err != nil {
			r.logger.ErrorContext(ctx, "scan failed", "error", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprintf(r.out, "Next scan in %s\n", r.flags.interval)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.flags.interval):
		}
	}
}
