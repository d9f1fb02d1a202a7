package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/williampepple1/salvage-yard-monitor/internal/app"
	"github.com/williampepple1/salvage-yard-monitor/internal/monitor"
)

func newRootCmd() *cobra.Command {
	var (
		configFile string
		verbose    bool
		flags      scanFlags
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "monitor scans salvage yards for Honda Insight listings.",
		Long: "monitor queries every supported salvage yard site concurrently, prints a summary, " +
			"and optionally saves the scan and compares it with a previous one.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, app.Options{
				ConfigFile:  configFile,
				ServiceName: "monitor",
				Verbose:     verbose,
			})
			if err != nil {
				return err
			}
			defer closeApp(a)

			if !cmd.Flags().Changed("workers") {
				flags.workers = a.Config.Scraper.Workers
			}
			if !cmd.Flags().Changed("timeout") {
				flags.timeout = a.Config.Scraper.Timeout
			}

			r := &runner{
				scanner: a.Manager,
				store:   a.Store,
				render:  monitor.Renderer{Out: cmd.OutOrStdout(), Title: a.Title()},
				out:     cmd.OutOrStdout(),
				logger:  a.Logger,
				flags:   flags,
			}
			if flags.watch {
				return r.watch(ctx)
			}
			return r.scan(ctx)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON5)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	f := cmd.Flags()
	f.BoolVar(&flags.runScan, "scan", false, "Run a scan across all sites (the default action)")
	f.BoolVar(&flags.watch, "watch", false, "Scan repeatedly, saving and comparing each run")
	f.DurationVar(&flags.interval, "interval", 30*time.Minute, "Delay between scans in watch mode")
	f.StringVar(&flags.save, "save", "", "Save results, to the given file or a timestamped default")
	f.Lookup("save").NoOptDefVal = autoName
	f.StringVar(&flags.compare, "compare", "", "Compare with the given snapshot, or the latest previous one")
	f.Lookup("compare").NoOptDefVal = autoName
	f.StringVar(&flags.site, "site", "", "Scan a single site by name")
	f.IntVar(&flags.workers, "workers", 4, "Number of sites scanned concurrently")
	f.DurationVar(&flags.timeout, "timeout", 300*time.Second, "Per-site timeout")
	f.BoolVar(&flags.details, "details", false, "Print every listing per site")

	cmd.AddCommand(newLocationsCmd(&configFile, &verbose))
	return cmd
}

func closeApp(a *app.App) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Close(shutdownCtx); err != nil {
		a.Logger.Warn("shutdown", "error", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
