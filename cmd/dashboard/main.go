package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/williampepple1/salvage-yard-monitor/internal/app"
	"github.com/williampepple1/salvage-yard-monitor/internal/dashboard"
)

func newRootCmd() *cobra.Command {
	var (
		configFile string
		addr       string
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:          "dashboard",
		Short:        "dashboard serves the salvage yard listings API and charts.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, app.Options{
				ConfigFile:  configFile,
				ServiceName: "dashboard",
				Verbose:     verbose,
			})
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") || a.Config.Dashboard.Addr == "" {
				a.Config.Dashboard.Addr = addr
			}
			return serve(ctx, a)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON5)")
	cmd.Flags().StringVar(&addr, "addr", ":5000", "Listen address")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}

func serve(ctx context.Context, a *app.App) error {
	cfg := a.Config.Dashboard
	srv := dashboard.NewServer(ctx, dashboard.Options{
		Scanner:     a.Manager,
		Store:       a.Store,
		CacheTTL:    cfg.CacheTTL,
		ScanWorkers: cfg.ScanWorkers,
		ScanTimeout: cfg.ScanTimeout,
		Title:       a.Title(),
		Logger:      a.Logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("dashboard listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := httpServer.Shutdown(shutdownCtx)
	// Background scans observe ctx and wind down with it
	srv.Wait()
	return errors.Join(serveErr, err, a.Close(shutdownCtx))
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
