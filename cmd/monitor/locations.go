package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/williampepple1/salvage-yard-monitor/internal/adapters"
	"github.com/williampepple1/salvage-yard-monitor/internal/app"
	snapshots "github.com/williampepple1/salvage-yard-monitor/internal/io"
)

type locationFinder interface {
	DiscoverLocations(ctx context.Context) ([]string, error)
	ValidateLocations(ctx context.Context, urls []string) []string
}

func newLocationsCmd(configFile *string, verbose *bool) *cobra.Command {
	var (
		out      string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "lkq-locations",
		Short: "Discover every LKQ Pick Your Part yard and write the locations file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, app.Options{
				ConfigFile:  *configFile,
				ServiceName: "monitor",
				Verbose:     *verbose,
			})
			if err != nil {
				return err
			}
			defer closeApp(a)

			adapter, ok := a.Manager.Adapter("lkq")
			if !ok {
				return fmt.Errorf("lkq adapter not registered")
			}
			finder, ok := adapter.(locationFinder)
			if !ok {
				return fmt.Errorf("lkq adapter cannot discover locations")
			}
			if out == "" {
				out = a.Config.Sites.LKQLocationsFile
			}
			return writeLocations(ctx, finder, cmd.OutOrStdout(), out, validate)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to sites.lkq_locations_file)")
	cmd.Flags().BoolVar(&validate, "validate", false, "Keep only locations whose page loads")
	return cmd
}

// writeLocations discovers the yards, optionally drops the unreachable ones, and saves the rest to path
func writeLocations(ctx context.Context, finder locationFinder, out io.Writer, path string, validate bool) error {
	urls, err := finder.DiscoverLocations(ctx)
	if err != nil {
		return fmt.Errorf("discover LKQ locations: %w", err)
	}
	if validate {
		urls = finder.ValidateLocations(ctx, urls)
		if len(urls) == 0 {
			return fmt.Errorf("validate LKQ locations: %w", adapters.ErrNoLocations)
		}
	}

	header := []string{
		"LKQ Pick Your Part Location URLs",
		"Auto-extracted from https://www.lkqpickyourpart.com",
		fmt.Sprintf("Total locations found: %d", len(urls)),
	}
	if err := snapshots.WriteLocations(path, header, urls); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	for i, u := range urls {
		fmt.Fprintf(out, "%3d. %s\n", i+1, u)
	}
	fmt.Fprintf(out, "Saved %d LKQ locations to %s\n", len(urls), path)
	return nil
}
