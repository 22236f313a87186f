package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"prayat/internal/cache"
)

// newCacheCmd groups cache inspection and maintenance commands
func newCacheCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the local schedule cache",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show cached dates and the freshness marker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			info := store.GetInfo(cmd.Context())
			if cfg.OutputFormat == "json" {
				return writeJSON(stdout, info)
			}

			last := info.LastFetchDate
			if last == "" {
				last = "(never)"
			}
			_, _ = fmt.Fprintf(stdout, "Last fetch date: %s\n", last)
			_, _ = fmt.Fprintf(stdout, "Cached days: %d\n", info.Total)
			if len(info.CachedDates) > 0 {
				_, _ = fmt.Fprintf(stdout, "Dates: %s\n", strings.Join(info.CachedDates, ", "))
			}
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached schedules and reset the freshness marker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			store.ClearAll(cmd.Context())
			_, _ = fmt.Fprintln(stdout, "Cache cleared")
			return nil
		},
	})

	return cacheCmd
}

// openStore opens just the cache store, without the network sources
func openStore(cfg *Config) (*cache.Store, error) {
	appCfg, err := loadConfig(cfg)
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(appCfg.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	return store, nil
}
