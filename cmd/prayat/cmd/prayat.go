package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"prayat/internal/cache"
	"prayat/internal/config"
	"prayat/internal/credentials"
	"prayat/internal/prayer"
	"prayat/internal/resolver"
	"prayat/internal/utils"
	"prayat/schedule"
	"prayat/schedule/aladhan"
	"prayat/schedule/backendapi"
)

// Version is set at build time
var Version = "dev"

// Config holds CLI-level configuration and test overrides
type Config struct {
	Verbose      bool
	OutputFormat string
	ConfigPath   string
	CachePath    string // Override for testing
	BackendURL   string // Override for testing
	AladhanURL   string // Override for testing
}

// Execute runs the CLI with the given arguments and IO writers
func Execute(args []string, stdout, stderr io.Writer, cfg *Config) int {
	rootCmd := NewPrayat(stdout, stderr, cfg)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewPrayat creates the root command with injectable IO
func NewPrayat(stdout, stderr io.Writer, cfg *Config) *cobra.Command {
	if cfg == nil {
		cfg = &Config{}
	}

	cmd := &cobra.Command{
		Use:     "prayat",
		Short:   "Prayer times with offline caching",
		Long:    "prayat resolves daily prayer times from the diet app backend with fallback to the Aladhan API, caching every resolved day locally.",
		Version: Version,
		Args:    cobra.NoArgs,

		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				cfg.Verbose = true
			}
			utils.SetVerboseMode(cfg.Verbose)
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				cfg.OutputFormat = "json"
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), stdout, cfg, "")
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "path to config file")

	cmd.AddCommand(newDateCmd(stdout, cfg))
	cmd.AddCommand(newNextCmd(stdout, cfg))
	cmd.AddCommand(newWatchCmd(cfg))
	cmd.AddCommand(newCacheCmd(stdout, cfg))
	cmd.AddCommand(newAuthCmd(stdout, cfg))

	return cmd
}

// newDateCmd shows the schedule for a specific date
func newDateCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "date <YYYY-MM-DD>",
		Short: "Show prayer times for a specific date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), stdout, cfg, args[0])
		},
	}
}

// newNextCmd shows the next upcoming prayer and the countdown to it
func newNextCmd(stdout io.Writer, cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next prayer and time remaining",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNext(cmd.Context(), stdout, cfg)
		},
	}
}

// loadConfig loads the application configuration with CLI overrides applied
func loadConfig(cfg *Config) (*config.Config, error) {
	appCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if cfg.CachePath != "" {
		appCfg.Cache.Path = cfg.CachePath
	}
	if cfg.BackendURL != "" {
		appCfg.Backend.URL = cfg.BackendURL
	}
	if cfg.AladhanURL != "" {
		appCfg.Aladhan.URL = cfg.AladhanURL
	}
	if cfg.OutputFormat != "" {
		appCfg.OutputFormat = cfg.OutputFormat
	}
	if err := appCfg.Validate(); err != nil {
		return nil, err
	}
	return appCfg, nil
}

// buildResolver wires the cache store and both sources from configuration.
// The caller owns closing the returned store.
func buildResolver(appCfg *config.Config) (*resolver.Resolver, *cache.Store, error) {
	store, err := cache.Open(appCfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache: %w", err)
	}

	token, source := credentials.NewManager().Token()
	utils.Debugf("backend token source: %s", source)

	primary := backendapi.New(backendapi.Config{
		BaseURL:   appCfg.Backend.URL,
		Token:     token,
		Timeout:   appCfg.GetRequestTimeout(),
		City:      appCfg.Location.City,
		Country:   appCfg.Location.Country,
		Latitude:  appCfg.Location.Latitude,
		Longitude: appCfg.Location.Longitude,
	})
	secondary := aladhan.New(aladhan.Config{
		BaseURL:   appCfg.Aladhan.URL,
		Latitude:  appCfg.Location.Latitude,
		Longitude: appCfg.Location.Longitude,
		Method:    appCfg.Aladhan.Method,
		Timeout:   appCfg.GetRequestTimeout(),
	})

	r := resolver.New(store, primary, secondary)
	r.SetProbeTimeout(appCfg.GetProbeTimeout())
	return r, store, nil
}

// runShow resolves and prints the schedule for a date (today when empty)
func runShow(ctx context.Context, stdout io.Writer, cfg *Config, date string) error {
	appCfg, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	r, store, err := buildResolver(appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var s *schedule.Schedule
	if date == "" {
		s, err = r.ResolveToday(ctx)
	} else {
		s, err = r.Resolve(ctx, date)
	}
	if err != nil {
		return err
	}

	return renderSchedule(stdout, appCfg.OutputFormat, s)
}

// runNext resolves today and prints the next occurrence with countdown
func runNext(ctx context.Context, stdout io.Writer, cfg *Config) error {
	appCfg, err := loadConfig(cfg)
	if err != nil {
		return err
	}
	r, store, err := buildResolver(appCfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	s, err := r.ResolveToday(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	next := prayer.Next(s, now)
	if next == nil {
		return fmt.Errorf("schedule for %s has no usable times", s.Date)
	}
	remaining := prayer.Remaining(now, next.Time)

	if appCfg.OutputFormat == "json" {
		out := struct {
			Name      string `json:"name"`
			Time      string `json:"time"`
			NextDay   bool   `json:"next_day"`
			Remaining string `json:"remaining"`
		}{next.Name, next.Time, next.NextDay, remaining}
		return writeJSON(stdout, out)
	}

	label := next.Name
	if next.NextDay {
		label += " (tomorrow)"
	}
	_, _ = fmt.Fprintf(stdout, "Next prayer: %s at %s (in %s)\n", label, prayer.Format12h(next.Time), remaining)
	return nil
}

// renderSchedule prints a schedule as text or JSON
func renderSchedule(stdout io.Writer, format string, s *schedule.Schedule) error {
	if format == "json" {
		out := struct {
			*schedule.Schedule
			Source string `json:"source"`
		}{s, string(s.Source)}
		return writeJSON(stdout, out)
	}

	_, _ = fmt.Fprintf(stdout, "Prayer times for %s (source: %s)\n", s.Date, s.Source)
	for _, e := range s.Entries() {
		_, _ = fmt.Fprintf(stdout, "  %-8s %9s\n", e.Name, prayer.Format12h(e.Time))
	}
	if s.HijriDate != "" {
		_, _ = fmt.Fprintf(stdout, "Hijri date: %s\n", s.HijriDate)
	}
	return nil
}

// writeJSON writes indented JSON to stdout
func writeJSON(stdout io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(stdout, string(data))
	return nil
}
