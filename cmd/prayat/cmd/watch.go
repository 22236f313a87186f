package cmd

import (
	"github.com/spf13/cobra"

	"prayat/internal/tui"
)

// newWatchCmd starts the live dashboard
func newWatchCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard with a minute-by-minute countdown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			r, store, err := buildResolver(appCfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return tui.Run(r)
		},
	}
}
