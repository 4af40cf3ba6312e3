package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LdDl/shaderoute/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "shaderoute",
	Short: "Sun and shade aware pedestrian routing",
	Long:  "Builds routable networks from sun/shadow exposure zones and answers sun-preferring and shade-preferring route queries.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return errors.Wrap(err, "init logger")
		}

		return cfg.Validate()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
