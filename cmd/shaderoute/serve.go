package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/server"
	"github.com/LdDl/shaderoute/internal/service"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		loader, cleanup, err := service.NewLoader(ctx, cfg)
		if err != nil {
			return errors.Wrap(err, "Can't prepare zones loader")
		}
		defer cleanup()

		registry := service.NewRegistry(loader,
			service.WithEngine(cfg.Network.Engine),
			service.WithSnapTolerance(cfg.Network.SnapTolerance),
		)
		keys, err := service.ParseKeys(cfg.Network.Preload)
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			zap.L().Info("preloading networks", zap.Strings("datasets", cfg.Network.Preload))
			if err := registry.Preload(ctx, keys); err != nil {
				return errors.Wrap(err, "Can't preload networks")
			}
		}

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		options := []func(*server.Server){}
		if cfg.Dataset.DefaultKey != "" {
			key, err := shaderoute.ParseDatasetKey(cfg.Dataset.DefaultKey)
			if err != nil {
				return err
			}
			options = append(options, server.WithDefaultKey(key))
		}
		srv := server.New(service.NewPlanner(registry), cfg.Server, options...)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
