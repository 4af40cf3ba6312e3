package main

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/service"
)

var (
	exportKey string
	exportOut string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Build network of a dataset and export it to CSV",
	Long:  "Writes two ';'-separated files: '<out>_nodes.csv' and '<out>_edges.csv' (geometries are WKT in WGS84).",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := shaderoute.ParseDatasetKey(exportKey)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		loader, cleanup, err := service.NewLoader(ctx, cfg)
		if err != nil {
			return errors.Wrap(err, "Can't prepare zones loader")
		}
		defer cleanup()

		st := time.Now()
		fmt.Printf("Building network for '%s'...\n", key)
		zones, err := loader.Load(ctx, key)
		if err != nil {
			return err
		}
		net, err := shaderoute.BuildNetwork(zones,
			shaderoute.WithSnapTolerance(cfg.Network.SnapTolerance),
			shaderoute.WithName(key.String()),
		)
		if err != nil {
			return err
		}
		fmt.Printf("Done in %v\n", time.Since(st))

		st = time.Now()
		fmt.Printf("Exporting %d nodes and %d edges...\n", net.NodesNum(), net.EdgesNum())
		err = net.ExportToCSV(exportOut, loader.Projection())
		if err != nil {
			return err
		}
		fmt.Printf("Done in %v\n", time.Since(st))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportKey, "key", "", "dataset as 'Season/Period'")
	exportCmd.Flags().StringVar(&exportOut, "out", "network.csv", "Filename of 'Comma-Separated Values' (CSV) formatted file. E.g.: if file name is 'net.csv' then 'net_nodes.csv' and 'net_edges.csv' will be produced")
	_ = exportCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(exportCmd)
}
