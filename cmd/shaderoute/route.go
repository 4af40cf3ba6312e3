package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/service"
)

var (
	routeFrom       string
	routeTo         string
	routeKey        string
	routeGeomFormat string
	routeCriterion  string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Find sun and shade routes between two points",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseLonLat(routeFrom)
		if err != nil {
			return errors.Wrap(err, "--from")
		}
		end, err := parseLonLat(routeTo)
		if err != nil {
			return errors.Wrap(err, "--to")
		}
		key, err := shaderoute.ParseDatasetKey(routeKey)
		if err != nil {
			return err
		}
		criteria, err := parseCriteria(routeCriterion)
		if err != nil {
			return errors.Wrap(err, "--criterion")
		}

		ctx := cmd.Context()
		loader, cleanup, err := service.NewLoader(ctx, cfg)
		if err != nil {
			return errors.Wrap(err, "Can't prepare zones loader")
		}
		defer cleanup()

		st := time.Now()
		registry := service.NewRegistry(loader,
			service.WithEngine(cfg.Network.Engine),
			service.WithSnapTolerance(cfg.Network.SnapTolerance),
		)
		plan, err := service.NewPlanner(registry).Plan(ctx, service.Request{Start: start, End: end, Key: key, Criteria: criteria})
		if err != nil {
			return err
		}
		fmt.Printf("Done in %v\n", time.Since(st))

		for _, criterion := range criteria {
			result, err := plan.Result(criterion)
			if err != nil {
				fmt.Printf("%s: %v\n", criterion, err)
				continue
			}
			if !result.Found {
				fmt.Printf("%s: no route\n", criterion)
				continue
			}
			geomStr, err := formatRoute(result)
			if err != nil {
				return err
			}
			fmt.Printf("%s: length %.2f m, cost %f\n%s\n", criterion, result.LengthMeters, result.Cost, geomStr)
		}
		return nil
	},
}

func formatRoute(result *shaderoute.RouteResult) (string, error) {
	if strings.ToLower(routeGeomFormat) == "geojson" {
		b, err := json.Marshal(result.FeatureCollection())
		if err != nil {
			return "", errors.Wrap(err, "Can't marshal GeoJSON")
		}
		return string(b), nil
	}
	return result.WKT(), nil
}

// parseCriteria returns every criterion for an empty string
func parseCriteria(str string) ([]shaderoute.Criterion, error) {
	if strings.TrimSpace(str) == "" {
		return shaderoute.Criteria[:], nil
	}
	criterion, err := shaderoute.ParseCriterion(str)
	if err != nil {
		return nil, err
	}
	return []shaderoute.Criterion{criterion}, nil
}

// parseLonLat parses "lon,lat"
func parseLonLat(str string) (orb.Point, error) {
	parts := strings.Split(str, ",")
	if len(parts) != 2 {
		return orb.Point{}, errors.Wrapf(shaderoute.ErrInvalidRequest, "'%s' should look like 'lon,lat'", str)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return orb.Point{}, errors.Wrapf(shaderoute.ErrInvalidRequest, "longitude '%s'", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return orb.Point{}, errors.Wrapf(shaderoute.ErrInvalidRequest, "latitude '%s'", parts[1])
	}
	pt := orb.Point{lon, lat}
	return pt, shaderoute.ValidateGeoPoint(pt)
}

func init() {
	routeCmd.Flags().StringVar(&routeFrom, "from", "", "start point as 'lon,lat'")
	routeCmd.Flags().StringVar(&routeTo, "to", "", "end point as 'lon,lat'")
	routeCmd.Flags().StringVar(&routeKey, "key", "", "dataset as 'Season/Period', e.g. 'Autunno/Mattina'")
	routeCmd.Flags().StringVar(&routeGeomFormat, "geomf", "geojson", "Format of output geometry. Expected values: wkt / geojson")
	routeCmd.Flags().StringVar(&routeCriterion, "criterion", "", "Print only one route. Expected values: sun / shade. Both by default")
	_ = routeCmd.MarkFlagRequired("from")
	_ = routeCmd.MarkFlagRequired("to")
	_ = routeCmd.MarkFlagRequired("key")
	rootCmd.AddCommand(routeCmd)
}
