package service

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/LdDl/shaderoute"
	"github.com/LdDl/shaderoute/internal/config"
)

// NewLoader wires zone source chosen by configuration. Returned cleanup must be called on shutdown
func NewLoader(ctx context.Context, cfg *config.Config) (*shaderoute.Loader, func(), error) {
	projection, err := cfg.Network.Projection()
	if err != nil {
		return nil, nil, err
	}
	source, cleanup, err := NewZoneSource(ctx, cfg.Dataset)
	if err != nil {
		return nil, nil, err
	}
	loader := shaderoute.NewLoader(source, projection, shaderoute.WithShadeScale(cfg.Dataset.ShadeScale))
	return loader, cleanup, nil
}

// NewZoneSource builds source for dataset.driver
func NewZoneSource(ctx context.Context, cfg config.DatasetConfig) (shaderoute.ZoneSource, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case config.DriverGeoPackage:
		return shaderoute.NewGeoPackageSource(cfg.Dir,
			shaderoute.WithGeoPackagePattern(cfg.Pattern),
			shaderoute.WithGeoPackageFields(cfg.SunField, cfg.ShadeField),
		), noop, nil
	case config.DriverShapefile:
		return shaderoute.NewShapefileSource(cfg.Dir, cfg.SourceSRID,
			shaderoute.WithShapefilePattern(cfg.Pattern),
			shaderoute.WithShapefileFields(cfg.SunField, cfg.ShadeField),
		), noop, nil
	case config.DriverGeoJSON:
		return shaderoute.NewGeoJSONSource(cfg.Dir,
			shaderoute.WithGeoJSONPattern(cfg.Pattern),
			shaderoute.WithGeoJSONSRID(cfg.SourceSRID),
			shaderoute.WithGeoJSONFields(cfg.SunField, cfg.ShadeField),
		), noop, nil
	case config.DriverPostGIS:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't connect to database")
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "Can't ping database")
		}
		return shaderoute.NewPostGISSource(pool, shaderoute.WithPostGISTable(cfg.Table)), pool.Close, nil
	}
	return nil, nil, errors.Errorf("unknown dataset driver '%s'", cfg.Driver)
}

// ParseKeys converts "Season/Period" strings
func ParseKeys(raw []string) ([]shaderoute.DatasetKey, error) {
	keys := make([]shaderoute.DatasetKey, 0, len(raw))
	for _, str := range raw {
		key, err := shaderoute.ParseDatasetKey(str)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}
