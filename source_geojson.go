package shaderoute

import (
	"context"
	"os"
	"path/filepath"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// GeoJSONSource reads zones from GeoJSON feature collections. Coordinates are WGS84 unless stated otherwise
type GeoJSONSource struct {
	dir        string
	pattern    string
	srid       int
	sunField   string
	shadeField string
}

func NewGeoJSONSource(dir string, options ...func(*GeoJSONSource)) *GeoJSONSource {
	source := &GeoJSONSource{
		dir:        dir,
		pattern:    DefaultDatasetPattern,
		srid:       SRIDWGS84,
		sunField:   DefaultSunField,
		shadeField: DefaultShadeField,
	}
	for _, option := range options {
		option(source)
	}
	return source
}

func WithGeoJSONPattern(pattern string) func(*GeoJSONSource) {
	return func(source *GeoJSONSource) {
		source.pattern = pattern
	}
}

func WithGeoJSONSRID(srid int) func(*GeoJSONSource) {
	return func(source *GeoJSONSource) {
		source.srid = srid
	}
}

func WithGeoJSONFields(sunField, shadeField string) func(*GeoJSONSource) {
	return func(source *GeoJSONSource) {
		source.sunField = sunField
		source.shadeField = shadeField
	}
}

func (source *GeoJSONSource) Path(key DatasetKey) string {
	return filepath.Join(source.dir, key.Filename(source.pattern)+".geojson")
}

func (source *GeoJSONSource) LoadZones(ctx context.Context, key DatasetKey) (*ZoneSet, error) {
	fname := source.Path(key)
	data, err := os.ReadFile(fname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrDatasetNotFound, "file '%s'", fname)
		}
		return nil, errors.Wrap(err, "Can't read file")
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't parse GeoJSON '%s'", fname)
	}
	set := &ZoneSet{SRID: source.srid, Zones: make([]ExposureZone, 0, len(fc.Features))}
	for i, feature := range fc.Features {
		if feature.Geometry == nil {
			continue
		}
		geometry, err := geojsonToOrb(feature.Geometry)
		if err != nil {
			return nil, errors.Wrapf(err, "feature #%d", i)
		}
		sunCost, err := feature.PropertyFloat64(source.sunField)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidCost, "feature #%d: property '%s': %s", i, source.sunField, err.Error())
		}
		shadeCost, err := feature.PropertyFloat64(source.shadeField)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidCost, "feature #%d: property '%s': %s", i, source.shadeField, err.Error())
		}
		set.Zones = append(set.Zones, ExposureZone{
			ID:        int64(i) + 1,
			Geom:      geometry,
			SunCost:   sunCost,
			ShadeCost: shadeCost,
		})
	}
	return set, nil
}

func geojsonToOrb(g *geojson.Geometry) (orb.Geometry, error) {
	switch g.Type {
	case geojson.GeometryPolygon:
		return positionsToPolygon(g.Polygon), nil
	case geojson.GeometryMultiPolygon:
		mp := make(orb.MultiPolygon, 0, len(g.MultiPolygon))
		for _, polygon := range g.MultiPolygon {
			mp = append(mp, positionsToPolygon(polygon))
		}
		return mp, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedGeometry, "%s", g.Type)
}

func positionsToPolygon(rings [][][]float64) orb.Polygon {
	polygon := make(orb.Polygon, 0, len(rings))
	for _, positions := range rings {
		ring := make(orb.Ring, 0, len(positions))
		for _, pos := range positions {
			if len(pos) < 2 {
				continue
			}
			ring = append(ring, orb.Point{pos[0], pos[1]})
		}
		polygon = append(polygon, ring)
	}
	return polygon
}
