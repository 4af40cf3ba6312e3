package shaderoute

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ShapefileSource reads zones from ESRI Shapefiles. Shapefile carries no reliable SRID, so it should be given
type ShapefileSource struct {
	dir        string
	pattern    string
	srid       int
	sunField   string
	shadeField string
}

func NewShapefileSource(dir string, srid int, options ...func(*ShapefileSource)) *ShapefileSource {
	source := &ShapefileSource{
		dir:        dir,
		pattern:    DefaultDatasetPattern,
		srid:       srid,
		sunField:   DefaultSunField,
		shadeField: DefaultShadeField,
	}
	for _, option := range options {
		option(source)
	}
	return source
}

func WithShapefilePattern(pattern string) func(*ShapefileSource) {
	return func(source *ShapefileSource) {
		source.pattern = pattern
	}
}

// WithShapefileFields sets attribute names. DBF truncates names to 10 characters and matching is case insensitive
func WithShapefileFields(sunField, shadeField string) func(*ShapefileSource) {
	return func(source *ShapefileSource) {
		source.sunField = sunField
		source.shadeField = shadeField
	}
}

func (source *ShapefileSource) Path(key DatasetKey) string {
	return filepath.Join(source.dir, key.Filename(source.pattern)+".shp")
}

func (source *ShapefileSource) LoadZones(ctx context.Context, key DatasetKey) (*ZoneSet, error) {
	fname := source.Path(key)
	if _, err := os.Stat(fname); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrDatasetNotFound, "file '%s'", fname)
		}
		return nil, errors.Wrap(err, "Can't stat file")
	}
	reader, err := shp.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't open shapefile '%s'", fname)
	}
	defer reader.Close()

	fieldIdx := make(map[string]int)
	for i, field := range reader.Fields() {
		name := strings.TrimRight(field.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	sunIdx, ok := lookupField(fieldIdx, source.sunField)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidCost, "no field '%s' in '%s'", source.sunField, fname)
	}
	shadeIdx, ok := lookupField(fieldIdx, source.shadeField)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidCost, "no field '%s' in '%s'", source.shadeField, fname)
	}

	set := &ZoneSet{SRID: source.srid}
	skipped := 0
	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, shape := reader.Shape()
		polygon, ok := shape.(*shp.Polygon)
		if !ok || polygon == nil {
			skipped++
			continue
		}
		sunCost, err := parseAttribute(reader.Attribute(sunIdx))
		if err != nil {
			return nil, errors.Wrapf(err, "record #%d: field '%s'", n, source.sunField)
		}
		shadeCost, err := parseAttribute(reader.Attribute(shadeIdx))
		if err != nil {
			return nil, errors.Wrapf(err, "record #%d: field '%s'", n, source.shadeField)
		}
		set.Zones = append(set.Zones, ExposureZone{
			ID:        int64(n) + 1,
			Geom:      shpPolygonToOrb(polygon),
			SunCost:   sunCost,
			ShadeCost: shadeCost,
		})
	}
	if err := reader.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't read shapefile records")
	}
	if skipped > 0 {
		zap.L().Debug("skipped non-polygon shapefile records", zap.String("file", fname), zap.Int("skipped", skipped))
	}
	return set, nil
}

func lookupField(fieldIdx map[string]int, name string) (int, bool) {
	name = strings.ToLower(name)
	if idx, ok := fieldIdx[name]; ok {
		return idx, true
	}
	if len(name) > 10 {
		idx, ok := fieldIdx[name[:10]]
		return idx, ok
	}
	return 0, false
}

func parseAttribute(value string) (float64, error) {
	value = strings.TrimSpace(strings.TrimRight(value, "\x00"))
	if value == "" {
		return 0, errors.Wrap(ErrInvalidCost, "empty value")
	}
	cost, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidCost, err.Error())
	}
	return cost, nil
}

// shpPolygonToOrb keeps every part as a ring of one polygon: only boundaries matter for the network
func shpPolygonToOrb(p *shp.Polygon) orb.Polygon {
	polygon := make(orb.Polygon, 0, p.NumParts)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		ring := make(orb.Ring, 0, end-start)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
		}
		polygon = append(polygon, ring)
	}
	return polygon
}
