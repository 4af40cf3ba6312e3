package shaderoute

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"
)

const DefaultPostGISTable = "exposure_zones"

// Querier is the subset of pgxpool.Pool used by PostGISSource
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostGISSource reads zones of every dataset from a single table discriminated by season and period columns.
// Geometries are transformed to WGS84 by the database
type PostGISSource struct {
	db          Querier
	table       string
	geomColumn  string
	sunColumn   string
	shadeColumn string
}

func NewPostGISSource(db Querier, options ...func(*PostGISSource)) *PostGISSource {
	source := &PostGISSource{
		db:          db,
		table:       DefaultPostGISTable,
		geomColumn:  "geom",
		sunColumn:   "sun_cost",
		shadeColumn: "shade_cost",
	}
	for _, option := range options {
		option(source)
	}
	return source
}

// WithPostGISTable sets table name, optionally schema qualified ("public.zones")
func WithPostGISTable(table string) func(*PostGISSource) {
	return func(source *PostGISSource) {
		source.table = table
	}
}

func WithPostGISColumns(geomColumn, sunColumn, shadeColumn string) func(*PostGISSource) {
	return func(source *PostGISSource) {
		source.geomColumn = geomColumn
		source.sunColumn = sunColumn
		source.shadeColumn = shadeColumn
	}
}

func (source *PostGISSource) query() string {
	return fmt.Sprintf(`SELECT ST_AsBinary(ST_Transform(%s, %d)), %s, %s FROM %s WHERE season = $1 AND period = $2`,
		pgx.Identifier{source.geomColumn}.Sanitize(),
		SRIDWGS84,
		pgx.Identifier{source.sunColumn}.Sanitize(),
		pgx.Identifier{source.shadeColumn}.Sanitize(),
		pgx.Identifier(strings.Split(source.table, ".")).Sanitize(),
	)
}

func (source *PostGISSource) LoadZones(ctx context.Context, key DatasetKey) (*ZoneSet, error) {
	rows, err := source.db.Query(ctx, source.query(), key.Season, key.Period)
	if err != nil {
		return nil, errors.Wrap(err, "Can't query zones")
	}
	defer rows.Close()

	set := &ZoneSet{SRID: SRIDWGS84}
	id := int64(0)
	for rows.Next() {
		var blob []byte
		var sunCost, shadeCost *float64
		if err := rows.Scan(&blob, &sunCost, &shadeCost); err != nil {
			return nil, errors.Wrap(err, "Can't scan zone")
		}
		id++
		if sunCost == nil || shadeCost == nil {
			return nil, errors.Wrapf(ErrInvalidCost, "zone #%d has NULL cost", id)
		}
		zone := ExposureZone{ID: id, SunCost: *sunCost, ShadeCost: *shadeCost}
		if blob != nil {
			geometry, err := wkb.Unmarshal(blob)
			if err != nil {
				return nil, errors.Wrapf(err, "zone #%d: Can't decode WKB", id)
			}
			zone.Geom = geometry
		}
		set.Zones = append(set.Zones, zone)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate over zones")
	}
	if len(set.Zones) == 0 {
		return nil, errors.Wrapf(ErrDatasetNotFound, "no zones for '%s' in '%s'", key, source.table)
	}
	return set, nil
}
