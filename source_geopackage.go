package shaderoute

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	DefaultDatasetPattern = "irradiazioneMedia_{season}_{period}"
	DefaultSunField       = "costo_Sole"
	DefaultShadeField     = "costo_Ombra"
)

// GeoPackageSource reads zones from OGC GeoPackage files, one file per dataset key
type GeoPackageSource struct {
	dir        string
	pattern    string
	layer      string
	sunField   string
	shadeField string
}

func NewGeoPackageSource(dir string, options ...func(*GeoPackageSource)) *GeoPackageSource {
	source := &GeoPackageSource{
		dir:        dir,
		pattern:    DefaultDatasetPattern,
		sunField:   DefaultSunField,
		shadeField: DefaultShadeField,
	}
	for _, option := range options {
		option(source)
	}
	return source
}

func WithGeoPackagePattern(pattern string) func(*GeoPackageSource) {
	return func(source *GeoPackageSource) {
		source.pattern = pattern
	}
}

// WithGeoPackageLayer picks feature table explicitly. By default the first features table is used
func WithGeoPackageLayer(layer string) func(*GeoPackageSource) {
	return func(source *GeoPackageSource) {
		source.layer = layer
	}
}

func WithGeoPackageFields(sunField, shadeField string) func(*GeoPackageSource) {
	return func(source *GeoPackageSource) {
		source.sunField = sunField
		source.shadeField = shadeField
	}
}

// Path returns file name for the dataset key
func (source *GeoPackageSource) Path(key DatasetKey) string {
	return filepath.Join(source.dir, key.Filename(source.pattern)+".gpkg")
}

func (source *GeoPackageSource) LoadZones(ctx context.Context, key DatasetKey) (*ZoneSet, error) {
	fname := source.Path(key)
	if _, err := os.Stat(fname); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrDatasetNotFound, "file '%s'", fname)
		}
		return nil, errors.Wrap(err, "Can't stat file")
	}
	db, err := sql.Open("sqlite", fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open GeoPackage")
	}
	defer db.Close()

	table, column, srid, err := source.featuresTable(ctx, db)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s, %s, %s FROM %s`,
		quoteIdent(column), quoteIdent(source.sunField), quoteIdent(source.shadeField), quoteIdent(table),
	)
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrapf(err, "Can't query features of '%s'", table)
	}
	defer rows.Close()

	set := &ZoneSet{SRID: srid}
	id := int64(0)
	for rows.Next() {
		var blob []byte
		var sunCost, shadeCost sql.NullFloat64
		if err := rows.Scan(&blob, &sunCost, &shadeCost); err != nil {
			return nil, errors.Wrap(err, "Can't scan feature")
		}
		id++
		if set.SRID <= 0 {
			// Undefined SRS in metadata: trust the geometry header
			set.SRID = geoPackageSRSID(blob)
		}
		if !sunCost.Valid || !shadeCost.Valid {
			return nil, errors.Wrapf(ErrInvalidCost, "feature #%d has NULL cost", id)
		}
		geometry, err := decodeGeoPackageGeometry(blob)
		if err != nil {
			return nil, errors.Wrapf(err, "feature #%d", id)
		}
		set.Zones = append(set.Zones, ExposureZone{
			ID:        id,
			Geom:      geometry,
			SunCost:   sunCost.Float64,
			ShadeCost: shadeCost.Float64,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "Can't iterate over features")
	}
	zap.L().Debug("geopackage read", zap.String("file", fname), zap.String("table", table), zap.Int("features", len(set.Zones)))
	return set, nil
}

// featuresTable looks up feature table, its geometry column and SRS in GeoPackage metadata
func (source *GeoPackageSource) featuresTable(ctx context.Context, db *sql.DB) (string, string, int, error) {
	query := `SELECT c.table_name, g.column_name, g.srs_id
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'`
	args := []any{}
	if source.layer != "" {
		query += ` AND c.table_name = ?`
		args = append(args, source.layer)
	}
	query += ` ORDER BY c.table_name LIMIT 1`
	var table, column string
	var srid int
	err := db.QueryRowContext(ctx, query, args...).Scan(&table, &column, &srid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", 0, errors.Wrap(ErrDatasetNotFound, "GeoPackage has no features table")
		}
		return "", "", 0, errors.Wrap(err, "Can't read GeoPackage metadata")
	}
	return table, column, srid, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// decodeGeoPackageGeometry strips GeoPackage binary header and decodes WKB payload.
// Empty geometries are returned as nil
func decodeGeoPackageGeometry(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, errors.Wrap(ErrUnsupportedGeometry, "not a GeoPackage geometry blob")
	}
	flags := blob[3]
	if flags&0x20 != 0 {
		return nil, errors.Wrap(ErrUnsupportedGeometry, "extended GeoPackage geometry")
	}
	var envelopeSize int
	switch (flags >> 1) & 0x07 {
	case 0:
		envelopeSize = 0
	case 1:
		envelopeSize = 32
	case 2, 3:
		envelopeSize = 48
	case 4:
		envelopeSize = 64
	default:
		return nil, errors.Wrapf(ErrUnsupportedGeometry, "envelope indicator %d", (flags>>1)&0x07)
	}
	if flags&0x10 != 0 {
		return nil, nil
	}
	offset := 8 + envelopeSize
	if len(blob) < offset {
		return nil, errors.Wrap(ErrUnsupportedGeometry, "truncated GeoPackage header")
	}
	g, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, errors.Wrap(err, "Can't decode WKB")
	}
	return geomToOrb(g)
}

// geoPackageSRSID reads srs_id from the header. Byte order is taken from the flags
func geoPackageSRSID(blob []byte) int {
	if len(blob) < 8 {
		return 0
	}
	if blob[3]&0x01 != 0 {
		return int(int32(binary.LittleEndian.Uint32(blob[4:8])))
	}
	return int(int32(binary.BigEndian.Uint32(blob[4:8])))
}

func geomToOrb(g geom.T) (orb.Geometry, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.Empty() {
			return nil, nil
		}
		return polygonToOrb(t), nil
	case *geom.MultiPolygon:
		if t.Empty() {
			return nil, nil
		}
		mp := make(orb.MultiPolygon, 0, t.NumPolygons())
		for i := 0; i < t.NumPolygons(); i++ {
			mp = append(mp, polygonToOrb(t.Polygon(i)))
		}
		return mp, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedGeometry, "%T", g)
}

func polygonToOrb(p *geom.Polygon) orb.Polygon {
	polygon := make(orb.Polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ring := make(orb.Ring, len(coords))
		for j, c := range coords {
			ring[j] = orb.Point{c.X(), c.Y()}
		}
		polygon = append(polygon, ring)
	}
	return polygon
}
