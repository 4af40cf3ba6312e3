package shaderoute

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/paulmach/orb"
	orbwkb "github.com/paulmach/orb/encoding/wkb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// gpkgBlob wraps WKB into GeoPackage binary header. envelope is the number of envelope doubles (0, 4, 6 or 8)
func gpkgBlob(t *testing.T, g geom.T, srid int32, envelope int, empty bool) []byte {
	t.Helper()
	payload, err := wkb.Marshal(g, binary.LittleEndian)
	require.NoError(t, err)

	indicator := map[int]byte{0: 0, 4: 1, 6: 2, 8: 4}[envelope]
	flags := byte(0x01) | indicator<<1
	if empty {
		flags |= 0x10
	}
	blob := []byte{'G', 'P', 0, flags}
	blob = binary.LittleEndian.AppendUint32(blob, uint32(srid))
	for i := 0; i < envelope; i++ {
		blob = binary.LittleEndian.AppendUint64(blob, 0)
	}
	return append(blob, payload...)
}

func createGeoPackage(t *testing.T, fname string, srid int32, rows [][]any) {
	t.Helper()
	db, err := sql.Open("sqlite", fname)
	require.NoError(t, err)
	defer db.Close()

	statements := []string{
		`CREATE TABLE gpkg_contents (table_name TEXT PRIMARY KEY, data_type TEXT NOT NULL, identifier TEXT, srs_id INTEGER)`,
		`CREATE TABLE gpkg_geometry_columns (table_name TEXT NOT NULL, column_name TEXT NOT NULL, geometry_type_name TEXT NOT NULL, srs_id INTEGER NOT NULL, z TINYINT NOT NULL, m TINYINT NOT NULL)`,
		`CREATE TABLE irradiazione (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB, "costo_Sole" REAL, "costo_Ombra" REAL)`,
		`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, srs_id) VALUES ('notes', 'attributes', 'notes', 0)`,
		fmt.Sprintf(`INSERT INTO gpkg_contents (table_name, data_type, identifier, srs_id) VALUES ('irradiazione', 'features', 'irradiazione', %d)`, srid),
		fmt.Sprintf(`INSERT INTO gpkg_geometry_columns VALUES ('irradiazione', 'geom', 'MULTIPOLYGON', %d, 0, 0)`, srid),
	}
	for _, statement := range statements {
		_, err := db.Exec(statement)
		require.NoError(t, err, statement)
	}
	for _, row := range rows {
		_, err := db.Exec(`INSERT INTO irradiazione (geom, "costo_Sole", "costo_Ombra") VALUES (?, ?, ?)`, row...)
		require.NoError(t, err)
	}
}

func TestGeoPackageSource(t *testing.T) {
	dir := t.TempDir()
	source := NewGeoPackageSource(dir)
	fname := source.Path(autumnMorning)
	assert.Equal(t, filepath.Join(dir, "irradiazioneMedia_Autunno_Mattina.gpkg"), fname)

	polygon := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 10, 0, 10, 10, 0, 10, 0, 0}, []int{10})
	multi := geom.NewMultiPolygonFlat(geom.XY, []float64{20, 0, 30, 0, 30, 10, 20, 0}, [][]int{{8}})
	createGeoPackage(t, fname, 25833, [][]any{
		{gpkgBlob(t, polygon, 25833, 0, false), 0.5, 0.0001},
		{gpkgBlob(t, multi, 25833, 4, false), 0.25, 0.0002},
		{gpkgBlob(t, geom.NewPolygon(geom.XY), 25833, 0, true), 1.0, 1.0},
	})

	set, err := source.LoadZones(context.Background(), autumnMorning)
	require.NoError(t, err)
	assert.Equal(t, 25833, set.SRID)
	require.Len(t, set.Zones, 3)

	assert.Equal(t, orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}, set.Zones[0].Geom)
	assert.Equal(t, 0.5, set.Zones[0].SunCost)
	assert.Equal(t, 0.0001, set.Zones[0].ShadeCost)
	assert.Equal(t, orb.MultiPolygon{{{{20, 0}, {30, 0}, {30, 10}, {20, 0}}}}, set.Zones[1].Geom)
	assert.Nil(t, set.Zones[2].Geom)

	// Empty record is dropped by the loader, shade is scaled
	projection, err := ProjectionBySRID(DefaultSRID)
	require.NoError(t, err)
	zones, err := NewLoader(source, projection).Load(context.Background(), autumnMorning)
	require.NoError(t, err)
	require.Len(t, zones, 2)
	assert.InDelta(t, 1.0, zones[0].ShadeCost, 1e-9)

	net, err := BuildNetwork(zones)
	require.NoError(t, err)
	assert.Equal(t, 7, net.NodesNum())
}

func TestGeoPackageSourceNotFound(t *testing.T) {
	source := NewGeoPackageSource(t.TempDir())
	_, err := source.LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
}

func TestGeoPackageSourceCustomNames(t *testing.T) {
	dir := t.TempDir()
	source := NewGeoPackageSource(dir,
		WithGeoPackagePattern("{season}-{period}"),
		WithGeoPackageLayer("irradiazione"),
		WithGeoPackageFields("costo_Sole", "costo_Ombra"),
	)
	polygon := geom.NewPolygonFlat(geom.XY, []float64{14, 40, 14.1, 40, 14.1, 40.1, 14, 40}, []int{8})
	createGeoPackage(t, filepath.Join(dir, "Autunno-Mattina.gpkg"), 4326, [][]any{
		{gpkgBlob(t, polygon, 4326, 6, false), 1.0, 2.0},
	})
	set, err := source.LoadZones(context.Background(), autumnMorning)
	require.NoError(t, err)
	assert.Equal(t, SRIDWGS84, set.SRID)
	require.Len(t, set.Zones, 1)

	missing := NewGeoPackageSource(dir, WithGeoPackagePattern("{season}-{period}"), WithGeoPackageLayer("other"))
	_, err = missing.LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
}

func TestDecodeGeoPackageGeometry(t *testing.T) {
	_, err := decodeGeoPackageGeometry([]byte("XX123456"))
	assert.True(t, errors.Is(err, ErrUnsupportedGeometry))

	_, err = decodeGeoPackageGeometry([]byte{'G', 'P', 0, 0x01 | 4<<1, 0, 0, 0, 0})
	assert.True(t, errors.Is(err, ErrUnsupportedGeometry))

	line := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 1, 1})
	_, err = decodeGeoPackageGeometry(gpkgBlob(t, line, 4326, 0, false))
	assert.True(t, errors.Is(err, ErrUnsupportedGeometry))

	blob := gpkgBlob(t, geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, []int{8}), 32633, 0, false)
	assert.Equal(t, 32633, geoPackageSRSID(blob))
	// Big endian header
	blob[3] &^= 0x01
	binary.BigEndian.PutUint32(blob[4:8], 25833)
	assert.Equal(t, 25833, geoPackageSRSID(blob))
}

func createShapefile(t *testing.T, fname string, records [][]any) {
	t.Helper()
	writer, err := shp.Create(fname, shp.POLYGON)
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, writer.SetFields([]shp.Field{
		shp.FloatField("sun_cost", 16, 6),
		shp.FloatField("shade_cost", 16, 8),
	}))
	for _, record := range records {
		polygon := (*shp.Polygon)(shp.NewPolyLine(record[0].([][]shp.Point)))
		n := writer.Write(polygon)
		require.NoError(t, writer.WriteAttribute(int(n), 0, record[1]))
		require.NoError(t, writer.WriteAttribute(int(n), 1, record[2]))
	}
}

func TestShapefileSource(t *testing.T) {
	dir := t.TempDir()
	source := NewShapefileSource(dir, DefaultSRID, WithShapefileFields("sun_cost", "shade_cost"))
	fname := source.Path(autumnMorning)
	assert.Equal(t, filepath.Join(dir, "irradiazioneMedia_Autunno_Mattina.shp"), fname)

	createShapefile(t, fname, [][]any{
		{[][]shp.Point{{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 0}, {X: 0, Y: 0}}}, 0.5, 0.0001},
		{[][]shp.Point{
			{{X: 20, Y: 0}, {X: 20, Y: 30}, {X: 50, Y: 30}, {X: 50, Y: 0}, {X: 20, Y: 0}},
			{{X: 30, Y: 10}, {X: 40, Y: 10}, {X: 40, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 10}},
		}, 0.25, 0.0002},
	})

	set, err := source.LoadZones(context.Background(), autumnMorning)
	require.NoError(t, err)
	assert.Equal(t, DefaultSRID, set.SRID)
	require.Len(t, set.Zones, 2)
	assert.Equal(t, int64(1), set.Zones[0].ID)
	assert.InDelta(t, 0.5, set.Zones[0].SunCost, 1e-9)
	assert.InDelta(t, 0.0001, set.Zones[0].ShadeCost, 1e-9)
	polygon := set.Zones[1].Geom.(orb.Polygon)
	require.Len(t, polygon, 2)
	assert.Equal(t, orb.Point{30, 10}, polygon[1][0])
}

func TestShapefileSourceErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewShapefileSource(dir, DefaultSRID).LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	source := NewShapefileSource(dir, DefaultSRID)
	createShapefile(t, source.Path(autumnMorning), [][]any{
		{[][]shp.Point{{{X: 0, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}, {X: 0, Y: 0}}}, 0.5, 0.0001},
	})
	// Default field names are not present in the file
	_, err = source.LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrInvalidCost))
}

func TestLookupField(t *testing.T) {
	fields := map[string]int{"costo_sole": 0, "costo_ombr": 1}
	idx, ok := lookupField(fields, "costo_Sole")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
	// DBF truncates names to 10 characters
	idx, ok = lookupField(fields, "costo_Ombra")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = lookupField(fields, "other")
	assert.False(t, ok)
}

const geojsonFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"costo_Sole": 0.5, "costo_Ombra": 0.0001},
      "geometry": {"type": "Polygon", "coordinates": [[[14.25, 40.85], [14.26, 40.85], [14.26, 40.86], [14.25, 40.85]]]}
    },
    {
      "type": "Feature",
      "properties": {"costo_Sole": 0.3, "costo_Ombra": 0.0003},
      "geometry": {"type": "MultiPolygon", "coordinates": [[[[14.26, 40.85], [14.27, 40.85], [14.27, 40.86], [14.26, 40.85]]]]}
    },
    {
      "type": "Feature",
      "properties": {"costo_Sole": 0.3, "costo_Ombra": 0.0003},
      "geometry": null
    }
  ]
}`

func TestGeoJSONSource(t *testing.T) {
	dir := t.TempDir()
	source := NewGeoJSONSource(dir)
	require.NoError(t, os.WriteFile(source.Path(autumnMorning), []byte(geojsonFixture), 0o644))

	set, err := source.LoadZones(context.Background(), autumnMorning)
	require.NoError(t, err)
	assert.Equal(t, SRIDWGS84, set.SRID)
	require.Len(t, set.Zones, 2)
	assert.Equal(t, orb.Polygon{{{14.25, 40.85}, {14.26, 40.85}, {14.26, 40.86}, {14.25, 40.85}}}, set.Zones[0].Geom)
	assert.IsType(t, orb.MultiPolygon{}, set.Zones[1].Geom)
	assert.Equal(t, 0.0003, set.Zones[1].ShadeCost)

	// Both zones share the vertex (14.26, 40.85) after projection
	projection, err := ProjectionBySRID(DefaultSRID)
	require.NoError(t, err)
	zones, err := NewLoader(source, projection).Load(context.Background(), autumnMorning)
	require.NoError(t, err)
	net, err := BuildNetwork(zones)
	require.NoError(t, err)
	assert.Equal(t, 5, net.NodesNum())
}

func TestGeoJSONSourceErrors(t *testing.T) {
	dir := t.TempDir()
	source := NewGeoJSONSource(dir, WithGeoJSONPattern("{season}_{period}"), WithGeoJSONSRID(DefaultSRID), WithGeoJSONFields("sun", "shade"))
	_, err := source.LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrDatasetNotFound))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Autunno_Mattina.geojson"), []byte(geojsonFixture), 0o644))
	_, err = source.LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrInvalidCost))

	lines := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"sun":1,"shade":1},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Autunno_Mattina.geojson"), []byte(lines), 0o644))
	_, err = source.LoadZones(context.Background(), autumnMorning)
	assert.True(t, errors.Is(err, ErrUnsupportedGeometry))
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestPostGISSource(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	square := orb.Polygon{{{14.25, 40.85}, {14.26, 40.85}, {14.26, 40.86}, {14.25, 40.85}}}
	blob, err := orbwkb.Marshal(square)
	require.NoError(t, err)

	source := NewPostGISSource(mock, WithPostGISTable("public.zones"), WithPostGISColumns("geom", "sun", "shade"))
	mock.ExpectQuery(`SELECT ST_AsBinary\(ST_Transform\("geom", 4326\)\), "sun", "shade" FROM "public"."zones" WHERE season = \$1 AND period = \$2`).
		WithArgs("Autunno", "Mattina").
		WillReturnRows(pgxmock.NewRows([]string{"geom", "sun", "shade"}).
			AddRow(blob, floatPtr(0.5), floatPtr(0.0001)).
			AddRow(nil, floatPtr(0.1), floatPtr(0.1)))

	set, err := source.LoadZones(context.Background(), autumnMorning)
	require.NoError(t, err)
	assert.Equal(t, SRIDWGS84, set.SRID)
	require.Len(t, set.Zones, 2)
	assert.Equal(t, square, set.Zones[0].Geom)
	assert.Equal(t, 0.5, set.Zones[0].SunCost)
	assert.Nil(t, set.Zones[1].Geom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGISSourceNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT .* FROM "exposure_zones"`).
		WithArgs("Inverno", "Sera").
		WillReturnRows(pgxmock.NewRows([]string{"geom", "sun_cost", "shade_cost"}))

	_, err = NewPostGISSource(mock).LoadZones(context.Background(), DatasetKey{Season: "Inverno", Period: "Sera"})
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostGISSourceQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("Autunno", "Mattina").WillReturnError(fmt.Errorf("connection refused"))
	_, err = NewPostGISSource(mock).LoadZones(context.Background(), autumnMorning)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrDatasetNotFound))
	assert.Contains(t, err.Error(), "connection refused")
}
