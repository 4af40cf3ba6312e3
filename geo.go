package shaderoute

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/pkg/errors"
	"github.com/wroge/wgs84"
)

const (
	// SRIDWGS84 is geographic longitude/latitude (EPSG:4326)
	SRIDWGS84 = 4326
	// SRIDWebMercator is EPSG:3857
	SRIDWebMercator = 3857
	// DefaultSRID is ETRS89 / UTM zone 33N (EPSG:25833)
	DefaultSRID = 25833
)

var (
	ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")
)

// Projection converts between geographic coordinates (lon, lat in WGS84 degrees) and a planar CRS
type Projection interface {
	// Forward converts lon/lat into planar coordinates
	Forward(pt orb.Point) orb.Point
	// Inverse converts planar coordinates into lon/lat
	Inverse(pt orb.Point) orb.Point
	// SRID returns EPSG code of the planar CRS
	SRID() int
}

// ProjectionBySRID returns projection for the given EPSG code.
// Supported: 3857, 258xx (ETRS89 / UTM north), 326xx (WGS84 / UTM north), 327xx (WGS84 / UTM south)
func ProjectionBySRID(srid int) (Projection, error) {
	switch {
	case srid == SRIDWebMercator:
		return WebMercator{}, nil
	case srid >= 25828 && srid <= 25838:
		crs := wgs84.ETRS89UTM(float64(srid - 25800))
		return &UTM{srid: srid, forward: wgs84.LonLat().To(crs), inverse: crs.To(wgs84.LonLat())}, nil
	case srid >= 32601 && srid <= 32660:
		crs := wgs84.UTM(float64(srid-32600), true)
		return &UTM{srid: srid, forward: wgs84.LonLat().To(crs), inverse: crs.To(wgs84.LonLat())}, nil
	case srid >= 32701 && srid <= 32760:
		crs := wgs84.UTM(float64(srid-32700), false)
		return &UTM{srid: srid, forward: wgs84.LonLat().To(crs), inverse: crs.To(wgs84.LonLat())}, nil
	}
	return nil, errors.Wrapf(ErrUnsupportedCRS, "EPSG:%d", srid)
}

// ParseSRID parses "EPSG:25833" or plain "25833"
func ParseSRID(code string) (int, error) {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(strings.ToUpper(code), "EPSG:")
	srid, err := strconv.Atoi(code)
	if err != nil {
		return 0, errors.Wrapf(ErrUnsupportedCRS, "can't parse '%s'", code)
	}
	return srid, nil
}

// ProjectLine applies fn to every point of the line. Returns new slice
func ProjectLine(line orb.LineString, fn func(orb.Point) orb.Point) orb.LineString {
	newLine := make(orb.LineString, len(line))
	for i, pt := range line {
		newLine[i] = fn(pt)
	}
	return newLine
}

// WebMercator is EPSG:3857. Kept for visual debugging: distances are not true meters away from equator
type WebMercator struct{}

func (WebMercator) Forward(pt orb.Point) orb.Point {
	return project.Point(pt, project.WGS84.ToMercator)
}

func (WebMercator) Inverse(pt orb.Point) orb.Point {
	return project.Point(pt, project.Mercator.ToWGS84)
}

func (WebMercator) SRID() int {
	return SRIDWebMercator
}

// UTM is a Universal Transverse Mercator zone. Transformations are done by wgs84 package
type UTM struct {
	srid    int
	forward func(a, b, c float64) (float64, float64, float64)
	inverse func(a, b, c float64) (float64, float64, float64)
}

func (utm *UTM) SRID() int {
	return utm.srid
}

func (utm *UTM) Forward(pt orb.Point) orb.Point {
	east, north, _ := utm.forward(pt.Lon(), pt.Lat(), 0)
	return orb.Point{east, north}
}

func (utm *UTM) Inverse(pt orb.Point) orb.Point {
	lon, lat, _ := utm.inverse(pt.X(), pt.Y(), 0)
	return orb.Point{lon, lat}
}
