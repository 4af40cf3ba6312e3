package shaderoute

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUTM33Forward(t *testing.T) {
	projection, err := ProjectionBySRID(DefaultSRID)
	require.NoError(t, err)
	assert.Equal(t, DefaultSRID, projection.SRID())

	// Central meridian of zone 33 is 15E
	pt := projection.Forward(orb.Point{15, 45})
	assert.InDelta(t, 500000.0, pt.X(), 1e-3)
	assert.InDelta(t, 4982950.4, pt.Y(), 1.0)

	pt = projection.Forward(orb.Point{15, 0})
	assert.InDelta(t, 500000.0, pt.X(), 1e-3)
	assert.InDelta(t, 0.0, pt.Y(), 1e-3)

	// East of the central meridian easting grows
	pt = projection.Forward(orb.Point{16, 45})
	assert.Greater(t, pt.X(), 500000.0)
}

func TestUTMReferencePoint(t *testing.T) {
	// 9E 52N on the central meridian of zone 32
	for _, srid := range []int{25832, 32632} {
		projection, err := ProjectionBySRID(srid)
		require.NoError(t, err)
		assert.IsType(t, &UTM{}, projection)
		pt := projection.Forward(orb.Point{9, 52})
		assert.InDelta(t, 500000.0, pt.X(), 0.01, "srid %d", srid)
		assert.InDelta(t, 5761038.21, pt.Y(), 0.01, "srid %d", srid)
	}
}

func TestETRS89MatchesWGS84Zone(t *testing.T) {
	etrs, err := ProjectionBySRID(25833)
	require.NoError(t, err)
	utm, err := ProjectionBySRID(32633)
	require.NoError(t, err)
	naples := orb.Point{14.2681, 40.8518}
	a, b := etrs.Forward(naples), utm.Forward(naples)
	assert.InDelta(t, a.X(), b.X(), 1.0)
	assert.InDelta(t, a.Y(), b.Y(), 1.0)
}

func TestProjectionRoundTrip(t *testing.T) {
	points := []orb.Point{
		{14.2681, 40.8518}, // Naples
		{12.4964, 41.9028},
		{17.9, 47.1},
		{15, 0.5},
	}
	for _, srid := range []int{25833, 32633, 32733, SRIDWebMercator} {
		projection, err := ProjectionBySRID(srid)
		require.NoError(t, err)
		for _, pt := range points {
			if srid == 32733 {
				pt[1] = -pt[1]
			}
			back := projection.Inverse(projection.Forward(pt))
			assert.InDelta(t, pt.Lon(), back.Lon(), 1e-6, "srid %d lon", srid)
			assert.InDelta(t, pt.Lat(), back.Lat(), 1e-6, "srid %d lat", srid)
		}
	}
}

func TestSouthernHemisphereFalseNorthing(t *testing.T) {
	projection, err := ProjectionBySRID(32733)
	require.NoError(t, err)
	pt := projection.Forward(orb.Point{15, -10})
	assert.Less(t, pt.Y(), 10000000.0)
	assert.Greater(t, pt.Y(), 8000000.0)
}

func TestProjectionBySRIDUnsupported(t *testing.T) {
	_, err := ProjectionBySRID(4326)
	assert.True(t, errors.Is(err, ErrUnsupportedCRS))
	_, err = ProjectionBySRID(2154)
	assert.True(t, errors.Is(err, ErrUnsupportedCRS))
}

func TestParseSRID(t *testing.T) {
	srid, err := ParseSRID("EPSG:25833")
	require.NoError(t, err)
	assert.Equal(t, 25833, srid)

	srid, err = ParseSRID(" epsg:3857 ")
	require.NoError(t, err)
	assert.Equal(t, 3857, srid)

	srid, err = ParseSRID("32633")
	require.NoError(t, err)
	assert.Equal(t, 32633, srid)

	_, err = ParseSRID("UTM33")
	assert.True(t, errors.Is(err, ErrUnsupportedCRS))
}

func TestProjectLine(t *testing.T) {
	line := orb.LineString{{1, 2}, {3, 4}}
	shifted := ProjectLine(line, func(pt orb.Point) orb.Point {
		return orb.Point{pt[0] + 1, pt[1] + 1}
	})
	assert.Equal(t, orb.LineString{{2, 3}, {4, 5}}, shifted)
	assert.Equal(t, orb.Point{1, 2}, line[0])
}
