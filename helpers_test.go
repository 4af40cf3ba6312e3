package shaderoute

import (
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// planarProjection treats query coordinates as planar ones, so fixtures could be drawn in meters
type planarProjection struct{}

func (planarProjection) Forward(pt orb.Point) orb.Point { return pt }
func (planarProjection) Inverse(pt orb.Point) orb.Point { return pt }
func (planarProjection) SRID() int                      { return 0 }

func square(x, y, size float64) orb.Polygon {
	return orb.Polygon{{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

func zone(id int64, geom orb.Geometry, sunCost, shadeCost float64) ExposureZone {
	return ExposureZone{ID: id, Geom: geom, SunCost: sunCost, ShadeCost: shadeCost}
}

// divergenceZones is a fixture where sun-preferring and shade-preferring routes differ.
// P(0,0) and Q(10,0) are joined directly by a sunny triangle border and by a detour through (5,-19)
// along a shadowed zone. Stubs left of P and right of Q are used to snap query points.
// The remote square only sets normalization maximums
func divergenceZones() []ExposureZone {
	return []ExposureZone{
		zone(1, orb.Polygon{{{0, 0}, {10, 0}, {5, 1}, {0, 0}}}, 100, 0),
		zone(2, orb.Polygon{{{0, 0}, {0, -20}, {10, -20}, {10, 0}, {5, -19}, {0, 0}}}, 1, 5),
		zone(3, orb.Polygon{{{0, 0}, {-3, 1}, {-3, -1}, {0, 0}}}, 1, 0),
		zone(4, orb.Polygon{{{10, 0}, {13, 1}, {13, -1}, {10, 0}}}, 1, 0),
		zone(5, square(5000, 5000, 1000), 50, 50),
	}
}

var (
	divergenceStart = orb.Point{-3.2, 0}
	divergenceEnd   = orb.Point{13.2, 0}
	detourVertex    = orb.Point{5, -19}
)

func containsPoint(line orb.LineString, pt orb.Point) bool {
	for _, p := range line {
		if p.Equal(pt) {
			return true
		}
	}
	return false
}
