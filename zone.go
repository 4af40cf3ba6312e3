package shaderoute

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var (
	ErrInvalidCost         = errors.New("invalid cost value")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// ExposureZone is an area with aggregated sun and shadow exposure for certain time window
type ExposureZone struct {
	ID int64
	// Geom is orb.Polygon or orb.MultiPolygon
	Geom      orb.Geometry
	SunCost   float64
	ShadeCost float64
}

// rings returns every ring (outer boundaries and holes) of the zone as separate line pieces.
// Rings with less than two points are skipped
func (zone *ExposureZone) rings() ([]orb.LineString, error) {
	var polygons []orb.Polygon
	switch geom := zone.Geom.(type) {
	case nil:
		return nil, nil
	case orb.Polygon:
		polygons = []orb.Polygon{geom}
	case orb.MultiPolygon:
		polygons = geom
	case orb.Ring:
		polygons = []orb.Polygon{{geom}}
	default:
		return nil, errors.Wrapf(ErrUnsupportedGeometry, "zone %d has geometry '%s'", zone.ID, zone.Geom.GeoJSONType())
	}
	pieces := make([]orb.LineString, 0, len(polygons))
	for _, polygon := range polygons {
		for _, ring := range polygon {
			if len(ring) < 2 {
				continue
			}
			piece := make(orb.LineString, len(ring))
			copy(piece, ring)
			pieces = append(pieces, piece)
		}
	}
	return pieces, nil
}

func (zone *ExposureZone) validate() error {
	if math.IsNaN(zone.SunCost) || math.IsInf(zone.SunCost, 0) || zone.SunCost < 0 {
		return errors.Wrapf(ErrInvalidCost, "zone %d: sun cost %f", zone.ID, zone.SunCost)
	}
	if math.IsNaN(zone.ShadeCost) || math.IsInf(zone.ShadeCost, 0) || zone.ShadeCost < 0 {
		return errors.Wrapf(ErrInvalidCost, "zone %d: shade cost %f", zone.ID, zone.ShadeCost)
	}
	return nil
}
