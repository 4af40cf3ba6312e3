package shaderoute

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
)

// RouteFinder answers single-criterion route queries between two geographic points
type RouteFinder interface {
	FindRoute(start, end orb.Point, criterion Criterion) (*RouteResult, error)
}

// RouteResult is path found for one criterion. Found == false is explicit "no route" marker
type RouteResult struct {
	Criterion Criterion
	Found     bool
	// Geom is in geographic coordinates (lon, lat)
	Geom orb.LineString
	// LengthMeters is measured in planar CRS
	LengthMeters float64
	// Cost is sum of criterion weights along the path
	Cost float64
}

// Router finds routes over immutable network. Every query works on its own overlay,
// so Router is safe for concurrent use
type Router struct {
	net        *Network
	projection Projection
}

func NewRouter(net *Network, projection Projection) *Router {
	return &Router{
		net:        net,
		projection: projection,
	}
}

// FindRoute snaps both points to the network and returns path minimizing weights of given criterion
func (router *Router) FindRoute(start, end orb.Point, criterion Criterion) (*RouteResult, error) {
	if err := validateQuery(start, end, criterion); err != nil {
		return nil, err
	}
	result := &RouteResult{Criterion: criterion}
	startSnap, endSnap, ok := snapQuery(router.net, router.projection, start, end)
	if !ok {
		return result, nil
	}
	line, cost, found := router.route(startSnap, endSnap, criterionWeight(criterion))
	if !found {
		return result, nil
	}
	result.fill(line, cost, router.projection)
	return result, nil
}

// route runs path search between two snaps. Returned line is in planar CRS
func (router *Router) route(startSnap, endSnap Snap, weight weightFunc) (orb.LineString, float64, bool) {
	if line, ok := directLine(startSnap, endSnap); ok {
		return line, 0, true
	}
	ov := newOverlay(router.net)
	source := ov.addSnap(startSnap)
	target := ov.addSnap(endSnap)
	path, cost, found := ov.shortestPath(source, target, weight)
	if !found {
		return nil, cost, false
	}
	segments := make([]orb.LineString, len(path))
	for i, edge := range path {
		segments[i] = edge.Geom
	}
	return mergeSegments(segments), cost, true
}

func (result *RouteResult) fill(planar orb.LineString, cost float64, projection Projection) {
	result.Found = true
	result.Cost = cost
	result.LengthMeters = getLength(planar)
	result.Geom = ProjectLine(planar, projection.Inverse)
}

// directLine handles snaps coinciding or lying on the same connection: the straight line between them is optimal
// since connector edges cost nothing
func directLine(startSnap, endSnap Snap) (orb.LineString, bool) {
	if startSnap.Point.Equal(endSnap.Point) {
		return orb.LineString{startSnap.Point, endSnap.Point}, true
	}
	if startSnap.Edge == endSnap.Edge {
		return orb.LineString{startSnap.Point, endSnap.Point}, true
	}
	return nil, false
}

func snapQuery(net *Network, projection Projection, start, end orb.Point) (Snap, Snap, bool) {
	startSnap, ok := net.NearestEdge(projection.Forward(start))
	if !ok {
		return Snap{}, Snap{}, false
	}
	endSnap, ok := net.NearestEdge(projection.Forward(end))
	if !ok {
		return Snap{}, Snap{}, false
	}
	return startSnap, endSnap, true
}

func validateQuery(start, end orb.Point, criterion Criterion) error {
	if criterion != CriterionSun && criterion != CriterionShade {
		return errors.Wrapf(ErrInvalidRequest, "criterion %d", criterion)
	}
	if err := ValidateGeoPoint(start); err != nil {
		return errors.Wrap(err, "start")
	}
	if err := ValidateGeoPoint(end); err != nil {
		return errors.Wrap(err, "end")
	}
	return nil
}

// ValidateGeoPoint checks longitude and latitude ranges
func ValidateGeoPoint(pt orb.Point) error {
	lon, lat := pt.Lon(), pt.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return errors.Wrapf(ErrInvalidRequest, "coordinates are not finite numbers: %v", pt)
	}
	if lon < -180 || lon > 180 {
		return errors.Wrapf(ErrInvalidRequest, "longitude %f is out of range", lon)
	}
	if lat < -90 || lat > 90 {
		return errors.Wrapf(ErrInvalidRequest, "latitude %f is out of range", lat)
	}
	return nil
}
