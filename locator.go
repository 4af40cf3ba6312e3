package shaderoute

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// Snap is the closest point of the network to an arbitrary point
type Snap struct {
	// Point lies on the edge geometry
	Point    orb.Point
	Distance float64
	// Edge is forward edge of the nearest connection. Its twin is Edge^1
	Edge   EdgeID
	Source NodeID
	Target NodeID
	// Fraction of the edge length from Source to Point
	Fraction float64
}

// edgeIndex is R-tree over bounding boxes of connections (one entry per twin pair)
type edgeIndex struct {
	tree rtree.RTreeG[EdgeID]
}

func newEdgeIndex(net *Network) *edgeIndex {
	index := &edgeIndex{}
	for _, edge := range net.edges {
		if edge.ID%2 != 0 {
			continue
		}
		bound := edge.Geom.Bound()
		index.tree.Insert([2]float64{bound.Min[0], bound.Min[1]}, [2]float64{bound.Max[0], bound.Max[1]}, edge.ID)
	}
	return index
}

// NearestEdge returns orthogonal projection of the point onto the closest edge.
// Ties are broken in favour of the edge added first. Returns false when network has no edges
func (net *Network) NearestEdge(pt orb.Point) (Snap, bool) {
	if net.index == nil || net.index.tree.Len() == 0 {
		return Snap{}, false
	}
	bestEdge := EdgeID(-1)
	bestDist := math.Inf(1)
	net.index.tree.Nearby(
		func(min, max [2]float64, data EdgeID, item bool) float64 {
			if item {
				edge := net.edges[data]
				d := distanceToSegment(pt, edge.Geom[0], edge.Geom[1])
				return d * d
			}
			return boxDistance(pt, min, max)
		},
		func(min, max [2]float64, data EdgeID, dist float64) bool {
			if dist > bestDist {
				return false
			}
			if dist < bestDist || data < bestEdge {
				bestDist = dist
				bestEdge = data
			}
			return true
		},
	)
	return net.snapToEdge(pt, bestEdge), true
}

// nearestEdgeLinear is plain scan over every edge. Used as reference for the indexed search
func (net *Network) nearestEdgeLinear(pt orb.Point) (Snap, bool) {
	bestEdge := EdgeID(-1)
	bestDist := math.Inf(1)
	for _, edge := range net.edges {
		// Twins share geometry
		if edge.ID%2 != 0 {
			continue
		}
		d := distanceToSegment(pt, edge.Geom[0], edge.Geom[1])
		if d*d < bestDist {
			bestDist = d * d
			bestEdge = edge.ID
		}
	}
	if bestEdge < 0 {
		return Snap{}, false
	}
	return net.snapToEdge(pt, bestEdge), true
}

func (net *Network) snapToEdge(pt orb.Point, id EdgeID) Snap {
	edge := net.edges[id]
	proj, fraction := projectOnSegment(pt, edge.Geom[0], edge.Geom[1])
	return Snap{
		Point:    proj,
		Distance: findDistance(pt, proj),
		Edge:     edge.ID,
		Source:   edge.Source,
		Target:   edge.Target,
		Fraction: fraction,
	}
}
