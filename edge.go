package shaderoute

import (
	"math"

	"github.com/paulmach/orb"
)

type NodeID int64

type EdgeID int64

// Edge is a directed arc of the network. Every edge has its twin of opposite direction with the same weights:
// twin's ID differs in the lowest bit only
type Edge struct {
	ID           EdgeID
	Source       NodeID
	Target       NodeID
	LengthMeters float64
	// Raw costs of the zone (or the cheapest of zones) the edge came from
	SunCost   float64
	ShadeCost float64
	// Normalized blend of length and cost
	SunWeight   float64
	ShadeWeight float64
	Geom        orb.LineString
}

// Reverse returns ID of the edge with opposite direction
func (edge *Edge) Reverse() EdgeID {
	return edge.ID ^ 1
}

// Weight returns weight of the edge for given criterion. Unknown criterion makes the edge impassable
func (edge *Edge) Weight(criterion Criterion) float64 {
	switch criterion {
	case CriterionSun:
		return edge.SunWeight
	case CriterionShade:
		return edge.ShadeWeight
	}
	return math.Inf(1)
}
