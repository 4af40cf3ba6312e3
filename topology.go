package shaderoute

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"
)

// topologyNode is registered vertex stored in quadtree
type topologyNode struct {
	id int
	pt orb.Point
}

func (node *topologyNode) Point() orb.Point {
	return node.pt
}

// topology merges near-coincident vertices of independently digitized boundaries.
// Result depends on input order only: every vertex is merged into the nearest already registered vertex
// within tolerance, otherwise it becomes a new vertex
type topology struct {
	tolerance float64
	tree      *quadtree.Quadtree
	nodes     []*topologyNode
}

func newTopology(bound orb.Bound, tolerance float64) *topology {
	return &topology{
		tolerance: tolerance,
		tree:      quadtree.New(bound.Pad(tolerance + 1.0)),
		nodes:     make([]*topologyNode, 0),
	}
}

// register returns index of the vertex which given point is merged into
func (topo *topology) register(pt orb.Point) (int, error) {
	if nearest := topo.tree.Find(pt); nearest != nil {
		node := nearest.(*topologyNode)
		if findDistance(node.pt, pt) <= topo.tolerance {
			return node.id, nil
		}
	}
	node := &topologyNode{
		id: len(topo.nodes),
		pt: pt,
	}
	if err := topo.tree.Add(node); err != nil {
		return -1, errors.Wrapf(err, "Can't register vertex %v", pt)
	}
	topo.nodes = append(topo.nodes, node)
	return node.id, nil
}

// registerLine converts line into sequence of vertex indices. Consecutive duplicates are collapsed
func (topo *topology) registerLine(line orb.LineString) ([]int, error) {
	ids := make([]int, 0, len(line))
	for _, pt := range line {
		id, err := topo.register(pt)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 && ids[len(ids)-1] == id {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

type splitPoint struct {
	id       int
	fraction float64
}

// splitSegment returns vertices lying within tolerance of the segment interior, ordered from a to b,
// surrounded by segment endpoints
func (topo *topology) splitSegment(a, b int) []int {
	pa := topo.nodes[a].pt
	pb := topo.nodes[b].pt
	bound := orb.LineString{pa, pb}.Bound().Pad(topo.tolerance)
	candidates := topo.tree.InBound(nil, bound)
	splits := make([]splitPoint, 0)
	for _, candidate := range candidates {
		node := candidate.(*topologyNode)
		if node.id == a || node.id == b {
			continue
		}
		proj, fraction := projectOnSegment(node.pt, pa, pb)
		if fraction <= 0 || fraction >= 1 {
			continue
		}
		if findDistance(node.pt, proj) > topo.tolerance {
			continue
		}
		splits = append(splits, splitPoint{id: node.id, fraction: fraction})
	}
	sort.Slice(splits, func(i, j int) bool {
		if splits[i].fraction == splits[j].fraction {
			return splits[i].id < splits[j].id
		}
		return splits[i].fraction < splits[j].fraction
	})
	chain := make([]int, 0, len(splits)+2)
	chain = append(chain, a)
	for _, split := range splits {
		chain = append(chain, split.id)
	}
	chain = append(chain, b)
	return chain
}
