package shaderoute

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
)

// overlay is per-query augmentation of immutable network: temporary snap nodes and zero-weight connector edges.
// Base network is never touched, so any number of overlays could exist at the same time
type overlay struct {
	base           *Network
	nodes          []orb.Point
	edges          []*Edge
	outcomingEdges map[NodeID][]EdgeID
}

func newOverlay(base *Network) *overlay {
	return &overlay{
		base:           base,
		nodes:          make([]orb.Point, 0, 2),
		edges:          make([]*Edge, 0, 8),
		outcomingEdges: make(map[NodeID][]EdgeID),
	}
}

func (ov *overlay) nodesNum() int {
	return len(ov.base.nodes) + len(ov.nodes)
}

func (ov *overlay) node(id NodeID) orb.Point {
	if int(id) < len(ov.base.nodes) {
		return ov.base.nodes[id]
	}
	return ov.nodes[int(id)-len(ov.base.nodes)]
}

func (ov *overlay) edge(id EdgeID) *Edge {
	if int(id) < len(ov.base.edges) {
		return ov.base.edges[id]
	}
	return ov.edges[int(id)-len(ov.base.edges)]
}

// addSnap inserts snap point as a new node connected with both endpoints of its edge in both directions
func (ov *overlay) addSnap(snap Snap) NodeID {
	id := NodeID(ov.nodesNum())
	ov.nodes = append(ov.nodes, snap.Point)
	for _, endpoint := range [2]NodeID{snap.Source, snap.Target} {
		ov.addConnector(id, endpoint)
		ov.addConnector(endpoint, id)
	}
	return id
}

func (ov *overlay) addConnector(source, target NodeID) {
	from := ov.node(source)
	to := ov.node(target)
	edge := &Edge{
		ID:           EdgeID(len(ov.base.edges) + len(ov.edges)),
		Source:       source,
		Target:       target,
		LengthMeters: findDistance(from, to),
		Geom:         orb.LineString{from, to},
	}
	ov.edges = append(ov.edges, edge)
	ov.outcomingEdges[source] = append(ov.outcomingEdges[source], edge.ID)
}

// forEachOutcoming calls fn for base edges first, then for temporary ones
func (ov *overlay) forEachOutcoming(id NodeID, fn func(edge *Edge)) {
	if int(id) < len(ov.base.nodes) {
		for _, edgeID := range ov.base.outcomingEdges[id] {
			fn(ov.base.edges[edgeID])
		}
	}
	for _, edgeID := range ov.outcomingEdges[id] {
		fn(ov.edge(edgeID))
	}
}

type weightFunc func(edge *Edge) float64

func criterionWeight(criterion Criterion) weightFunc {
	return func(edge *Edge) float64 {
		return edge.Weight(criterion)
	}
}

func lengthWeight(edge *Edge) float64 {
	return edge.LengthMeters
}

type queueItem struct {
	node NodeID
	cost float64
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].cost == pq[j].cost {
		return pq[i].node < pq[j].node
	}
	return pq[i].cost < pq[j].cost
}
func (pq priorityQueue) Swap(i, j int)  { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x any)   { *pq = append(*pq, x.(queueItem)) }
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// shortestPath is Dijkstra's algorithm over base network and temporary edges.
// Returns edges of the path in travel order, total cost and false if target is unreachable
func (ov *overlay) shortestPath(source, target NodeID, weight weightFunc) ([]*Edge, float64, bool) {
	n := ov.nodesNum()
	costs := make([]float64, n)
	prevEdges := make([]EdgeID, n)
	visited := make([]bool, n)
	for i := range costs {
		costs[i] = math.Inf(1)
		prevEdges[i] = -1
	}
	costs[source] = 0

	pq := &priorityQueue{{node: source, cost: 0}}
	for pq.Len() > 0 {
		item := heap.Pop(pq).(queueItem)
		if visited[item.node] {
			continue
		}
		visited[item.node] = true
		if item.node == target {
			break
		}
		ov.forEachOutcoming(item.node, func(edge *Edge) {
			if visited[edge.Target] {
				return
			}
			cost := item.cost + weight(edge)
			if cost < costs[edge.Target] {
				costs[edge.Target] = cost
				prevEdges[edge.Target] = edge.ID
				heap.Push(pq, queueItem{node: edge.Target, cost: cost})
			}
		})
	}
	if !visited[target] {
		return nil, math.Inf(1), false
	}

	path := make([]*Edge, 0)
	for current := target; current != source; {
		edge := ov.edge(prevEdges[current])
		path = append(path, edge)
		current = edge.Source
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, costs[target], true
}
