package shaderoute

import (
	"math"
	"sync"
	"time"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// contractedGraph guards ch.Graph: query buffers of the library are not meant to be shared
type contractedGraph struct {
	sync.Mutex
	graph *ch.Graph
}

func (cg *contractedGraph) shortestPath(source, target NodeID) (float64, []int64) {
	cg.Lock()
	defer cg.Unlock()
	return cg.graph.ShortestPath(int64(source), int64(target))
}

// ContractedRouter answers the same queries as Router using contraction hierarchies prepared per criterion.
// Connector edges cost nothing, so the best route is the best of four queries between endpoints of snapped edges
type ContractedRouter struct {
	net        *Network
	projection Projection
	graphs     map[Criterion]*contractedGraph
}

// NewContractedRouter prepares contraction hierarchies for every criterion. Could take a while on big networks
func NewContractedRouter(net *Network, projection Projection) (*ContractedRouter, error) {
	router := &ContractedRouter{
		net:        net,
		projection: projection,
		graphs:     make(map[Criterion]*contractedGraph, len(Criteria)),
	}
	for _, criterion := range Criteria {
		st := time.Now()
		graph, err := prepareContracted(net, criterion)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't prepare contraction hierarchies for criterion '%s'", criterion)
		}
		router.graphs[criterion] = &contractedGraph{graph: graph}
		zap.L().Debug("contraction hierarchies prepared",
			zap.Stringer("criterion", criterion),
			zap.Int("vertices", net.NodesNum()),
			zap.Duration("took", time.Since(st)),
		)
	}
	return router, nil
}

func prepareContracted(net *Network, criterion Criterion) (*ch.Graph, error) {
	graph := ch.Graph{}
	for id := range net.nodes {
		err := graph.CreateVertex(int64(id))
		if err != nil {
			return nil, errors.Wrap(err, "Can not create vertex")
		}
	}
	weight := criterionWeight(criterion)
	for _, edge := range net.edges {
		err := graph.AddEdge(int64(edge.Source), int64(edge.Target), weight(edge))
		if err != nil {
			return nil, errors.Wrap(err, "Can not wrap Source and Target vertices as Edge")
		}
	}
	if net.NodesNum() > 0 {
		graph.PrepareContractionHierarchies()
	}
	return &graph, nil
}

func (router *ContractedRouter) FindRoute(start, end orb.Point, criterion Criterion) (*RouteResult, error) {
	if err := validateQuery(start, end, criterion); err != nil {
		return nil, err
	}
	result := &RouteResult{Criterion: criterion}
	startSnap, endSnap, ok := snapQuery(router.net, router.projection, start, end)
	if !ok {
		return result, nil
	}
	if line, ok := directLine(startSnap, endSnap); ok {
		result.fill(line, 0, router.projection)
		return result, nil
	}
	graph := router.graphs[criterion]

	bestCost := math.Inf(1)
	var bestPath []int64
	for _, source := range [2]NodeID{startSnap.Source, startSnap.Target} {
		for _, target := range [2]NodeID{endSnap.Source, endSnap.Target} {
			var cost float64
			var path []int64
			if source == target {
				cost, path = 0, []int64{int64(source)}
			} else {
				cost, path = graph.shortestPath(source, target)
			}
			if cost < 0 || len(path) == 0 {
				continue
			}
			if cost < bestCost {
				bestCost = cost
				bestPath = path
			}
		}
	}
	if bestPath == nil {
		return result, nil
	}

	line := make(orb.LineString, 0, len(bestPath)+2)
	line = append(line, startSnap.Point)
	for _, vertex := range bestPath {
		pt := router.net.nodes[vertex]
		if line[len(line)-1].Equal(pt) {
			continue
		}
		line = append(line, pt)
	}
	if !line[len(line)-1].Equal(endSnap.Point) {
		line = append(line, endSnap.Point)
	}
	if len(line) == 1 {
		line = append(line, endSnap.Point)
	}
	result.fill(line, bestCost, router.projection)
	return result, nil
}
