package shaderoute

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultSnapTolerance is distance (in planar units) within which vertices are considered the same node
	DefaultSnapTolerance = 0.5
	// DefaultShadeScale brings raw shadow cost to the magnitude of the raw sun cost
	DefaultShadeScale = 10000.0
)

// Builder converts exposure zones into routable network
type Builder struct {
	snapTolerance float64
	name          string
}

func (builder *Builder) String() string {
	return fmt.Sprintf(`
Network builder parameters:
	name: '%s'
	snap_tolerance: %f
	`,
		builder.name,
		builder.snapTolerance,
	)
}

func NewBuilder(options ...func(*Builder)) *Builder {
	builder := &Builder{
		snapTolerance: DefaultSnapTolerance,
	}
	for _, option := range options {
		option(builder)
	}
	return builder
}

func WithSnapTolerance(snapTolerance float64) func(*Builder) {
	return func(builder *Builder) {
		if snapTolerance >= 0 {
			builder.snapTolerance = snapTolerance
		}
	}
}

// WithName sets name used in log messages only (e.g. dataset key)
func WithName(name string) func(*Builder) {
	return func(builder *Builder) {
		builder.name = name
	}
}

// linePiece is single simple line extracted from zone boundary
type linePiece struct {
	geom      orb.LineString
	sunCost   float64
	shadeCost float64
}

// connection is undirected pair of nodes with the cheapest costs of zones sharing it.
// Costs are taken per criterion, so sun and shade costs may come from different zones
type connection struct {
	source    int
	target    int
	sunCost   float64
	shadeCost float64
}

// BuildNetwork is shorthand for NewBuilder(options...).Build(zones)
func BuildNetwork(zones []ExposureZone, options ...func(*Builder)) (*Network, error) {
	return NewBuilder(options...).Build(zones)
}

// Build prepares network from zones given in planar CRS
func (builder *Builder) Build(zones []ExposureZone) (*Network, error) {
	logger := zap.L().With(zap.String("network", builder.name))
	st := time.Now()

	pieces, err := extractPieces(zones)
	if err != nil {
		return nil, errors.Wrap(err, "Can't extract boundaries")
	}
	logger.Debug("boundaries extracted", zap.Int("zones", len(zones)), zap.Int("pieces", len(pieces)), zap.Duration("took", time.Since(st)))

	net := newNetwork()
	if len(pieces) == 0 {
		net.index = newEdgeIndex(net)
		logger.Warn("network has no edges", zap.Int("zones", len(zones)))
		return net, nil
	}

	st = time.Now()
	connections, topo, err := builder.snapPieces(pieces)
	if err != nil {
		return nil, errors.Wrap(err, "Can't snap boundaries")
	}
	logger.Debug("topology prepared", zap.Int("vertices", len(topo.nodes)), zap.Int("connections", len(connections)), zap.Duration("took", time.Since(st)))

	st = time.Now()
	nodesMapping := make(map[int]NodeID, len(topo.nodes))
	nodeFor := func(vertex int) NodeID {
		if id, ok := nodesMapping[vertex]; ok {
			return id
		}
		id := net.addNode(topo.nodes[vertex].pt)
		nodesMapping[vertex] = id
		return id
	}
	for _, conn := range connections {
		net.addConnection(nodeFor(conn.source), nodeFor(conn.target), conn.sunCost, conn.shadeCost)
	}
	net.normalizeWeights()
	net.index = newEdgeIndex(net)
	logger.Info("network built",
		zap.Int("nodes", net.NodesNum()),
		zap.Int("edges", net.EdgesNum()),
		zap.Float64("max_length", net.maxLength),
		zap.Float64("max_sun_cost", net.maxSunCost),
		zap.Float64("max_shade_cost", net.maxShadeCost),
		zap.Duration("took", time.Since(st)),
	)
	return net, nil
}

// extractPieces takes outline of every zone (each ring separately). Zones with empty boundary are skipped
func extractPieces(zones []ExposureZone) ([]linePiece, error) {
	pieces := make([]linePiece, 0, len(zones))
	for i := range zones {
		zone := &zones[i]
		if err := zone.validate(); err != nil {
			return nil, err
		}
		rings, err := zone.rings()
		if err != nil {
			return nil, err
		}
		for _, ring := range rings {
			pieces = append(pieces, linePiece{
				geom:      ring,
				sunCost:   zone.SunCost,
				shadeCost: zone.ShadeCost,
			})
		}
	}
	return pieces, nil
}

// snapPieces merges coincident vertices, splits segments at vertices lying on them and
// collapses parallel segments into connections
func (builder *Builder) snapPieces(pieces []linePiece) ([]*connection, *topology, error) {
	bound := pieces[0].geom.Bound()
	for _, piece := range pieces[1:] {
		bound = bound.Union(piece.geom.Bound())
	}
	topo := newTopology(bound, builder.snapTolerance)

	sequences := make([][]int, len(pieces))
	for i, piece := range pieces {
		ids, err := topo.registerLine(piece.geom)
		if err != nil {
			return nil, nil, err
		}
		sequences[i] = ids
	}

	connections := make([]*connection, 0)
	seen := make(map[[2]int]*connection)
	for i, ids := range sequences {
		piece := pieces[i]
		for j := 1; j < len(ids); j++ {
			chain := topo.splitSegment(ids[j-1], ids[j])
			for k := 1; k < len(chain); k++ {
				a, b := chain[k-1], chain[k]
				if a == b {
					continue
				}
				key := [2]int{a, b}
				if a > b {
					key = [2]int{b, a}
				}
				if conn, ok := seen[key]; ok {
					// Border shared by several zones: keep the cheapest side per criterion
					conn.sunCost = min(conn.sunCost, piece.sunCost)
					conn.shadeCost = min(conn.shadeCost, piece.shadeCost)
					continue
				}
				conn := &connection{
					source:    a,
					target:    b,
					sunCost:   piece.sunCost,
					shadeCost: piece.shadeCost,
				}
				seen[key] = conn
				connections = append(connections, conn)
			}
		}
	}
	return connections, topo, nil
}

// normalizeWeights blends normalized length and normalized cost in equal parts.
// Zero maximums are replaced by 1
func (net *Network) normalizeWeights() {
	net.maxLength, net.maxSunCost, net.maxShadeCost = 0, 0, 0
	for _, edge := range net.edges {
		net.maxLength = max(net.maxLength, edge.LengthMeters)
		net.maxSunCost = max(net.maxSunCost, edge.SunCost)
		net.maxShadeCost = max(net.maxShadeCost, edge.ShadeCost)
	}
	if net.maxLength == 0 {
		net.maxLength = 1
	}
	if net.maxSunCost == 0 {
		net.maxSunCost = 1
	}
	if net.maxShadeCost == 0 {
		net.maxShadeCost = 1
	}
	for _, edge := range net.edges {
		edge.SunWeight = 0.5*(edge.LengthMeters/net.maxLength) + 0.5*(edge.SunCost/net.maxSunCost)
		edge.ShadeWeight = 0.5*(edge.LengthMeters/net.maxLength) + 0.5*(edge.ShadeCost/net.maxShadeCost)
	}
}
