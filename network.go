package shaderoute

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// Network is directed weighted graph built from exposure zones. Coordinates are in planar CRS.
// Network is immutable after build and could be shared between concurrent route queries
type Network struct {
	nodes          []orb.Point
	edges          []*Edge
	outcomingEdges [][]EdgeID
	index          *edgeIndex

	maxLength    float64
	maxSunCost   float64
	maxShadeCost float64
}

func newNetwork() *Network {
	return &Network{
		nodes:          make([]orb.Point, 0),
		edges:          make([]*Edge, 0),
		outcomingEdges: make([][]EdgeID, 0),
	}
}

// NodesNum returns number of nodes
func (net *Network) NodesNum() int {
	return len(net.nodes)
}

// EdgesNum returns number of directed edges
func (net *Network) EdgesNum() int {
	return len(net.edges)
}

// Node returns coordinates of the node
func (net *Network) Node(id NodeID) (orb.Point, bool) {
	if id < 0 || int(id) >= len(net.nodes) {
		return orb.Point{}, false
	}
	return net.nodes[id], true
}

// Edge returns edge by its ID
func (net *Network) Edge(id EdgeID) (*Edge, bool) {
	if id < 0 || int(id) >= len(net.edges) {
		return nil, false
	}
	return net.edges[id], true
}

// Edges returns all directed edges. Returned slice must not be modified
func (net *Network) Edges() []*Edge {
	return net.edges
}

// OutcomingEdges returns IDs of edges starting in given node
func (net *Network) OutcomingEdges(id NodeID) []EdgeID {
	if id < 0 || int(id) >= len(net.outcomingEdges) {
		return nil
	}
	return net.outcomingEdges[id]
}

// Bound returns bounding box of all nodes
func (net *Network) Bound() orb.Bound {
	return orb.MultiPoint(net.nodes).Bound()
}

// addNode registers new node and returns its ID
func (net *Network) addNode(pt orb.Point) NodeID {
	id := NodeID(len(net.nodes))
	net.nodes = append(net.nodes, pt)
	net.outcomingEdges = append(net.outcomingEdges, make([]EdgeID, 0, 2))
	return id
}

// addConnection adds pair of twin edges (source -> target and target -> source)
func (net *Network) addConnection(source, target NodeID, sunCost, shadeCost float64) (*Edge, *Edge) {
	geom := orb.LineString{net.nodes[source], net.nodes[target]}
	length := findDistance(net.nodes[source], net.nodes[target])
	forward := &Edge{
		ID:           EdgeID(len(net.edges)),
		Source:       source,
		Target:       target,
		LengthMeters: length,
		SunCost:      sunCost,
		ShadeCost:    shadeCost,
		Geom:         geom,
	}
	net.edges = append(net.edges, forward)
	backward := &Edge{
		ID:           EdgeID(len(net.edges)),
		Source:       target,
		Target:       source,
		LengthMeters: length,
		SunCost:      sunCost,
		ShadeCost:    shadeCost,
		Geom:         reverseLine(geom),
	}
	net.edges = append(net.edges, backward)
	net.outcomingEdges[source] = append(net.outcomingEdges[source], forward.ID)
	net.outcomingEdges[target] = append(net.outcomingEdges[target], backward.ID)
	return forward, backward
}

// ExportToCSV writes nodes and edges into two 'Comma-Separated Values' files.
// E.g.: if file name is 'net.csv' then 'net_nodes.csv' and 'net_edges.csv' will be produced.
// Geometries are converted to geographic coordinates with given projection
func (net *Network) ExportToCSV(fname string, projection Projection) error {
	fnameParts := strings.Split(fname, ".csv")
	fnameNodes := fnameParts[0] + "_nodes.csv"
	fnameEdges := fnameParts[0] + "_edges.csv"

	err := net.exportNodesToCSV(fnameNodes, projection)
	if err != nil {
		return errors.Wrap(err, "Can't export nodes")
	}

	err = net.exportEdgesToCSV(fnameEdges, projection)
	if err != nil {
		return errors.Wrap(err, "Can't export edges")
	}
	return nil
}

func (net *Network) exportNodesToCSV(fname string, projection Projection) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "x", "y", "longitude", "latitude"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for id, pt := range net.nodes {
		geo := projection.Inverse(pt)
		err = writer.Write([]string{
			fmt.Sprintf("%d", id),
			fmt.Sprintf("%f", pt[0]),
			fmt.Sprintf("%f", pt[1]),
			fmt.Sprintf("%f", geo.Lon()),
			fmt.Sprintf("%f", geo.Lat()),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write node")
		}
	}
	return nil
}

func (net *Network) exportEdgesToCSV(fname string, projection Projection) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"id", "source_node", "target_node", "length_meters", "sun_cost", "shade_cost", "sun_weight", "shade_weight", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for _, edge := range net.edges {
		err = writer.Write([]string{
			fmt.Sprintf("%d", edge.ID),
			fmt.Sprintf("%d", edge.Source),
			fmt.Sprintf("%d", edge.Target),
			fmt.Sprintf("%f", edge.LengthMeters),
			fmt.Sprintf("%f", edge.SunCost),
			fmt.Sprintf("%f", edge.ShadeCost),
			fmt.Sprintf("%f", edge.SunWeight),
			fmt.Sprintf("%f", edge.ShadeWeight),
			wkt.MarshalString(ProjectLine(edge.Geom, projection.Inverse)),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write edge")
		}
	}
	return nil
}
