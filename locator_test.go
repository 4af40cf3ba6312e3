package shaderoute

import (
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestEdgeProjection(t *testing.T) {
	net, err := BuildNetwork([]ExposureZone{zone(1, square(0, 0, 10), 1, 1)})
	require.NoError(t, err)

	snap, ok := net.NearestEdge(orb.Point{4, -3})
	require.True(t, ok)
	assert.InDelta(t, 4.0, snap.Point.X(), 1e-9)
	assert.InDelta(t, 0.0, snap.Point.Y(), 1e-9)
	assert.InDelta(t, 3.0, snap.Distance, 1e-9)
	assert.Equal(t, EdgeID(0), snap.Edge%2)
	edge, _ := net.Edge(snap.Edge)
	assert.Equal(t, edge.Source, snap.Source)
	assert.Equal(t, edge.Target, snap.Target)
	from, _ := net.Node(snap.Source)
	assert.InDelta(t, findDistance(from, snap.Point)/edge.LengthMeters, snap.Fraction, 1e-12)

	// Point inside the zone goes to the closest side
	snap, ok = net.NearestEdge(orb.Point{9, 5})
	require.True(t, ok)
	assert.Equal(t, orb.Point{10, 5}, snap.Point)
	assert.InDelta(t, 1.0, snap.Distance, 1e-12)

	// Point on the network snaps to itself
	snap, ok = net.NearestEdge(orb.Point{0, 7})
	require.True(t, ok)
	assert.InDelta(t, 0.0, snap.Point.X(), 1e-9)
	assert.InDelta(t, 7.0, snap.Point.Y(), 1e-9)
	assert.InDelta(t, 0.0, snap.Distance, 1e-9)
}

func TestNearestEdgeTieBreak(t *testing.T) {
	net, err := BuildNetwork([]ExposureZone{zone(1, square(0, 0, 10), 1, 1)})
	require.NoError(t, err)
	// Equidistant from all four sides
	snap, ok := net.NearestEdge(orb.Point{5, 5})
	require.True(t, ok)
	assert.Equal(t, EdgeID(0), snap.Edge)
}

func TestNearestEdgeMatchesLinearScan(t *testing.T) {
	zones := make([]ExposureZone, 0)
	id := int64(0)
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			id++
			zones = append(zones, zone(id, square(float64(i)*25, float64(j)*25, 20), float64(id), 1))
		}
	}
	net, err := BuildNetwork(zones)
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		pt := orb.Point{rnd.Float64()*260 - 30, rnd.Float64()*260 - 30}
		indexed, ok := net.NearestEdge(pt)
		require.True(t, ok)
		linear, ok := net.nearestEdgeLinear(pt)
		require.True(t, ok)
		assert.InDelta(t, linear.Distance, indexed.Distance, 1e-9, "point %v", pt)
		if linear.Distance != indexed.Distance {
			continue
		}
		assert.Equal(t, linear.Edge, indexed.Edge, "point %v", pt)
	}
}
