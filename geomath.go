package shaderoute

import (
	"math"

	"github.com/paulmach/orb"
)

// findDistance returns distance between two points of planar CRS
func findDistance(p, q orb.Point) float64 {
	xdistance := p[0] - q[0]
	ydistance := p[1] - q[1]
	return math.Sqrt(xdistance*xdistance + ydistance*ydistance)
}

// projectOnSegment returns orthogonal projection of the point onto segment [a; b] clipped to the segment
// and fraction of the segment where the projection lies (0 - at a, 1 - at b)
func projectOnSegment(pt, a, b orb.Point) (orb.Point, float64) {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	sqLength := dx*dx + dy*dy
	if sqLength == 0 {
		return a, 0
	}
	fraction := ((pt[0]-a[0])*dx + (pt[1]-a[1])*dy) / sqLength
	if fraction <= 0 {
		return a, 0
	}
	if fraction >= 1 {
		return b, 1
	}
	return pointOnSegmentByFraction(a, b, fraction), fraction
}

// distanceToSegment returns distance between the point and segment [a; b]
func distanceToSegment(pt, a, b orb.Point) float64 {
	proj, _ := projectOnSegment(pt, a, b)
	return findDistance(pt, proj)
}

// pointOnSegmentByFraction returns a point on given segment using fraction of its length
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p[0] + (fraction * q[0]),
		(1-fraction)*p[1] + (fraction * q[1]),
	}
}

// boxDistance returns squared distance between the point and rectangle. Zero if point is inside
func boxDistance(pt orb.Point, min, max [2]float64) float64 {
	dx := 0.0
	if pt[0] < min[0] {
		dx = min[0] - pt[0]
	} else if pt[0] > max[0] {
		dx = pt[0] - max[0]
	}
	dy := 0.0
	if pt[1] < min[1] {
		dy = min[1] - pt[1]
	} else if pt[1] > max[1] {
		dy = pt[1] - max[1]
	}
	return dx*dx + dy*dy
}

// mergeSegments glues consecutive segments into one line.
// Repeated consecutive points (shared ends, zero-length connectors) are written once
func mergeSegments(segments []orb.LineString) orb.LineString {
	merged := orb.LineString{}
	for _, segment := range segments {
		for _, pt := range segment {
			if len(merged) > 0 && merged[len(merged)-1].Equal(pt) {
				continue
			}
			merged = append(merged, pt)
		}
	}
	if len(merged) == 1 {
		merged = append(merged, merged[0])
	}
	return merged
}

// getLength returns length for given line in planar CRS
func getLength(line orb.LineString) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += findDistance(line[i-1], line[i])
	}
	return totalLength
}

// reverseLine reverses order of points in given line. Returns new slice
func reverseLine(pts orb.LineString) orb.LineString {
	inputLen := len(pts)
	output := make(orb.LineString, inputLen)
	for i, n := range pts {
		j := inputLen - i - 1
		output[j] = n
	}
	return output
}
