package mask

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

// ValidatePolygons checks every ring of every polygon and returns the first
// problem as a *types.GeometryError
func ValidatePolygons(polygons orb.MultiPolygon) error {
	for pi, poly := range polygons {
		if len(poly) == 0 {
			return &types.GeometryError{Polygon: pi, Ring: 0, Reason: "polygon has no rings"}
		}
		for ri, ring := range poly {
			if reason := ringProblem(ring); reason != "" {
				return &types.GeometryError{Polygon: pi, Ring: ri, Reason: reason}
			}
		}
	}
	return nil
}

func ringProblem(ring orb.Ring) string {
	if len(ring) < 4 {
		return fmt.Sprintf("ring has %d points, need at least 4", len(ring))
	}
	for _, p := range ring {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			return "ring has non-finite coordinate"
		}
	}
	if !ring.Closed() {
		return "ring is not closed"
	}

	pts := dedupe(ring)
	if len(pts) < 4 {
		return "ring collapses to fewer than 3 distinct points"
	}
	if planar.Area(orb.Ring(pts)) == 0 {
		return "ring has zero area"
	}
	if i, j, ok := selfIntersection(pts); ok {
		return fmt.Sprintf("ring self-intersects between segments %d and %d", i, j)
	}
	return ""
}

// dedupe drops consecutive duplicate vertices, keeping the ring closed
func dedupe(ring orb.Ring) []orb.Point {
	out := make([]orb.Point, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	return out
}

type segment struct {
	a, b       orb.Point
	index      int
	minX, maxX float64
}

// selfIntersection sweeps the ring's segments along x and reports the first
// pair of non-adjacent segments that touch, or adjacent segments that fold
// back over each other.
func selfIntersection(pts []orb.Point) (int, int, bool) {
	n := len(pts) - 1
	segs := make([]segment, n)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[i+1]
		segs[i] = segment{a: a, b: b, index: i, minX: math.Min(a[0], b[0]), maxX: math.Max(a[0], b[0])}
	}

	sorted := make([]segment, n)
	copy(sorted, segs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].minX < sorted[j].minX })

	for i := 0; i < n; i++ {
		s := sorted[i]
		for j := i + 1; j < n; j++ {
			t := sorted[j]
			if t.minX > s.maxX {
				break
			}
			lo, hi := s.index, t.index
			if lo > hi {
				lo, hi = hi, lo
			}
			adjacent := hi-lo == 1 || (lo == 0 && hi == n-1)
			if adjacent {
				if foldsBack(s, t) {
					return lo, hi, true
				}
				continue
			}
			if segmentsTouch(s.a, s.b, t.a, t.b) {
				return lo, hi, true
			}
		}
	}
	return 0, 0, false
}

// foldsBack reports whether two adjacent segments are collinear and overlap
func foldsBack(s, t segment) bool {
	if orientation(s.a, s.b, t.a) != 0 || orientation(s.a, s.b, t.b) != 0 {
		return false
	}
	// shared vertex plus opposite directions means the ring doubles back
	var shared, sOther, tOther orb.Point
	switch {
	case s.b == t.a:
		shared, sOther, tOther = s.b, s.a, t.b
	case s.a == t.b:
		shared, sOther, tOther = s.a, s.b, t.a
	default:
		return false
	}
	d1 := orb.Point{sOther[0] - shared[0], sOther[1] - shared[1]}
	d2 := orb.Point{tOther[0] - shared[0], tOther[1] - shared[1]}
	return d1[0]*d2[0]+d1[1]*d2[1] > 0
}

func orientation(a, b, c orb.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

func segmentsTouch(p1, p2, q1, q2 orb.Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	if o3 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	return o4 == 0 && onSegment(q1, q2, p2)
}
