package mask

import (
	"image"
	"math"
	"sort"

	"github.com/paulmach/orb"

	"github.com/menta2k/aqua-chroma/pkg/geo"
	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Masker rasterizes land polygons into sea masks
type Masker struct{}

// NewMasker creates a new Masker
func NewMasker() *Masker {
	return &Masker{}
}

// BuildMask rasterizes land onto a width x height grid described by t.
// A pixel is land when its center falls inside a polygon under the even-odd
// rule, so interior rings punch water back out of the land.
func (m *Masker) BuildMask(area types.TargetArea, land geo.Land, t geo.Transform, width, height int) (Mask, error) {
	if width <= 0 || height <= 0 {
		return Mask{}, &types.DimensionError{Want: image.Pt(width, height), Got: image.Pt(0, 0)}
	}
	if err := area.Validate(); err != nil {
		return Mask{}, err
	}
	if err := ValidatePolygons(land.Polygons); err != nil {
		return Mask{}, err
	}

	out := Full(width, height)
	extent := gridExtent(area, t, width, height)
	if len(land.Polygons) == 0 || !land.Bound().Intersects(extent) {
		return out, nil
	}
	for _, poly := range land.Polygons {
		if !poly.Bound().Intersects(extent) {
			continue
		}
		rings := projectPolygon(poly, t)
		fillPolygon(out, rings)
	}

	if out.Width != width || out.Height != height || out.Len() != width*height {
		return Mask{}, &types.DimensionError{Want: image.Pt(width, height), Got: out.Size()}
	}
	return out, nil
}

// gridExtent is the lon/lat box covering the grid corners and the target
// area. Transforms are affine or separable and monotonic, so every pixel
// center lies inside it.
func gridExtent(area types.TargetArea, t geo.Transform, width, height int) orb.Bound {
	corners := orb.MultiPoint{
		{area.MinLon, area.MinLat},
		{area.MaxLon, area.MaxLat},
	}
	for _, c := range [][2]float64{{0, 0}, {float64(width), 0}, {0, float64(height)}, {float64(width), float64(height)}} {
		lon, lat := t.PixelToGeo(c[0], c[1])
		corners = append(corners, orb.Point{lon, lat})
	}
	return corners.Bound()
}

type pixelRing []orb.Point

func projectPolygon(poly orb.Polygon, t geo.Transform) []pixelRing {
	rings := make([]pixelRing, 0, len(poly))
	for _, ring := range poly {
		pr := make(pixelRing, len(ring))
		for i, p := range ring {
			x, y := t.GeoToPixel(p[0], p[1])
			pr[i] = orb.Point{x, y}
		}
		rings = append(rings, pr)
	}
	return rings
}

// fillPolygon clears every pixel whose center lies inside the polygon
func fillPolygon(m Mask, rings []pixelRing) {
	if len(rings) == 0 {
		return
	}

	// Bounding box pre-filter; holes always lie within the outer ring
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range rings[0] {
		minX, maxX = math.Min(minX, p[0]), math.Max(maxX, p[0])
		minY, maxY = math.Min(minY, p[1]), math.Max(maxY, p[1])
	}
	if maxX <= 0 || maxY <= 0 || minX >= float64(m.Width) || minY >= float64(m.Height) {
		return
	}

	rowStart := clampInt(int(math.Floor(minY-0.5)), 0, m.Height-1)
	rowEnd := clampInt(int(math.Ceil(maxY)), 0, m.Height-1)

	xs := make([]float64, 0, 16)
	for y := rowStart; y <= rowEnd; y++ {
		yc := float64(y) + 0.5
		xs = rowCrossings(xs[:0], rings, yc)
		if len(xs) < 2 {
			continue
		}
		sort.Float64s(xs)

		for k := 0; k+1 < len(xs); k += 2 {
			// pixel centers in [xs[k], xs[k+1])
			from := int(math.Ceil(xs[k] - 0.5))
			to := int(math.Ceil(xs[k+1]-0.5)) - 1
			from = clampInt(from, 0, m.Width)
			to = clampInt(to, -1, m.Width-1)
			for x := from; x <= to; x++ {
				m.bits[y*m.Width+x] = false
			}
		}
	}
}

// rowCrossings appends the x coordinate where each edge crosses the
// horizontal line at yc. An edge counts when exactly one endpoint has y <= yc.
func rowCrossings(xs []float64, rings []pixelRing, yc float64) []float64 {
	for _, ring := range rings {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] <= yc) == (b[1] <= yc) {
				continue
			}
			xs = append(xs, crossingX(a, b, yc))
		}
	}
	return xs
}

func crossingX(a, b orb.Point, yc float64) float64 {
	return a[0] + (yc-a[1])*(b[0]-a[0])/(b[1]-a[1])
}

// containsCenter is the per-pixel even-odd test that the scanline fill
// reproduces exactly
func containsCenter(rings []pixelRing, xc, yc float64) bool {
	inside := false
	for _, ring := range rings {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] <= yc) == (b[1] <= yc) {
				continue
			}
			if crossingX(a, b, yc) <= xc {
				inside = !inside
			}
		}
	}
	return inside
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
