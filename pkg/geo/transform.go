// Package geo maps between image pixel grids and geographic coordinates and
// loads the land polygons used to build sea masks.
package geo

import (
	"fmt"
	"image"
	"math"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Transform maps continuous pixel coordinates to lon/lat and back.
// Pixel (col, row) covers [col, col+1) x [row, row+1); its center is at
// (col+0.5, row+0.5).
type Transform interface {
	PixelToGeo(x, y float64) (lon, lat float64)
	GeoToPixel(lon, lat float64) (x, y float64)
	Key() string
}

// Affine is a GDAL style geotransform:
//
//	lon = A[0] + x*A[1] + y*A[2]
//	lat = A[3] + x*A[4] + y*A[5]
type Affine struct {
	A   [6]float64
	inv [6]float64
}

// NewAffine builds an affine transform from the six GDAL coefficients
func NewAffine(coeffs [6]float64) (*Affine, error) {
	det := coeffs[1]*coeffs[5] - coeffs[2]*coeffs[4]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return nil, fmt.Errorf("geotransform is not invertible")
	}
	a := &Affine{A: coeffs}
	a.inv = [6]float64{
		coeffs[5] / det,
		-coeffs[2] / det,
		-coeffs[4] / det,
		coeffs[1] / det,
	}
	return a, nil
}

// AffineForArea builds a north-up transform that stretches area over a w x h grid
func AffineForArea(area types.TargetArea, w, h int) (*Affine, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", w, h)
	}
	if err := area.Validate(); err != nil {
		return nil, err
	}
	return NewAffine([6]float64{
		area.MinLon, (area.MaxLon - area.MinLon) / float64(w), 0,
		area.MaxLat, 0, -(area.MaxLat - area.MinLat) / float64(h),
	})
}

func (a *Affine) PixelToGeo(x, y float64) (float64, float64) {
	return a.A[0] + x*a.A[1] + y*a.A[2], a.A[3] + x*a.A[4] + y*a.A[5]
}

func (a *Affine) GeoToPixel(lon, lat float64) (float64, float64) {
	dl, dp := lon-a.A[0], lat-a.A[3]
	return a.inv[0]*dl + a.inv[1]*dp, a.inv[2]*dl + a.inv[3]*dp
}

func (a *Affine) Key() string {
	return fmt.Sprintf("affine:%g,%g,%g,%g,%g,%g", a.A[0], a.A[1], a.A[2], a.A[3], a.A[4], a.A[5])
}

// maxMercatorLat is the latitude limit of the Web Mercator projection
const maxMercatorLat = 85.05112878

// Mercator maps an area onto a grid with linear longitude and Web Mercator
// latitude, which is how slippy-map satellite tiles are laid out.
type Mercator struct {
	Area   types.TargetArea
	Width  int
	Height int

	north, south float64
}

// NewMercator builds a Mercator transform for a w x h image covering area
func NewMercator(area types.TargetArea, w, h int) (*Mercator, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("grid size must be positive, got %dx%d", w, h)
	}
	if err := area.Validate(); err != nil {
		return nil, err
	}
	if area.MaxLat > maxMercatorLat || area.MinLat < -maxMercatorLat {
		return nil, fmt.Errorf("target area exceeds Mercator latitude limit of %g", maxMercatorLat)
	}
	return &Mercator{
		Area:   area,
		Width:  w,
		Height: h,
		north:  mercatorY(area.MaxLat),
		south:  mercatorY(area.MinLat),
	}, nil
}

func mercatorY(lat float64) float64 {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	rad := lat * math.Pi / 180
	return math.Log(math.Tan(math.Pi/4 + rad/2))
}

func (m *Mercator) PixelToGeo(x, y float64) (float64, float64) {
	lon := m.Area.MinLon + x/float64(m.Width)*(m.Area.MaxLon-m.Area.MinLon)
	my := m.north - y/float64(m.Height)*(m.north-m.south)
	lat := math.Atan(math.Sinh(my)) * 180 / math.Pi
	return lon, lat
}

func (m *Mercator) GeoToPixel(lon, lat float64) (float64, float64) {
	x := (lon - m.Area.MinLon) / (m.Area.MaxLon - m.Area.MinLon) * float64(m.Width)
	y := (m.north - mercatorY(lat)) / (m.north - m.south) * float64(m.Height)
	return x, y
}

func (m *Mercator) Key() string {
	return fmt.Sprintf("mercator:%s:%dx%d", m.Area.Key(), m.Width, m.Height)
}

// derived addresses a cropped and/or resized view of a base grid.
// A derived pixel (x, y) sits at base pixel (offX + x/scaleX, offY + y/scaleY).
type derived struct {
	base           Transform
	offX, offY     float64
	scaleX, scaleY float64
}

func (d *derived) PixelToGeo(x, y float64) (float64, float64) {
	return d.base.PixelToGeo(d.offX+x/d.scaleX, d.offY+y/d.scaleY)
}

func (d *derived) GeoToPixel(lon, lat float64) (float64, float64) {
	bx, by := d.base.GeoToPixel(lon, lat)
	return (bx - d.offX) * d.scaleX, (by - d.offY) * d.scaleY
}

func (d *derived) Key() string {
	return fmt.Sprintf("%s|off=%g,%g|scale=%g,%g", d.base.Key(), d.offX, d.offY, d.scaleX, d.scaleY)
}

func asDerived(t Transform) *derived {
	if d, ok := t.(*derived); ok {
		c := *d
		return &c
	}
	return &derived{base: t, scaleX: 1, scaleY: 1}
}

// Shift returns the transform of a grid whose origin is at (dx, dy) in t
func Shift(t Transform, dx, dy float64) Transform {
	d := asDerived(t)
	d.offX += dx / d.scaleX
	d.offY += dy / d.scaleY
	return d
}

// Scale returns the transform of t's grid resized by (sx, sy)
func Scale(t Transform, sx, sy float64) Transform {
	d := asDerived(t)
	d.scaleX *= sx
	d.scaleY *= sy
	return d
}

// Window returns the pixel rectangle covering area, clipped to bounds
func Window(t Transform, area types.TargetArea, bounds image.Rectangle) (image.Rectangle, error) {
	corners := [][2]float64{
		{area.MinLon, area.MaxLat},
		{area.MaxLon, area.MaxLat},
		{area.MinLon, area.MinLat},
		{area.MaxLon, area.MinLat},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := t.GeoToPixel(c[0], c[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}

	rect := image.Rect(
		int(math.Round(minX)), int(math.Round(minY)),
		int(math.Round(maxX)), int(math.Round(maxY)),
	).Intersect(bounds)
	if rect.Empty() {
		return image.Rectangle{}, fmt.Errorf("target area does not overlap the image")
	}
	return rect, nil
}
