// Package mask builds and manipulates boolean sea/land masks aligned to an
// image pixel grid.
package mask

import (
	"image"
	"image/color"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Mask is a boolean grid; true marks a sea pixel, false land or excluded.
// Pixel (x, y) is relative to the grid origin, not to any image bounds.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// New creates a mask with every pixel excluded
func New(width, height int) Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return Mask{Width: width, Height: height, bits: make([]bool, width*height)}
}

// Full creates a mask with every pixel selected
func Full(width, height int) Mask {
	m := New(width, height)
	for i := range m.bits {
		m.bits[i] = true
	}
	return m
}

// Size returns the grid dimensions
func (m Mask) Size() image.Point {
	return image.Pt(m.Width, m.Height)
}

// CheckImage reports a *types.DimensionError when img does not match the grid
func (m Mask) CheckImage(img image.Image) error {
	if img == nil {
		return &types.DimensionError{Want: m.Size()}
	}
	got := img.Bounds().Size()
	if got != m.Size() {
		return &types.DimensionError{Want: m.Size(), Got: got}
	}
	return nil
}

// Len returns the number of pixels in the grid
func (m Mask) Len() int {
	return len(m.bits)
}

// At reports whether pixel (x, y) is selected; out-of-range pixels are not
func (m Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set marks pixel (x, y)
func (m Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = v
}

// Count returns the number of selected pixels
func (m Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns an independent copy
func (m Mask) Clone() Mask {
	c := Mask{Width: m.Width, Height: m.Height, bits: make([]bool, len(m.bits))}
	copy(c.bits, m.bits)
	return c
}

// AndNot returns a new mask selecting pixels in m but not in other.
// Both masks must have the same size.
func (m Mask) AndNot(other Mask) Mask {
	c := m.Clone()
	for i := range c.bits {
		if i < len(other.bits) && other.bits[i] {
			c.bits[i] = false
		}
	}
	return c
}

// Equal reports whether both masks have the same size and bits
func (m Mask) Equal(other Mask) bool {
	if m.Width != other.Width || m.Height != other.Height || len(m.bits) != len(other.bits) {
		return false
	}
	for i := range m.bits {
		if m.bits[i] != other.bits[i] {
			return false
		}
	}
	return true
}

// Gray renders the mask as white (selected) on black
func (m Mask) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.bits {
		if b {
			img.Pix[i] = 255
		}
	}
	return img
}

// Apply returns a copy of img with unselected pixels blacked out.
// img must have the mask's dimensions.
func (m Mask) Apply(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if !m.At(x, y) {
				out.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
				continue
			}
			out.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}
