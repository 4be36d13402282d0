// Package pixel holds the color conversions shared by the analysis stages.
package pixel

import (
	"image"
	"image/color"
	"math"
)

// RGB8 returns the non-premultiplied 8-bit color channels of the pixel at
// grid position (x, y), relative to the image bounds origin. Alpha is
// dropped, so a translucent pixel reads the same from every image type.
func RGB8(img image.Image, x, y int) (uint8, uint8, uint8) {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.NRGBA:
		i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
		return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
	case *image.RGBA:
		i := src.PixOffset(b.Min.X+x, b.Min.Y+y)
		if src.Pix[i+3] == 0xff {
			return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
		}
	}
	c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
	return c.R, c.G, c.B
}

// Luma returns Rec.601 luminance in [0, 255]
func Luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// HSV converts to hue in degrees [0, 360), saturation and value in [0, 1]
func HSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	max := math.Max(rf, math.Max(gf, bf))
	min := math.Min(rf, math.Min(gf, bf))
	delta := max - min

	v = max
	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		return 0, s, v
	}

	switch max {
	case rf:
		h = 60 * math.Mod((gf-bf)/delta, 6)
	case gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
