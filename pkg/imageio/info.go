package imageio

import (
	"fmt"
	"image"
)

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
	Area        int     `json:"area"`
}

// GetImageInfo returns basic information about an image
func GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	info := ImageInfo{Width: width, Height: height, Area: width * height}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

// ValidateImage checks that an image is present and at least minSize pixels on each side
func ValidateImage(img image.Image, minSize int) error {
	if img == nil {
		return fmt.Errorf("image is nil")
	}
	if minSize < 1 {
		minSize = 1
	}
	bounds := img.Bounds()
	if bounds.Dx() < minSize || bounds.Dy() < minSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)", bounds.Dx(), bounds.Dy(), minSize)
	}
	return nil
}

// ValidateImage applies the loader's minimum size
func (l *Loader) ValidateImage(img image.Image) error {
	return ValidateImage(img, l.config.MinImageSize)
}
