package types

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidGeometry is returned when the land polygons cannot be parsed or are degenerate.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrDimensionMismatch is returned when a mask does not match the image grid.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEmptySeaRegion is returned when a mask selects no sea pixels.
	ErrEmptySeaRegion = errors.New("empty sea region")
)

// GeometryError describes a malformed ring in the land source
type GeometryError struct {
	Polygon int
	Ring    int
	Reason  string
}

func (e *GeometryError) Error() string {
	if e.Polygon < 0 {
		return fmt.Sprintf("%v: %s", ErrInvalidGeometry, e.Reason)
	}
	return fmt.Sprintf("%v: polygon %d ring %d: %s", ErrInvalidGeometry, e.Polygon, e.Ring, e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

// DimensionError reports a grid size disagreement
type DimensionError struct {
	Want image.Point
	Got  image.Point
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%v: want %dx%d, got %dx%d", ErrDimensionMismatch, e.Want.X, e.Want.Y, e.Got.X, e.Got.Y)
}

func (e *DimensionError) Unwrap() error { return ErrDimensionMismatch }
