package geo

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/menta2k/aqua-chroma/pkg/types"
)

// Land is a parsed set of land polygons in lon/lat coordinates.
// Interior rings of a polygon are water bodies excluded from the land.
type Land struct {
	ID       string
	Polygons orb.MultiPolygon
}

// Bound returns the lon/lat bounding box of all polygons
func (l Land) Bound() orb.Bound {
	return l.Polygons.Bound()
}

// LoadLandFile reads a GeoJSON document from disk
func LoadLandFile(path string) (Land, error) {
	f, err := os.Open(path)
	if err != nil {
		return Land{}, fmt.Errorf("failed to open land geometry: %w", err)
	}
	defer f.Close()

	return LoadLand(f)
}

// LoadLand parses a GeoJSON FeatureCollection, Feature or bare geometry.
// Polygon and MultiPolygon geometries are kept; anything else is ignored.
func LoadLand(r io.Reader) (Land, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Land{}, fmt.Errorf("failed to read land geometry: %w", err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Land{}, &types.GeometryError{Polygon: -1, Reason: fmt.Sprintf("malformed GeoJSON: %v", err)}
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return Land{}, &types.GeometryError{Polygon: -1, Reason: fmt.Sprintf("malformed feature collection: %v", err)}
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return Land{}, &types.GeometryError{Polygon: -1, Reason: fmt.Sprintf("malformed feature: %v", err)}
		}
		geoms = append(geoms, f.Geometry)
	case "":
		return Land{}, &types.GeometryError{Polygon: -1, Reason: "missing GeoJSON type"}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return Land{}, &types.GeometryError{Polygon: -1, Reason: fmt.Sprintf("malformed geometry: %v", err)}
		}
		geoms = append(geoms, g.Geometry())
	}

	sum := sha256.Sum256(data)
	land := Land{ID: hex.EncodeToString(sum[:])}
	for _, g := range geoms {
		switch v := g.(type) {
		case orb.Polygon:
			land.Polygons = append(land.Polygons, v)
		case orb.MultiPolygon:
			land.Polygons = append(land.Polygons, v...)
		}
	}
	return land, nil
}

// NewLand wraps in-memory polygons; id must uniquely identify their content
func NewLand(id string, polygons ...orb.Polygon) Land {
	return Land{ID: id, Polygons: orb.MultiPolygon(polygons)}
}
