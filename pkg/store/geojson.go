package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadGeoJSON reads a locale collection from a GeoJSON FeatureCollection
func LoadGeoJSON(path string) ([]*models.Locale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson %s: %w", path, err)
	}
	return DecodeGeoJSON(data)
}

// DecodeGeoJSON turns each feature into a locale. Locale fields come from the
// feature properties; the geometry becomes the bounds. Features without a
// slug fall back to the feature id. Non-polygon geometries leave the locale
// without bounds, as do empty polygons; a MultiPolygon contributes its first
// polygon.
func DecodeGeoJSON(data []byte) ([]*models.Locale, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson: %w", err)
	}

	locales := make([]*models.Locale, 0, len(fc.Features))
	for i, f := range fc.Features {
		l, err := featureToLocale(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		locales = append(locales, l)
	}
	return locales, nil
}

func featureToLocale(f *geojson.Feature) (*models.Locale, error) {
	props, err := json.Marshal(f.Properties)
	if err != nil {
		return nil, fmt.Errorf("failed to encode properties: %w", err)
	}

	var l models.Locale
	if err := json.Unmarshal(props, &l); err != nil {
		return nil, fmt.Errorf("failed to decode properties: %w", err)
	}

	if l.Slug == "" {
		if id, ok := f.ID.(string); ok {
			l.Slug = id
		}
	}

	switch g := f.Geometry.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			l.Bounds = &models.Bounds{Type: g.GeoJSONType(), Coordinates: g}
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 {
			l.Bounds = &models.Bounds{Type: orb.Polygon{}.GeoJSONType(), Coordinates: g[0]}
		}
	}

	return &l, nil
}

// EncodeGeoJSON writes locales back out as a FeatureCollection
func EncodeGeoJSON(locales []*models.Locale) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, l := range locales {
		if l == nil {
			continue
		}

		var g orb.Geometry = orb.Polygon{}
		if rings := l.Rings(); rings != nil {
			g = rings
		}
		f := geojson.NewFeature(g)
		f.ID = l.Slug
		f.Properties["slug"] = l.Slug
		f.Properties["published"] = l.Published
		if l.Name != "" {
			f.Properties["name"] = l.Name
		}
		if l.Parent != "" {
			f.Properties["parent"] = l.Parent
		}
		if l.Children != nil {
			f.Properties["children"] = l.Children
		}
		if len(l.FeaturedNeighborhoods) > 0 {
			f.Properties["featured_neighborhoods"] = l.FeaturedNeighborhoods
		}
		fc.Append(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}
