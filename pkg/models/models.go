package models

import "github.com/paulmach/orb"

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location
	TopRight   Location
}

// Contains reports whether the location lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Bounds is a GeoJSON-like polygon. Coordinates[0] is the external ring,
// any further rings are holes. Points are [longitude, latitude].
type Bounds struct {
	Type        string      `json:"type,omitempty"`
	Coordinates orb.Polygon `json:"coordinates"`
}

// Neighborhood is a featured sub-area of a locale identified by its search path
type Neighborhood struct {
	Name       string `json:"name,omitempty"`
	SearchPath string `json:"search_path"`
}

// Locale is a node in the locale taxonomy. Parent and Children hold slugs of
// other locales in the same collection.
type Locale struct {
	Slug                  string         `json:"slug"`
	Name                  string         `json:"name,omitempty"`
	Parent                string         `json:"parent,omitempty"`
	Children              []string       `json:"children,omitempty"`
	Published             bool           `json:"published"`
	Bounds                *Bounds        `json:"bounds,omitempty"`
	FeaturedNeighborhoods []Neighborhood `json:"featured_neighborhoods,omitempty"`
}

// HasChildren reports whether the locale declares a children list. An empty
// but present list still counts.
func (l *Locale) HasChildren() bool {
	return l.Children != nil
}

// Rings returns the polygon rings of the locale bounds, or nil
func (l *Locale) Rings() orb.Polygon {
	if l.Bounds == nil {
		return nil
	}
	return l.Bounds.Coordinates
}

// Subject is a listing or search result being resolved to a locale.
// A nil Lat or Lng means the coordinate is missing.
type Subject struct {
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	CityStateSlug string   `json:"cityStateSlug,omitempty"`
	DoorstepsURL  string   `json:"doorstepsUrl,omitempty"`
}

// NewSubject builds a subject with both coordinates present
func NewSubject(lat, lng float64) Subject {
	return Subject{Lat: &lat, Lng: &lng}
}

// Point returns the subject position as [lng, lat]. ok is false when either
// coordinate is missing.
func (s Subject) Point() (p orb.Point, ok bool) {
	if s.Lat == nil || s.Lng == nil {
		return orb.Point{}, false
	}
	return orb.Point{*s.Lng, *s.Lat}, true
}

// MetaLocation is a vanity path (e.g. "USC") that redirects to a search
type MetaLocation struct {
	Path        string `json:"path"`
	Name        string `json:"name,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}
