// Package store loads locale collections and resolution subjects from files.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/tidwall/gjson"
)

// ErrUnsupportedFormat is returned for locale files of unknown type
var ErrUnsupportedFormat = errors.New("unsupported locale file format")

// Coordinate lookups tried in order when reading a subject payload
var (
	latPaths = []string{"lat", "latitude", "location.lat", "geo.lat"}
	lngPaths = []string{"lng", "lon", "longitude", "location.lng", "location.lon", "geo.lng"}
)

// Load reads a locale collection, choosing the decoder by file extension
func Load(path string) ([]*models.Locale, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".geojson":
		return LoadGeoJSON(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// LoadJSON reads a locale collection from a JSON file
func LoadJSON(path string) ([]*models.Locale, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open locale file: %w", err)
	}
	defer file.Close()

	return DecodeJSON(file)
}

// DecodeJSON reads either a bare array of locales or an object wrapping
// them under "locales"
func DecodeJSON(r io.Reader) ([]*models.Locale, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read locales: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to decode locales: invalid JSON")
	}

	raw := data
	if wrapped := gjson.GetBytes(data, "locales"); wrapped.IsArray() {
		raw = []byte(wrapped.Raw)
	}

	var locales []*models.Locale
	if err := json.Unmarshal(raw, &locales); err != nil {
		return nil, fmt.Errorf("failed to decode locales: %w", err)
	}
	return locales, nil
}

// LoadMetaLocations reads a meta-location redirect list from a JSON file
func LoadMetaLocations(path string) ([]models.MetaLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read meta locations: %w", err)
	}

	var metas []models.MetaLocation
	if err := json.Unmarshal(data, &metas); err != nil {
		return nil, fmt.Errorf("failed to decode meta locations: %w", err)
	}
	return metas, nil
}

// SubjectFromJSON extracts a subject from a listing or search result payload.
// Coordinates may be numbers or numeric strings; anything else is missing.
func SubjectFromJSON(data []byte) (models.Subject, error) {
	if !gjson.ValidBytes(data) {
		return models.Subject{}, fmt.Errorf("failed to decode subject: invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	subject := models.Subject{
		Lat:           firstNumber(doc, latPaths),
		Lng:           firstNumber(doc, lngPaths),
		CityStateSlug: doc.Get("cityStateSlug").String(),
		DoorstepsURL:  doc.Get("doorstepsUrl").String(),
	}
	return subject, nil
}

func firstNumber(doc gjson.Result, paths []string) *float64 {
	for _, p := range paths {
		res := doc.Get(p)
		switch res.Type {
		case gjson.Number:
			v := res.Float()
			return &v
		case gjson.String:
			v, err := strconv.ParseFloat(strings.TrimSpace(res.Str), 64)
			if err == nil {
				return &v
			}
		}
	}
	return nil
}
