// Package pathmatch maps URL paths onto locale data: featured neighborhoods,
// geo search queries and meta-location redirects.
package pathmatch

import (
	"regexp"
	"strings"

	"github.com/kass/go-geo-locale/pkg/geo"
	"github.com/kass/go-geo-locale/pkg/models"
)

// geoMarker identifies a geo search path
const geoMarker = "geo?"

// radiusPrefix captures a path up to the last radius=<digits>.<digits>
var radiusPrefix = regexp.MustCompile(`^(.*radius=[0-9]*\.[0-9]*)`)

// IsGeoSearch reports whether path encodes a geo search
func IsGeoSearch(path string) bool {
	return strings.Contains(path, geoMarker)
}

// FindNeighborhood returns the featured neighborhood of l that pathname
// points at, or nil.
//
// Plain paths match a neighborhood search path exactly, ignoring the query
// string. Geo search paths match neighborhoods whose own search path is a
// geo search: the neighborhood's rectangle is converted to its bounding
// circle and compared with pathname cut after its radius value.
func FindNeighborhood(l *models.Locale, pathname string) *models.Neighborhood {
	if l == nil || pathname == "" {
		return nil
	}

	stripped := stripQuery(pathname)
	searchGeo := IsGeoSearch(pathname)

	var radiusCut string
	if searchGeo {
		radiusCut = cutAfterRadius(pathname)
	}

	for i := range l.FeaturedNeighborhoods {
		n := &l.FeaturedNeighborhoods[i]

		if !searchGeo {
			if n.SearchPath == stripped {
				return n
			}
			continue
		}

		if !IsGeoSearch(n.SearchPath) {
			continue
		}
		canonical, ok := CanonicalGeoPath(n.SearchPath)
		if ok && canonical == radiusCut {
			return n
		}
	}

	return nil
}

// CanonicalGeoPath converts a geo search path (rectangle or circle) into the
// canonical /search/geo?lat=..&lng=..&radius=.. form
func CanonicalGeoPath(searchPath string) (string, bool) {
	query := geo.QueryRectToCircle(ParseGeoQueryString(searchPath))
	return geo.SearchPathFromQuery(query)
}

// ParseGeoQueryString splits the query part of a search path into key/value
// pairs. Values are not URL-decoded and later keys overwrite earlier ones.
// A key without "=" has no value and is left out.
func ParseGeoQueryString(searchPath string) map[string]string {
	query := make(map[string]string)

	parts := strings.Split(searchPath, "?")
	if len(parts) < 2 {
		return query
	}

	for _, pair := range strings.Split(parts[1], "&") {
		kv := strings.Split(pair, "=")
		if len(kv) < 2 {
			continue
		}
		query[kv[0]] = kv[1]
	}
	return query
}

func stripQuery(pathname string) string {
	path, _, _ := strings.Cut(pathname, "?")
	return path
}

// cutAfterRadius drops everything after the radius value. Paths without a
// decimal radius come back unchanged.
func cutAfterRadius(pathname string) string {
	if m := radiusPrefix.FindStringSubmatch(pathname); m != nil {
		return m[1]
	}
	return pathname
}
