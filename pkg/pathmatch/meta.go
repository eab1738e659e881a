package pathmatch

import (
	"strings"

	"github.com/kass/go-geo-locale/pkg/models"
)

// FindMetaRedirect matches the last segment of pathname, upper-cased,
// against the meta-location list (e.g. /usc -> USC)
func FindMetaRedirect(pathname string, metaLocations []models.MetaLocation) *models.MetaLocation {
	segments := strings.Split(pathname, "/")
	return findMeta(strings.ToUpper(segments[len(segments)-1]), metaLocations)
}

// FindMetaRedirectSegments is FindMetaRedirect for a pre-split path; the
// first segment is the one matched
func FindMetaRedirectSegments(segments []string, metaLocations []models.MetaLocation) *models.MetaLocation {
	if len(segments) == 0 {
		return nil
	}
	return findMeta(strings.ToUpper(segments[0]), metaLocations)
}

func findMeta(name string, metaLocations []models.MetaLocation) *models.MetaLocation {
	for i := range metaLocations {
		if metaLocations[i].Path == name {
			return &metaLocations[i]
		}
	}
	return nil
}
