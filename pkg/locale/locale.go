// Package locale provides lookups over a flat locale collection whose tree
// structure is expressed through parent and children slugs.
package locale

import "github.com/kass/go-geo-locale/pkg/models"

// NationalSlug is reserved for the country-wide locale, never a top-level choice
const NationalSlug = "national"

// FindBySlug returns the first locale with the given slug, or nil
func FindBySlug(slug string, locales []*models.Locale) *models.Locale {
	if slug == "" {
		return nil
	}
	for _, l := range locales {
		if l != nil && l.Slug == slug {
			return l
		}
	}
	return nil
}

// FindRootAncestor returns the parent of l when it can be found in locales,
// otherwise l itself
func FindRootAncestor(l *models.Locale, locales []*models.Locale) *models.Locale {
	if l == nil {
		return nil
	}
	if l.Parent == "" {
		return l
	}
	if parent := FindBySlug(l.Parent, locales); parent != nil {
		return parent
	}
	return l
}

// FindRootSlugForChildSlug returns the slug of the first locale listing
// childSlug among its children, or childSlug when none does
func FindRootSlugForChildSlug(childSlug string, locales []*models.Locale) string {
	for _, l := range locales {
		if l == nil {
			continue
		}
		for _, child := range l.Children {
			if child == childSlug {
				return l.Slug
			}
		}
	}
	return childSlug
}

// TopLevelPublished filters to published root locales, excluding the
// national one. Input order is kept.
func TopLevelPublished(locales []*models.Locale) []*models.Locale {
	var out []*models.Locale
	for _, l := range locales {
		if isTopLevelPublished(l) {
			out = append(out, l)
		}
	}
	return out
}

func isTopLevelPublished(l *models.Locale) bool {
	return l != nil && l.Published && l.Parent == "" && l.Slug != NationalSlug
}
