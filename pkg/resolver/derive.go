// Package resolver determines the single most specific locale for a listing
// or search result.
package resolver

import (
	"github.com/kass/go-geo-locale/pkg/geo"
	"github.com/kass/go-geo-locale/pkg/locale"
	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/paulmach/orb"
)

// Step names which part of the cascade produced a result
type Step string

const (
	StepNone         Step = "none"
	StepCityState    Step = "city_state"
	StepSubLocale    Step = "sub_locale"
	StepContainment  Step = "containment"
	StepPrecondition Step = "precondition"
)

// Derive returns the locale that applies to subject, or nil.
//
// A published city/state slug match without children wins outright. When it
// has children, the first sub-locale featuring the subject's doorsteps URL
// wins; subLocales overrides the sub-locale set when non-nil. Otherwise the
// first published locale whose bounds contain the subject is found, and a
// published city/state match still takes precedence over it.
func Derive(locales []*models.Locale, subject models.Subject, subLocales []*models.Locale) *models.Locale {
	if len(locales) == 0 {
		return nil
	}
	l, _ := derive(locale.NewIndex(locales), subject, subLocales, linearContainment)
	return l
}

// containmentFunc returns the first published locale containing point
type containmentFunc func(idx *locale.Index, point orb.Point) *models.Locale

func derive(idx *locale.Index, subject models.Subject, subLocales []*models.Locale, contains containmentFunc) (*models.Locale, Step) {
	point, ok := subject.Point()
	if !ok || idx.Len() == 0 {
		return nil, StepPrecondition
	}

	cityState := idx.Find(subject.CityStateSlug)
	switch {
	case cityState == nil:
	case !cityState.Published:
		cityState = nil
	case !cityState.HasChildren():
		return cityState, StepCityState
	default:
		subs := subLocales
		if subs == nil {
			subs = idx.SubLocales(cityState.Slug)
		}
		if sub := findSubLocaleByNeighborhood(subs, subject.DoorstepsURL); sub != nil {
			return sub, StepSubLocale
		}
	}

	if cityState != nil {
		return cityState, StepCityState
	}
	if l := contains(idx, point); l != nil {
		return l, StepContainment
	}
	return nil, StepNone
}

// findSubLocaleByNeighborhood returns the first sub-locale featuring a
// neighborhood with the given search path
func findSubLocaleByNeighborhood(subs []*models.Locale, searchPath string) *models.Locale {
	if searchPath == "" {
		return nil
	}
	for _, sub := range subs {
		if sub == nil {
			continue
		}
		for _, n := range sub.FeaturedNeighborhoods {
			if n.SearchPath == searchPath {
				return sub
			}
		}
	}
	return nil
}

func linearContainment(idx *locale.Index, point orb.Point) *models.Locale {
	for _, l := range idx.Locales() {
		if containsPoint(l, point) {
			return l
		}
	}
	return nil
}

func containsPoint(l *models.Locale, point orb.Point) bool {
	return l != nil && l.Published && geo.PointInPolygon(point, l.Rings())
}
