package locale

import "github.com/kass/go-geo-locale/pkg/models"

// Index resolves slug references through maps built once per collection.
// Lookups keep the first-match semantics of the linear helpers: the first
// locale with a slug wins, and the first locale listing a child owns it.
type Index struct {
	locales  []*models.Locale
	bySlug   map[string]*models.Locale
	rootOf   map[string]string
	byParent map[string][]*models.Locale
}

// NewIndex builds an index over locales. The slice is kept by reference.
func NewIndex(locales []*models.Locale) *Index {
	idx := &Index{
		locales:  locales,
		bySlug:   make(map[string]*models.Locale, len(locales)),
		rootOf:   make(map[string]string),
		byParent: make(map[string][]*models.Locale),
	}

	for _, l := range locales {
		if l == nil {
			continue
		}
		if l.Slug != "" {
			if _, seen := idx.bySlug[l.Slug]; !seen {
				idx.bySlug[l.Slug] = l
			}
		}
		for _, child := range l.Children {
			if _, seen := idx.rootOf[child]; !seen {
				idx.rootOf[child] = l.Slug
			}
		}
		if l.Parent != "" {
			idx.byParent[l.Parent] = append(idx.byParent[l.Parent], l)
		}
	}

	return idx
}

// Locales returns the indexed collection
func (idx *Index) Locales() []*models.Locale {
	return idx.locales
}

// Len returns the number of indexed locales
func (idx *Index) Len() int {
	return len(idx.locales)
}

// Find returns the locale with the given slug, or nil
func (idx *Index) Find(slug string) *models.Locale {
	if slug == "" {
		return nil
	}
	return idx.bySlug[slug]
}

// Root is FindRootAncestor backed by the slug map
func (idx *Index) Root(l *models.Locale) *models.Locale {
	if l == nil {
		return nil
	}
	if l.Parent == "" {
		return l
	}
	if parent := idx.Find(l.Parent); parent != nil {
		return parent
	}
	return l
}

// RootSlug is FindRootSlugForChildSlug backed by the children map
func (idx *Index) RootSlug(childSlug string) string {
	if root, ok := idx.rootOf[childSlug]; ok {
		return root
	}
	return childSlug
}

// SubLocales returns the locales whose parent is slug, in collection order
func (idx *Index) SubLocales(slug string) []*models.Locale {
	return idx.byParent[slug]
}

// TopLevelPublished filters the collection like the package function
func (idx *Index) TopLevelPublished() []*models.Locale {
	return TopLevelPublished(idx.locales)
}
