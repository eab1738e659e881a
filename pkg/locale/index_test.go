package locale

import (
	"testing"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/stretchr/testify/assert"
)

func testLocales() []*models.Locale {
	return []*models.Locale{
		{Slug: "atlanta-ga", Published: true, Children: []string{"buckhead", "midtown"}},
		{Slug: "buckhead", Parent: "atlanta-ga", Published: true},
		{Slug: "midtown", Parent: "atlanta-ga", Published: false},
		{Slug: "atlanta-ga", Name: "duplicate"},
		{Slug: "decatur", Parent: "missing"},
		{Slug: "other", Children: []string{"midtown"}},
		nil,
		{Slug: NationalSlug, Published: true},
	}
}

func TestIndexMatchesLinearHelpers(t *testing.T) {
	locales := testLocales()
	idx := NewIndex(locales)

	for _, slug := range []string{"atlanta-ga", "buckhead", "midtown", "decatur", "other", "nope", ""} {
		t.Run("find "+slug, func(t *testing.T) {
			assert.Same(t, FindBySlug(slug, locales), idx.Find(slug))
			assert.Equal(t, FindRootSlugForChildSlug(slug, locales), idx.RootSlug(slug))
		})
	}

	for _, l := range locales {
		assert.Same(t, FindRootAncestor(l, locales), idx.Root(l))
	}

	assert.Equal(t, TopLevelPublished(locales), idx.TopLevelPublished())
}

func TestIndexSubLocales(t *testing.T) {
	locales := testLocales()
	idx := NewIndex(locales)

	subs := idx.SubLocales("atlanta-ga")
	if assert.Len(t, subs, 2) {
		assert.Same(t, locales[1], subs[0])
		assert.Same(t, locales[2], subs[1])
	}
	assert.Empty(t, idx.SubLocales("decatur"))
	assert.Equal(t, len(locales), idx.Len())
}

func BenchmarkIndexFind(b *testing.B) {
	locales := make([]*models.Locale, 0, 1000)
	for i := 0; i < 1000; i++ {
		locales = append(locales, &models.Locale{Slug: string(rune('a'+i%26)) + string(rune('a'+i/26%26))})
	}
	idx := NewIndex(locales)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = idx.Find("zz")
	}
}
