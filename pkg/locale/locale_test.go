package locale

import (
	"testing"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindBySlug(t *testing.T) {
	foo := &models.Locale{Slug: "foo"}
	locales := []*models.Locale{{}, foo, {Slug: "bar"}}

	assert.Same(t, foo, FindBySlug("foo", locales))
	assert.Nil(t, FindBySlug("baz", locales))
	assert.Nil(t, FindBySlug("foo", nil))
	assert.Nil(t, FindBySlug("", locales))
}

func TestFindBySlugFirstMatchWins(t *testing.T) {
	first := &models.Locale{Slug: "dup", Name: "first"}
	second := &models.Locale{Slug: "dup", Name: "second"}

	assert.Same(t, first, FindBySlug("dup", []*models.Locale{nil, first, second}))
}

func TestFindRootAncestor(t *testing.T) {
	bar := &models.Locale{Slug: "bar"}
	locales := []*models.Locale{{Slug: "foo"}, bar}

	child := &models.Locale{Parent: "bar"}
	assert.Same(t, bar, FindRootAncestor(child, locales))

	root := &models.Locale{Parent: ""}
	assert.Same(t, root, FindRootAncestor(root, locales))

	orphan := &models.Locale{Parent: "missing"}
	assert.Same(t, orphan, FindRootAncestor(orphan, locales))

	assert.Nil(t, FindRootAncestor(nil, locales))
}

func TestFindRootSlugForChildSlug(t *testing.T) {
	locales := []*models.Locale{
		{Slug: "atlanta-ga", Children: []string{"buckhead", "midtown"}},
		{Slug: "other", Children: []string{"midtown"}},
	}

	testCases := []struct {
		name     string
		child    string
		expected string
	}{
		{"listed child", "buckhead", "atlanta-ga"},
		{"first listing wins", "midtown", "atlanta-ga"},
		{"not a child", "denver-co", "denver-co"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FindRootSlugForChildSlug(tc.child, locales))
		})
	}
}

func TestTopLevelPublished(t *testing.T) {
	first := &models.Locale{Slug: "a", Published: true}
	locales := []*models.Locale{
		first,
		{Slug: "b", Published: false},
		{Slug: "c", Published: true, Parent: "foo"},
		{Slug: NationalSlug, Published: true},
	}

	result := TopLevelPublished(locales)
	require.Len(t, result, 1)
	assert.Same(t, first, result[0])
}

func TestTopLevelPublishedKeepsOrder(t *testing.T) {
	a := &models.Locale{Slug: "a", Published: true}
	b := &models.Locale{Slug: "b", Published: true}
	c := &models.Locale{Slug: "c", Published: true}

	assert.Equal(t, []*models.Locale{c, a, b}, TopLevelPublished([]*models.Locale{c, nil, a, b}))
	assert.Empty(t, TopLevelPublished(nil))
}
