package resolver

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitSquare(published bool) *models.Locale {
	return &models.Locale{
		Slug:      "square",
		Published: published,
		Bounds: &models.Bounds{
			Type:        "Polygon",
			Coordinates: orb.Polygon{{{0, 0}, {0, 2}, {2, 2}, {2, 0}}},
		},
	}
}

func box(slug string, minLng, minLat, size float64) *models.Locale {
	return &models.Locale{
		Slug:      slug,
		Published: true,
		Bounds: &models.Bounds{
			Type: "Polygon",
			Coordinates: orb.Polygon{{
				{minLng, minLat},
				{minLng, minLat + size},
				{minLng + size, minLat + size},
				{minLng + size, minLat},
			}},
		},
	}
}

func subjectAt(lat, lng float64, cityState, doorsteps string) models.Subject {
	s := models.NewSubject(lat, lng)
	s.CityStateSlug = cityState
	s.DoorstepsURL = doorsteps
	return s
}

func TestDerivePreconditions(t *testing.T) {
	subject := models.NewSubject(1.2, 2.3)
	locales := []*models.Locale{unitSquare(true)}

	assert.Nil(t, Derive([]*models.Locale{}, subject, nil))
	assert.Nil(t, Derive(nil, subject, nil))
	assert.Nil(t, Derive(locales, models.Subject{}, nil))

	lat := 1.0
	assert.Nil(t, Derive(locales, models.Subject{Lat: &lat}, nil))
}

func TestDeriveCityState(t *testing.T) {
	subject := subjectAt(1.2, 2.3, "atlanta-ga", "")

	t.Run("published without children", func(t *testing.T) {
		found := &models.Locale{Slug: "atlanta-ga", Parent: "some-locale", Published: true}
		locales := []*models.Locale{found, {}, {}}
		assert.Same(t, found, Derive(locales, subject, nil))
	})

	t.Run("unpublished", func(t *testing.T) {
		found := &models.Locale{Slug: "atlanta-ga", Parent: "some-locale", Published: false}
		locales := []*models.Locale{found, {}, {}}
		assert.Nil(t, Derive(locales, subject, nil))
	})

	t.Run("unpublished falls through to containment", func(t *testing.T) {
		found := &models.Locale{Slug: "atlanta-ga", Published: false}
		square := unitSquare(true)
		locales := []*models.Locale{found, square}
		assert.Same(t, square, Derive(locales, subjectAt(1.2, 1.8, "atlanta-ga", ""), nil))
	})

	t.Run("city state beats containment", func(t *testing.T) {
		found := &models.Locale{Slug: "atlanta-ga", Published: true}
		locales := []*models.Locale{unitSquare(true), found}
		assert.Same(t, found, Derive(locales, subjectAt(1.2, 1.8, "atlanta-ga", ""), nil))
	})
}

func TestDeriveSubLocales(t *testing.T) {
	parent := &models.Locale{Slug: "atlanta-ga", Published: true, Children: []string{"buckhead", "midtown"}}
	buckhead := &models.Locale{
		Slug: "buckhead", Parent: "atlanta-ga", Published: true,
		FeaturedNeighborhoods: []models.Neighborhood{{SearchPath: "/atlanta-ga/buckhead"}},
	}
	noNeighborhoods := &models.Locale{Slug: "decatur", Parent: "atlanta-ga", Published: true}
	midtown := &models.Locale{
		Slug: "midtown", Parent: "atlanta-ga", Published: true,
		FeaturedNeighborhoods: []models.Neighborhood{
			{SearchPath: "/atlanta-ga/midtown-west"},
			{SearchPath: "/atlanta-ga/midtown"},
		},
	}
	other := &models.Locale{
		Slug: "other", Parent: "elsewhere", Published: true,
		FeaturedNeighborhoods: []models.Neighborhood{{SearchPath: "/atlanta-ga/midtown"}},
	}
	square := unitSquare(true)
	locales := []*models.Locale{square, parent, buckhead, noNeighborhoods, midtown, other}

	testCases := []struct {
		name      string
		doorsteps string
		subs      []*models.Locale
		expected  *models.Locale
	}{
		{"matching sub-locale", "/atlanta-ga/midtown", nil, midtown},
		{"first sub-locale wins", "/atlanta-ga/buckhead", nil, buckhead},
		{"no sub match keeps city state", "/atlanta-ga/decatur", nil, parent},
		{"empty doorsteps keeps city state", "", nil, parent},
		{"explicit sub-locales", "/atlanta-ga/midtown", []*models.Locale{other}, other},
		{"explicit empty sub-locales", "/atlanta-ga/midtown", []*models.Locale{}, parent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			subject := subjectAt(1.2, 1.8, "atlanta-ga", tc.doorsteps)
			assert.Same(t, tc.expected, Derive(locales, subject, tc.subs))
		})
	}
}

func TestDeriveEmptyChildrenCountsAsChildren(t *testing.T) {
	parent := &models.Locale{Slug: "atlanta-ga", Published: true, Children: []string{}}
	assert.Same(t, parent, Derive([]*models.Locale{parent}, subjectAt(5, 5, "atlanta-ga", "/x"), nil))
}

func TestDeriveContainment(t *testing.T) {
	subject := subjectAt(1.2, 1.8, "", "")

	published := unitSquare(true)
	assert.Same(t, published, Derive([]*models.Locale{published, box("other", 50, 50, 1)}, subject, nil))

	unpublished := unitSquare(false)
	assert.Nil(t, Derive([]*models.Locale{unpublished}, subject, nil))

	// first containing locale in collection order wins
	outer := box("outer", -10, -10, 20)
	inner := box("inner", 1, 1, 1)
	assert.Same(t, outer, Derive([]*models.Locale{outer, inner}, subject, nil))
	assert.Same(t, inner, Derive([]*models.Locale{inner, outer}, subject, nil))
}

func TestDeriveMalformedBounds(t *testing.T) {
	subject := subjectAt(1.2, 1.8, "", "")
	locales := []*models.Locale{
		{Slug: "no-bounds", Published: true},
		{Slug: "no-rings", Published: true, Bounds: &models.Bounds{}},
		{Slug: "empty-ring", Published: true, Bounds: &models.Bounds{Coordinates: orb.Polygon{{}}}},
		nil,
	}
	assert.Nil(t, Derive(locales, subject, nil))
}

func TestDeriveZeroCoordinatesAreValid(t *testing.T) {
	square := box("origin", -1, -1, 2)
	assert.Same(t, square, Derive([]*models.Locale{square}, models.NewSubject(0, 0), nil))
}

func TestDeriveIdempotent(t *testing.T) {
	locales := []*models.Locale{unitSquare(true), box("other", 1, 1, 5)}
	subject := subjectAt(1.2, 1.8, "", "")

	first := Derive(locales, subject, nil)
	for i := 0; i < 5; i++ {
		assert.Same(t, first, Derive(locales, subject, nil))
	}
}

func TestResolverMatchesDerive(t *testing.T) {
	locales := generateLocales(300)
	r := New(locales, WithPartitions(4))

	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		subject := subjectAt(rnd.Float64()*20+30, rnd.Float64()*40-120, "", "")
		if i%10 == 0 {
			subject.CityStateSlug = locales[rnd.Intn(len(locales))].Slug
		}
		require.Same(t, Derive(locales, subject, nil), r.Derive(subject), "subject %d", i)
	}
}

func TestResolverResolveSteps(t *testing.T) {
	parent := &models.Locale{Slug: "atlanta-ga", Published: true, Children: []string{"midtown"}}
	midtown := &models.Locale{
		Slug: "midtown", Parent: "atlanta-ga", Published: true,
		FeaturedNeighborhoods: []models.Neighborhood{{SearchPath: "/atlanta-ga/midtown"}},
	}
	square := unitSquare(true)
	r := New([]*models.Locale{square, parent, midtown})

	testCases := []struct {
		name     string
		subject  models.Subject
		expected *models.Locale
		step     Step
	}{
		{"precondition", models.Subject{}, nil, StepPrecondition},
		{"city state", subjectAt(9, 9, "atlanta-ga", ""), parent, StepCityState},
		{"sub locale", subjectAt(9, 9, "atlanta-ga", "/atlanta-ga/midtown"), midtown, StepSubLocale},
		{"containment", subjectAt(1, 1, "", ""), square, StepContainment},
		{"none", subjectAt(9, 9, "", ""), nil, StepNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := r.Resolve(tc.subject)
			assert.Same(t, tc.expected, res.Locale)
			assert.Equal(t, tc.step, res.Step)
		})
	}
}

func TestResolverCache(t *testing.T) {
	square := unitSquare(true)
	r := New([]*models.Locale{square}, WithCache(time.Minute), WithVersion("v1"))
	subject := subjectAt(1, 1, "", "")

	assert.Same(t, square, r.Derive(subject))
	assert.Equal(t, 1, r.cache.ItemCount())
	assert.Same(t, square, r.Derive(subject))
	assert.Equal(t, 1, r.cache.ItemCount())

	moved := box("moved", 50, 50, 1)
	r.Reload([]*models.Locale{moved}, "v2")
	assert.Equal(t, 0, r.cache.ItemCount())
	assert.Nil(t, r.Derive(subject))
	assert.Same(t, moved, r.Derive(subjectAt(50.5, 50.5, "", "")))
}

func TestResolverCacheKeySeparatesFields(t *testing.T) {
	piped := &models.Locale{Slug: "a|b", Published: true}
	locales := []*models.Locale{piped}
	r := New(locales, WithCache(time.Minute))

	first := subjectAt(1, 1, "a|b", "")
	second := subjectAt(1, 1, "a", "b|")
	assert.NotEqual(t, r.cacheKey(first), r.cacheKey(second))

	assert.Same(t, piped, r.Derive(first))
	assert.Nil(t, Derive(locales, second, nil))
	assert.Nil(t, r.Derive(second))
	assert.Equal(t, 2, r.cache.ItemCount())
}

func TestResolverDeriveWithSubLocales(t *testing.T) {
	parent := &models.Locale{Slug: "atlanta-ga", Published: true, Children: []string{}}
	outside := &models.Locale{
		Slug: "outside", Published: true,
		FeaturedNeighborhoods: []models.Neighborhood{{SearchPath: "/x"}},
	}
	r := New([]*models.Locale{parent, outside})

	subject := subjectAt(1, 1, "atlanta-ga", "/x")
	assert.Same(t, parent, r.Derive(subject))
	assert.Same(t, outside, r.DeriveWithSubLocales(subject, []*models.Locale{outside}))
}

func TestResolverLookups(t *testing.T) {
	parent := &models.Locale{Slug: "atlanta-ga", Published: true, Children: []string{"midtown"}}
	midtown := &models.Locale{
		Slug: "midtown", Parent: "atlanta-ga", Published: true,
		FeaturedNeighborhoods: []models.Neighborhood{{Name: "Midtown", SearchPath: "/atlanta-ga/midtown"}},
	}
	national := &models.Locale{Slug: "national", Published: true}
	r := New([]*models.Locale{parent, midtown, national})

	assert.Same(t, parent, r.Find("atlanta-ga"))
	assert.Same(t, parent, r.Root("midtown"))
	assert.Nil(t, r.Root("nowhere"))
	assert.Equal(t, "atlanta-ga", r.RootSlug("midtown"))
	assert.Equal(t, []*models.Locale{parent}, r.TopLevel())
	assert.Len(t, r.Locales(), 3)

	n := r.FindNeighborhood("midtown", "/atlanta-ga/midtown?page=2")
	require.NotNil(t, n)
	assert.Equal(t, "Midtown", n.Name)
	assert.Nil(t, r.FindNeighborhood("nowhere", "/atlanta-ga/midtown"))
}

func TestResolverLogsTrace(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&logrus.JSONFormatter{})

	r := New([]*models.Locale{unitSquare(true)}, WithLogger(log))
	r.Derive(subjectAt(1, 1, "", ""))

	assert.Contains(t, buf.String(), `"step":"containment"`)
	assert.Contains(t, buf.String(), `"result_slug":"square"`)
}

func TestResolverConcurrent(t *testing.T) {
	locales := generateLocales(500)
	r := New(locales, WithCache(time.Minute))

	done := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		go func(seed int64) {
			defer func() { done <- true }()
			rnd := rand.New(rand.NewSource(seed))
			for j := 0; j < 100; j++ {
				subject := subjectAt(rnd.Float64()*20+30, rnd.Float64()*40-120, "", "")
				_ = r.Derive(subject)
			}
		}(int64(i))
	}

	for i := 0; i < 50; i++ {
		<-done
	}
}

func generateLocales(n int) []*models.Locale {
	rnd := rand.New(rand.NewSource(11))
	locales := make([]*models.Locale, n)
	for i := 0; i < n; i++ {
		l := box(fmt.Sprintf("locale_%d", i), rnd.Float64()*40-120, rnd.Float64()*20+30, rnd.Float64()*3+0.1)
		l.Published = rnd.Intn(5) != 0
		if i%7 == 0 {
			l.Bounds = nil
		}
		locales[i] = l
	}
	return locales
}

func BenchmarkDerive(b *testing.B) {
	locales := generateLocales(5000)
	subject := subjectAt(40, -100, "", "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Derive(locales, subject, nil)
	}
}

func BenchmarkResolverDerive(b *testing.B) {
	locales := generateLocales(5000)
	r := New(locales)
	subject := subjectAt(40, -100, "", "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Derive(subject)
	}
}
