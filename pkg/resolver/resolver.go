package resolver

import (
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/kass/go-geo-locale/pkg/locale"
	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/kass/go-geo-locale/pkg/pathmatch"
	"github.com/kass/go-geo-locale/pkg/rtree"
	"github.com/patrickmn/go-cache"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// Result is a resolved locale together with the cascade step that chose it
type Result struct {
	Locale *models.Locale
	Step   Step
}

// Resolver resolves subjects against one locale collection. Indexes are built
// once per collection; results match Derive for the same inputs. A Resolver
// is safe for concurrent use.
type Resolver struct {
	mu       sync.RWMutex
	index    *locale.Index
	spatial  *rtree.LocaleIndex
	cache    *cache.Cache
	log      logrus.FieldLogger
	version  string
	cacheTTL time.Duration
	parts    int
}

// Option configures a Resolver
type Option func(*Resolver)

// WithLogger sets the logger used for resolution traces
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// WithCache memoizes results for ttl. A zero ttl disables the cache.
func WithCache(ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cacheTTL = ttl
	}
}

// WithVersion tags the locale collection; cached results are keyed by it
func WithVersion(version string) Option {
	return func(r *Resolver) {
		r.version = version
	}
}

// WithPartitions sets the number of spatial index partitions
func WithPartitions(n int) Option {
	return func(r *Resolver) {
		r.parts = n
	}
}

// New builds a resolver over locales
func New(locales []*models.Locale, opts ...Option) *Resolver {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Resolver{log: discard}
	for _, opt := range opts {
		opt(r)
	}

	if r.cacheTTL > 0 {
		r.cache = cache.New(r.cacheTTL, 2*r.cacheTTL)
	}
	r.spatial = rtree.NewLocaleIndexWithPartitions(r.parts)
	r.load(locales)
	return r
}

// Reload swaps in a new locale collection and drops cached results
func (r *Resolver) Reload(locales []*models.Locale, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.version = version
	r.load(locales)
	if r.cache != nil {
		r.cache.Flush()
	}
}

func (r *Resolver) load(locales []*models.Locale) {
	start := time.Now()
	r.index = locale.NewIndex(locales)
	indexed := r.spatial.IndexLocales(locales)

	r.log.WithFields(logrus.Fields{
		"locales": len(locales),
		"indexed": indexed,
		"version": r.version,
		"elapsed": time.Since(start),
	}).Debug("locale indexes built")
}

// Derive returns the locale that applies to subject, or nil
func (r *Resolver) Derive(subject models.Subject) *models.Locale {
	return r.Resolve(subject).Locale
}

// Resolve is Derive that also reports which cascade step matched
func (r *Resolver) Resolve(subject models.Subject) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := r.cacheKey(subject)
	if r.cache != nil {
		if cached, found := r.cache.Get(key); found {
			return cached.(Result)
		}
	}

	l, step := derive(r.index, subject, nil, r.spatialContainment)
	res := Result{Locale: l, Step: step}
	r.trace(subject, res)

	if r.cache != nil {
		r.cache.Set(key, res, cache.DefaultExpiration)
	}
	return res
}

// DeriveWithSubLocales resolves with an explicit sub-locale set. Results are
// not cached.
func (r *Resolver) DeriveWithSubLocales(subject models.Subject, subLocales []*models.Locale) *models.Locale {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, step := derive(r.index, subject, subLocales, r.spatialContainment)
	r.trace(subject, Result{Locale: l, Step: step})
	return l
}

// FindNeighborhood returns the featured neighborhood of the locale slug that
// pathname points at
func (r *Resolver) FindNeighborhood(slug, pathname string) *models.Neighborhood {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return pathmatch.FindNeighborhood(r.index.Find(slug), pathname)
}

// Find returns the locale with the given slug
func (r *Resolver) Find(slug string) *models.Locale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Find(slug)
}

// Root returns the root ancestor of the locale slug, nil if unknown
func (r *Resolver) Root(slug string) *models.Locale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Root(r.index.Find(slug))
}

// RootSlug returns the slug of the locale listing childSlug as a child
func (r *Resolver) RootSlug(childSlug string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.RootSlug(childSlug)
}

// TopLevel returns the published top-level locales
func (r *Resolver) TopLevel() []*models.Locale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.TopLevelPublished()
}

// Locales returns the current collection
func (r *Resolver) Locales() []*models.Locale {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Locales()
}

// Extent returns the box covering every published locale with bounds
func (r *Resolver) Extent() models.BoundingBox {
	return r.spatial.Extent()
}

// spatialContainment narrows the scan to R-Tree candidates; candidates come
// back in collection order so the first match is the same as a linear scan
func (r *Resolver) spatialContainment(idx *locale.Index, point orb.Point) *models.Locale {
	locales := idx.Locales()
	for _, pos := range r.spatial.Candidates(point) {
		if containsPoint(locales[pos], point) {
			return locales[pos]
		}
	}
	return nil
}

func (r *Resolver) trace(subject models.Subject, res Result) {
	fields := logrus.Fields{
		"step":        res.Step,
		"city_state":  subject.CityStateSlug,
		"has_point":   subject.Lat != nil && subject.Lng != nil,
		"collection":  r.version,
		"result_slug": "",
	}
	if res.Locale != nil {
		fields["result_slug"] = res.Locale.Slug
	}
	r.log.WithFields(fields).Debug("locale resolved")
}

// cacheKey quotes the free-text fields so a separator inside a slug or URL
// cannot make two subjects collide
func (r *Resolver) cacheKey(subject models.Subject) string {
	return fmt.Sprintf("%q|%s|%s|%q|%q",
		r.version,
		formatCoord(subject.Lat),
		formatCoord(subject.Lng),
		subject.CityStateSlug,
		subject.DoorstepsURL,
	)
}

func formatCoord(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
