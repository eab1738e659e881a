// Package rtree implements an R-Tree prefilter over locale bounds. Locales are
// indexed by the bounding box of their external ring so containment checks
// only run against locales that can possibly contain a point.
package rtree

import (
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dhconnelly/rtreego"
	"github.com/kass/go-geo-locale/pkg/geo"
	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/paulmach/orb"
)

const (
	tolerance   = 1e-9
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialLocale wraps a locale to implement rtreego.Spatial interface
type spatialLocale struct {
	pos   int
	bound orb.Bound
	rect  *rtreego.Rect
}

func (sl *spatialLocale) Bounds() *rtreego.Rect {
	return sl.rect
}

// LocaleIndex is a thread-safe R-Tree index of locale bounding boxes,
// partitioned into longitude bands
type LocaleIndex struct {
	partitions      []*rtreego.Rtree
	partitionBounds []models.BoundingBox
	numPartitions   int
	mu              sync.RWMutex
	itemCount       atomic.Int64
	extent          models.BoundingBox
}

// NewLocaleIndex creates an index with one partition per CPU
func NewLocaleIndex() *LocaleIndex {
	return NewLocaleIndexWithPartitions(runtime.NumCPU())
}

// NewLocaleIndexWithPartitions creates an index with the given partition count
func NewLocaleIndexWithPartitions(numPartitions int) *LocaleIndex {
	if numPartitions <= 0 {
		numPartitions = runtime.NumCPU()
	}

	g := &LocaleIndex{
		partitions:      make([]*rtreego.Rtree, numPartitions),
		partitionBounds: make([]models.BoundingBox, numPartitions),
		numPartitions:   numPartitions,
	}

	// Create partitions based on longitude bands
	lonRange := 360.0 / float64(numPartitions)
	for i := 0; i < numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)

		minLon := -180.0 + float64(i)*lonRange
		maxLon := minLon + lonRange
		if i == numPartitions-1 {
			maxLon = 180.0
		}

		g.partitionBounds[i] = models.BoundingBox{
			BottomLeft: models.Location{Lat: -90, Lon: minLon},
			TopRight:   models.Location{Lat: 90, Lon: maxLon},
		}
	}

	return g
}

// IndexLocales replaces the index contents with the published locales that
// have a usable external ring. Positions reported by Candidates refer to the
// given slice. Returns the number of locales indexed.
func (g *LocaleIndex) IndexLocales(locales []*models.Locale) int {
	partitioned := make([][]*spatialLocale, g.numPartitions)

	var (
		count  int
		extent orb.Bound
	)
	for pos, l := range locales {
		if l == nil || !l.Published {
			continue
		}

		bound, ok := geo.Bound(l.Rings())
		if !ok || !finiteBound(bound) {
			continue
		}

		rect, err := boundToRect(bound)
		if err != nil {
			continue
		}

		item := &spatialLocale{pos: pos, bound: bound, rect: rect}
		for _, idx := range g.getRelevantPartitions(bound) {
			partitioned[idx] = append(partitioned[idx], item)
		}

		if count == 0 {
			extent = bound
		} else {
			extent = extent.Union(bound)
		}
		count++
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < g.numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
		if len(partitioned[i]) == 0 {
			continue
		}

		wg.Add(1)
		go func(partitionIdx int, items []*spatialLocale) {
			defer wg.Done()

			// Each partition can be updated independently
			for _, item := range items {
				g.partitions[partitionIdx].Insert(item)
			}
		}(i, partitioned[i])
	}

	wg.Wait()
	g.itemCount.Store(int64(count))
	g.extent = models.BoundingBox{
		BottomLeft: models.Location{Lat: extent.Min.Lat(), Lon: extent.Min.Lon()},
		TopRight:   models.Location{Lat: extent.Max.Lat(), Lon: extent.Max.Lon()},
	}
	return count
}

// Candidates returns the positions of the locales whose bounding box
// contains point ([lng, lat]), in ascending order
func (g *LocaleIndex) Candidates(point orb.Point) []int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.itemCount.Load() == 0 || !finiteBound(point.Bound()) {
		return nil
	}

	query := rtreego.Point{point.Lat(), point.Lon()}.ToRect(tolerance)
	results := g.partitions[g.partitionFor(point.Lon())].SearchIntersect(query)

	positions := make([]int, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialLocale)
		if !ok {
			continue
		}
		if item.bound.Contains(point) {
			positions = append(positions, item.pos)
		}
	}

	sort.Ints(positions)
	return positions
}

// Extent returns the box covering every indexed locale
func (g *LocaleIndex) Extent() models.BoundingBox {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.extent
}

// Count returns the number of indexed locales
func (g *LocaleIndex) Count() int64 {
	return g.itemCount.Load()
}

// Clear removes all locales from the index
func (g *LocaleIndex) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < g.numPartitions; i++ {
		g.partitions[i] = rtreego.NewTree(dimensions, minChildren, maxChildren)
	}
	g.itemCount.Store(0)
	g.extent = models.BoundingBox{}
}

// getRelevantPartitions returns the indices of partitions that intersect with the given bounds
func (g *LocaleIndex) getRelevantPartitions(b orb.Bound) []int {
	var relevant []int
	for i, bounds := range g.partitionBounds {
		if b.Min.Lon() <= bounds.TopRight.Lon &&
			b.Max.Lon() >= bounds.BottomLeft.Lon {
			relevant = append(relevant, i)
		}
	}
	// Bounds outside [-180, 180] still need a home
	if len(relevant) == 0 {
		relevant = append(relevant, g.partitionFor(b.Min.Lon()))
	}
	return relevant
}

func (g *LocaleIndex) partitionFor(lon float64) int {
	lonRange := 360.0 / float64(g.numPartitions)
	idx := int((lon + 180.0) / lonRange)
	if idx >= g.numPartitions {
		idx = g.numPartitions - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// boundToRect converts a bound into an R-Tree rect in (lat, lon) order,
// padded so degenerate boxes still have positive size
func boundToRect(b orb.Bound) (*rtreego.Rect, error) {
	corner := rtreego.Point{b.Min.Lat() - tolerance, b.Min.Lon() - tolerance}
	lengths := []float64{
		b.Max.Lat() - b.Min.Lat() + 2*tolerance,
		b.Max.Lon() - b.Min.Lon() + 2*tolerance,
	}
	return rtreego.NewRect(corner, lengths)
}

func finiteBound(b orb.Bound) bool {
	for _, v := range []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
