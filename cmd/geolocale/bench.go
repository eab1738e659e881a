package main

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kass/go-geo-locale/pkg/models"
	"github.com/kass/go-geo-locale/pkg/postgis"
	"github.com/spf13/cobra"
)

type BenchmarkResult struct {
	Backend       string        `json:"backend"`
	TotalQueries  int           `json:"total_queries"`
	Workers       int           `json:"workers"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	QueriesPerSec float64       `json:"queries_per_sec"`
	MinDuration   time.Duration `json:"min_duration"`
	MaxDuration   time.Duration `json:"max_duration"`
	Resolved      int64         `json:"resolved"`
	ResolvedRatio float64       `json:"resolved_ratio"`
	Errors        int64         `json:"errors"`
}

// queryFunc resolves one point, reporting whether any locale matched
type queryFunc func(lat, lng float64) (bool, error)

func newBenchCmd(a *app) *cobra.Command {
	var (
		numQueries int
		workers    int
		dsn        string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure resolution throughput",
		Long: `Resolve random points inside the locale extent with a pool of workers and
report latency and throughput. With --dsn the same points are also resolved
by a PostGIS containment query for comparison.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if numQueries < 1 {
				return fmt.Errorf("queries must be positive, got %d", numQueries)
			}
			if workers < 1 {
				workers = 1
			}

			r, err := a.resolver()
			if err != nil {
				return err
			}
			points := randomPoints(r.Extent(), numQueries)

			a.log.Infof("Running %d resolutions with %d workers...", numQueries, workers)
			results := []BenchmarkResult{
				benchmarkQueries("rtree", points, workers, func(lat, lng float64) (bool, error) {
					// bypass the cache so every query walks the cascade
					return r.DeriveWithSubLocales(models.NewSubject(lat, lng), nil) != nil, nil
				}),
			}

			if dsn != "" {
				ctx := cmd.Context()
				db, err := postgis.NewLocaleStore(ctx, dsn)
				if err != nil {
					return err
				}
				defer db.Close()

				a.log.Infof("Running %d PostGIS containment queries with %d workers...", numQueries, workers)
				results = append(results, benchmarkQueries("postgis", points, workers, func(lat, lng float64) (bool, error) {
					slugs, err := db.FindContaining(ctx, lat, lng)
					return len(slugs) > 0, err
				}))
			}

			if a.out.json {
				return a.out.encode(results)
			}
			for _, result := range results {
				printBenchmark(a.out, result)
			}
			if len(results) == 2 && results[0].AvgDuration > 0 {
				a.out.title("Comparison")
				a.out.stat("Speedup", fmt.Sprintf("%.1fx", float64(results[1].AvgDuration)/float64(results[0].AvgDuration)))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&numQueries, "queries", "q", 10000, "Number of resolutions to run")
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "Number of concurrent workers")
	cmd.Flags().StringVar(&dsn, "dsn", "", "Also benchmark PostGIS containment queries")
	return cmd
}

func printBenchmark(p *printer, result BenchmarkResult) {
	p.title(fmt.Sprintf("Benchmark Results (%s)", result.Backend))
	p.stat("Total Queries", result.TotalQueries)
	p.stat("Total Duration", result.TotalDuration)
	p.stat("Average Duration", result.AvgDuration)
	p.stat("Queries/Second", fmt.Sprintf("%.2f", result.QueriesPerSec))
	p.stat("Min Duration", result.MinDuration)
	p.stat("Max Duration", result.MaxDuration)
	p.stat("Resolved", fmt.Sprintf("%d (%.1f%%)", result.Resolved, result.ResolvedRatio*100))
	if result.Errors > 0 {
		p.stat("Errors", result.Errors)
	}
	p.stat("Workers Used", result.Workers)
	p.stat("CPU Cores", runtime.NumCPU())
}

// randomPoints draws n (lat, lng) pairs uniformly inside extent
func randomPoints(extent models.BoundingBox, n int) []models.Location {
	points := make([]models.Location, n)
	for i := range points {
		points[i] = models.Location{
			Lat: extent.BottomLeft.Lat + rand.Float64()*(extent.TopRight.Lat-extent.BottomLeft.Lat),
			Lon: extent.BottomLeft.Lon + rand.Float64()*(extent.TopRight.Lon-extent.BottomLeft.Lon),
		}
	}
	return points
}

func benchmarkQueries(backend string, points []models.Location, workers int, query queryFunc) BenchmarkResult {
	var (
		resolved    int64
		failed      int64
		minDuration = time.Hour
		maxDuration time.Duration
		totalDur    time.Duration
		mu          sync.Mutex
	)

	startTime := time.Now()

	// Worker pool
	queryCh := make(chan models.Location, len(points))
	var wg sync.WaitGroup

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()

			for p := range queryCh {
				queryStart := time.Now()
				found, err := query(p.Lat, p.Lon)
				queryDuration := time.Since(queryStart)

				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				if found {
					atomic.AddInt64(&resolved, 1)
				}

				mu.Lock()
				totalDur += queryDuration
				if queryDuration < minDuration {
					minDuration = queryDuration
				}
				if queryDuration > maxDuration {
					maxDuration = queryDuration
				}
				mu.Unlock()
			}
		}()
	}

	// Send queries
	for _, p := range points {
		queryCh <- p
	}
	close(queryCh)

	wg.Wait()
	totalDuration := time.Since(startTime)

	result := BenchmarkResult{
		Backend:       backend,
		TotalQueries:  len(points),
		Workers:       workers,
		TotalDuration: totalDuration,
		QueriesPerSec: float64(len(points)) / totalDuration.Seconds(),
		MinDuration:   minDuration,
		MaxDuration:   maxDuration,
		Resolved:      resolved,
		ResolvedRatio: float64(resolved) / float64(len(points)),
		Errors:        failed,
	}
	if completed := int64(len(points)) - failed; completed > 0 {
		result.AvgDuration = totalDur / time.Duration(completed)
	} else {
		result.MinDuration = 0
	}
	return result
}
