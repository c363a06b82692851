package images

import (
	"math"
	"sort"
	"sync"
	"time"
)

// FetchSummary describes the remote fetches made during one run.
type FetchSummary struct {
	Fetches int   `json:"fetches"`
	Failed  int   `json:"failed"`
	Bytes   int64 `json:"bytes"`

	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms int64   `json:"p50_ms"`
	P95Ms int64   `json:"p95_ms"`

	Slowest string `json:"slowest,omitempty"`
}

// FetchStats accumulates every remote fetch a Resolver attempts, successful or
// not, for the lifetime of that Resolver. The zero value is ready to use.
type FetchStats struct {
	mu        sync.Mutex
	durations []int64
	failed    int
	bytes     int64
	slowest   string
	slowestMs int64
}

// Record adds one fetch of src that took d and stored n bytes; err is the
// fetch outcome.
func (s *FetchStats) Record(src string, d time.Duration, n int64, err error) {
	ms := max(d.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, ms)
	if err != nil {
		s.failed++
	} else {
		s.bytes += n
	}
	if s.slowest == "" || ms > s.slowestMs {
		s.slowest, s.slowestMs = truncate(src, 120), ms
	}
}

func (s *FetchStats) Summary() FetchSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := FetchSummary{Fetches: len(s.durations), Failed: s.failed, Bytes: s.bytes}
	if len(s.durations) == 0 {
		return sum
	}

	sorted := append([]int64(nil), s.durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var total int64
	for _, ms := range sorted {
		total += ms
	}
	sum.MinMs = sorted[0]
	sum.MaxMs = sorted[len(sorted)-1]
	sum.AvgMs = float64(total) / float64(len(sorted))
	sum.P50Ms = nearestRank(sorted, 50)
	sum.P95Ms = nearestRank(sorted, 95)
	sum.Slowest = s.slowest
	return sum
}

// nearestRank returns the smallest sample with at least pct percent of the
// samples at or below it. sorted must be ascending and non-empty.
func nearestRank(sorted []int64, pct float64) int64 {
	rank := int(math.Ceil(pct / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}
