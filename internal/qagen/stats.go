package qagen

import (
	"slices"
	"sync"
	"time"
)

// StatsSnapshot aggregates the generation calls inside the window.
type StatsSnapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
	Window string  `json:"window"`
}

type call struct {
	at     time.Time
	ms     int64
	failed bool
}

// LLMStats keeps a rolling window of generation call latencies.
type LLMStats struct {
	mu     sync.Mutex
	calls  []call
	window time.Duration
	now    func() time.Time
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{window: window, now: time.Now}
}

// Record adds a successful call. Negative durations count as zero.
func (s *LLMStats) Record(d time.Duration) { s.add(d, false) }

// RecordError adds a failed call.
func (s *LLMStats) RecordError(d time.Duration) { s.add(d, true) }

func (s *LLMStats) add(d time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.calls = append(s.calls, call{at: now, ms: max(d.Milliseconds(), 0), failed: failed})
}

// Snapshot returns latency aggregates over successful calls and the number
// of failures.
func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())

	snap := StatsSnapshot{Window: s.window.String()}
	var values []int64
	var sum int64
	for _, c := range s.calls {
		if c.failed {
			snap.Errors++
			continue
		}
		values = append(values, c.ms)
		sum += c.ms
	}
	if len(values) == 0 {
		return snap
	}
	slices.Sort(values)

	snap.Count = len(values)
	snap.MinMs = values[0]
	snap.MaxMs = values[len(values)-1]
	snap.AvgMs = float64(sum) / float64(len(values))
	snap.P50Ms = percentile(values, 50)
	snap.P95Ms = percentile(values, 95)
	snap.P99Ms = percentile(values, 99)
	return snap
}

// pruneLocked drops calls older than the window. Calls are appended in time
// order so the expired ones form a prefix.
func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.calls) && s.calls[i].at.Before(cutoff) {
		i++
	}
	s.calls = slices.Delete(s.calls, 0, i)
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
