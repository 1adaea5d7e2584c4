package engine

import "sync"

// Stats accumulates recognition counters across pages. All methods are safe
// for concurrent use.
type Stats struct {
	mu            sync.Mutex
	cacheHits     uint64
	cacheMisses   uint64
	recognitions  uint64
	attempts      uint64
	confidenceSum float64
}

// StatsSnapshot is a point-in-time copy of the engine statistics.
type StatsSnapshot struct {
	CacheHits      uint64  `json:"cache_hits"`
	CacheMisses    uint64  `json:"cache_misses"`
	Recognitions   uint64  `json:"recognitions"`
	TotalAttempts  uint64  `json:"total_attempts"`
	MeanConfidence float64 `json:"mean_confidence"`
}

func (s *Stats) recordCacheHit() {
	s.mu.Lock()
	s.cacheHits++
	s.mu.Unlock()
}

func (s *Stats) recordCacheMiss() {
	s.mu.Lock()
	s.cacheMisses++
	s.mu.Unlock()
}

func (s *Stats) recordRecognition(confidence float64, attempts int) {
	s.mu.Lock()
	s.recognitions++
	s.attempts += uint64(attempts)
	s.confidenceSum += confidence
	s.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := StatsSnapshot{
		CacheHits:     s.cacheHits,
		CacheMisses:   s.cacheMisses,
		Recognitions:  s.recognitions,
		TotalAttempts: s.attempts,
	}
	if s.recognitions > 0 {
		snap.MeanConfidence = s.confidenceSum / float64(s.recognitions)
	}
	return snap
}
