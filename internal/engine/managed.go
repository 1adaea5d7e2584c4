package engine

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/avast/retry-go/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"
)

// LadderStep is one parameter set of the progressive fallback ladder.
type LadderStep struct {
	PSM int `mapstructure:"psm" yaml:"psm" json:"psm"`
	OEM int `mapstructure:"oem" yaml:"oem" json:"oem"`
}

// Config holds the managed engine settings.
type Config struct {
	Profile       Profile      // model profile when the attempt's OEM does not force one
	MinConfidence float64      // attempts below this trigger the next ladder step
	Ladder        []LadderStep // fallback steps tried after the primary attempt
	CacheCapacity int          // bounded LRU entries
	EngineRetries int          // extra tries per ladder step on engine invocation failure
}

// DefaultConfig returns managed engine defaults: a three-step fallback
// ladder ending in the legacy operating mode, and a 1000-entry cache.
func DefaultConfig() Config {
	return Config{
		Profile:       ProfileStandard,
		MinConfidence: 70.0,
		Ladder: []LadderStep{
			{PSM: 6, OEM: 1},
			{PSM: 11, OEM: 1},
			{PSM: 3, OEM: 0},
		},
		CacheCapacity: 1000,
		EngineRetries: 1,
	}
}

// Result is the immutable outcome of managed recognition for one image.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // [0,100]
	PSM        int     `json:"psm"`        // parameters actually used (after fallback)
	OEM        int     `json:"oem"`
	Attempts   int     `json:"attempts"`
	Cached     bool    `json:"cached"`
}

// Request carries the primary recognition parameters decided upstream.
type Request struct {
	PSM int
	OEM int
}

// Managed wraps an Engine with the fallback ladder and the shared result
// cache. The cache is the only mutable state and is safe for concurrent use
// by parallel page workers.
type Managed struct {
	cfg    Config
	engine Engine
	cache  *lru.Cache[string, Result]
	stats  *Stats
}

// NewManaged creates a managed engine around the given recognizer.
func NewManaged(e Engine, cfg Config) (*Managed, error) {
	if e == nil {
		return nil, fmt.Errorf("nil recognition engine")
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = DefaultConfig().CacheCapacity
	}
	if !cfg.Profile.Valid() {
		cfg.Profile = ProfileStandard
	}
	cache, err := lru.New[string, Result](cfg.CacheCapacity)
	if err != nil {
		return nil, fmt.Errorf("init result cache: %w", err)
	}
	return &Managed{cfg: cfg, engine: e, cache: cache, stats: &Stats{}}, nil
}

// Stats returns the accumulated recognition statistics.
func (m *Managed) Stats() StatsSnapshot { return m.stats.Snapshot() }

// CacheLen returns the current number of cached results.
func (m *Managed) CacheLen() int { return m.cache.Len() }

// Recognize runs the fallback ladder over the image: the primary parameter
// set first, then each configured fallback step, stopping at the first
// attempt whose confidence clears MinConfidence. When the ladder is
// exhausted the best attempt wins, with attempts that produced text
// outranking empty ones. A cache hit returns the stored result
// without invoking the engine and without consuming a ladder attempt.
//
// Engine invocation failures are retried once per step and then skipped; if
// every step fails the error is surfaced rather than returning an empty
// success.
func (m *Managed) Recognize(ctx context.Context, img image.Image, req Request) (Result, error) {
	if img == nil {
		return Result{}, fmt.Errorf("nil image")
	}

	digest := ImageDigest(img)
	primary := Params{PSM: req.PSM, OEM: req.OEM, Profile: m.profileFor(req.OEM)}
	key := cacheKey(digest, primary, m.cfg.MinConfidence)

	if cached, ok := m.cache.Get(key); ok {
		m.stats.recordCacheHit()
		cacheHitsTotal.Inc()
		cached.Cached = true
		return cached, nil
	}
	m.stats.recordCacheMiss()
	cacheMissesTotal.Inc()

	result, err := m.runLadder(ctx, img, primary)
	if err != nil {
		return Result{}, err
	}

	m.stats.recordRecognition(result.Confidence, result.Attempts)
	m.cache.Add(key, result)
	return result, nil
}

func (m *Managed) runLadder(ctx context.Context, img image.Image, primary Params) (Result, error) {
	steps := make([]Params, 0, 1+len(m.cfg.Ladder))
	steps = append(steps, primary)
	for _, s := range m.cfg.Ladder {
		p := Params{PSM: s.PSM, OEM: s.OEM, Profile: m.profileFor(s.OEM)}
		if p == primary {
			continue
		}
		steps = append(steps, p)
	}

	var (
		best     Result
		hasBest  bool
		attempts int
		lastErr  error
	)
	for _, params := range steps {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		obs, err := m.invoke(ctx, img, params)
		if err != nil {
			lastErr = err
			slog.Warn("recognition attempt failed",
				"psm", params.PSM, "oem", params.OEM, "error", err)
			continue
		}
		attempts++
		fallbackAttemptsTotal.Inc()

		candidate := Result{
			Text:       norm.NFC.String(obs.Text),
			Confidence: obs.Confidence,
			PSM:        params.PSM,
			OEM:        params.OEM,
			Attempts:   attempts,
		}
		if candidate.Confidence >= m.cfg.MinConfidence && candidate.Text != "" {
			return candidate, nil
		}
		if !hasBest || betterCandidate(candidate, best) {
			best = candidate
			hasBest = true
		}
	}

	if !hasBest {
		if lastErr == nil {
			lastErr = fmt.Errorf("no recognition attempts executed")
		}
		return Result{}, fmt.Errorf("recognition failed after %d ladder steps: %w", len(steps), lastErr)
	}
	best.Attempts = attempts
	return best, nil
}

// betterCandidate orders exhausted-ladder attempts: an attempt that produced
// text always beats one that produced none, and confidence breaks the tie.
// Recognition never reports empty text when any step read something.
func betterCandidate(c, b Result) bool {
	if (c.Text != "") != (b.Text != "") {
		return c.Text != ""
	}
	return c.Confidence > b.Confidence
}

// invoke calls the engine with one retry on failure. The retry covers
// transient engine unavailability, not low-confidence output.
func (m *Managed) invoke(ctx context.Context, img image.Image, params Params) (Observation, error) {
	tries := uint(m.cfg.EngineRetries + 1)
	return retry.DoWithData(
		func() (Observation, error) {
			return m.engine.Recognize(ctx, img, params)
		},
		retry.Attempts(tries),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func (m *Managed) profileFor(oem int) Profile {
	if p := ProfileForOEM(oem); p != ProfileStandard {
		return p
	}
	return m.cfg.Profile
}
