package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillscan/quillscan/internal/engine"
	"github.com/quillscan/quillscan/internal/layout"
)

// scriptedEngine returns a fixed observation per recognized image digest,
// with an optional artificial delay to shuffle completion order.
type scriptedEngine struct {
	mu      sync.Mutex
	calls   int
	byText  map[uint64]engine.Observation
	delay   time.Duration
	failAll error
}

func (s *scriptedEngine) Recognize(ctx context.Context, img image.Image, _ engine.Params) (engine.Observation, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return engine.Observation{}, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failAll != nil {
		return engine.Observation{}, s.failAll
	}
	key := engine.ImageDigest(img)
	if obs, ok := s.byText[key]; ok {
		return obs, nil
	}
	return engine.Observation{Text: "recognized text", Confidence: 95}, nil
}

func newTestPipeline(t *testing.T, eng engine.Engine, opts ...func(*Builder)) *Pipeline {
	t.Helper()
	b := NewBuilder().
		WithEngine(eng).
		WithLayoutDetector(layout.StaticDetector{Result: layout.Result{Type: layout.TypeSingle}})
	for _, opt := range opts {
		opt(b)
	}
	p, err := b.Build()
	require.NoError(t, err)
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 92.0, cfg.LLMThreshold, 1e-9)
	assert.InDelta(t, 70.0, cfg.Engine.MinConfidence, 1e-9)
	assert.Equal(t, 1000, cfg.Engine.CacheCapacity)
	assert.Positive(t, cfg.Workers)
	assert.Len(t, cfg.Engine.Ladder, 3)
}

func TestBuilderRequiresEngine(t *testing.T) {
	_, err := NewBuilder().Build()
	require.Error(t, err)
	assert.ErrorContains(t, err, "engine")
}

func TestBuilderValidation(t *testing.T) {
	eng := &scriptedEngine{}

	b := NewBuilder().WithEngine(eng)
	b.cfg.LLMThreshold = 150
	_, err := b.Build()
	assert.Error(t, err)

	b = NewBuilder().WithEngine(eng)
	b.cfg.Engine.MinConfidence = -1
	_, err = b.Build()
	assert.Error(t, err)
}

func TestBuilderFluentSetters(t *testing.T) {
	eng := &scriptedEngine{}
	p := newTestPipeline(t, eng, func(b *Builder) {
		b.WithWorkers(2).
			WithLLMThreshold(85).
			WithMinConfidence(60).
			WithCacheCapacity(10).
			WithTimeout(time.Minute)
	})

	cfg := p.Config()
	assert.Equal(t, 2, cfg.Workers)
	assert.InDelta(t, 85.0, cfg.LLMThreshold, 1e-9)
	assert.InDelta(t, 60.0, cfg.Engine.MinConfidence, 1e-9)
	assert.Equal(t, 10, cfg.Engine.CacheCapacity)
	assert.Equal(t, time.Minute, cfg.Timeout)
}

func TestBuilderIgnoresInvalidSetterValues(t *testing.T) {
	eng := &scriptedEngine{}
	p := newTestPipeline(t, eng, func(b *Builder) {
		b.WithWorkers(-3).WithLLMThreshold(0).WithCacheCapacity(0)
	})

	defaults := DefaultConfig()
	cfg := p.Config()
	assert.Equal(t, defaults.Workers, cfg.Workers)
	assert.InDelta(t, defaults.LLMThreshold, cfg.LLMThreshold, 1e-9)
	assert.Equal(t, defaults.Engine.CacheCapacity, cfg.Engine.CacheCapacity)
}
