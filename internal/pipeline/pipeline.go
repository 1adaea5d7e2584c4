// Package pipeline wires quality assessment, layout detection, adaptive
// preprocessing, and managed recognition into a document processor with
// parallel page workers and ordered aggregation.
package pipeline

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/quillscan/quillscan/internal/engine"
	"github.com/quillscan/quillscan/internal/ingest"
	"github.com/quillscan/quillscan/internal/layout"
	"github.com/quillscan/quillscan/internal/optimize"
	"github.com/quillscan/quillscan/internal/quality"
)

// Config holds every tunable of the pipeline as an explicit value. The
// zero value is not usable; start from DefaultConfig.
type Config struct {
	Quality      quality.Config
	Layout       layout.ProjectionConfig
	Thresholds   optimize.Thresholds
	Engine       engine.Config
	Limits       ingest.Limits
	Workers      int           // parallel page workers (0 = runtime.NumCPU())
	LLMThreshold float64       // weighted mean confidence below this flags LLM correction
	Timeout      time.Duration // whole-document deadline (0 = none)
}

// DefaultConfig returns pipeline defaults with component defaults filled in.
func DefaultConfig() Config {
	return Config{
		Quality:      quality.DefaultConfig(),
		Layout:       layout.DefaultProjectionConfig(),
		Thresholds:   optimize.DefaultThresholds(),
		Engine:       engine.DefaultConfig(),
		Limits:       ingest.DefaultLimits(),
		Workers:      runtime.NumCPU(),
		LLMThreshold: 92.0,
		Timeout:      0,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg      Config
	eng      engine.Engine
	detector layout.Detector
}

// NewBuilder creates a pipeline builder with defaults. The recognition
// engine must be supplied via WithEngine before Build.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithEngine sets the underlying recognition engine.
func (b *Builder) WithEngine(e engine.Engine) *Builder {
	b.eng = e
	return b
}

// WithLayoutDetector overrides the default projection-profile detector.
func (b *Builder) WithLayoutDetector(d layout.Detector) *Builder {
	if d != nil {
		b.detector = d
	}
	return b
}

// WithWorkers sets the number of parallel page workers.
func (b *Builder) WithWorkers(n int) *Builder {
	if n > 0 {
		b.cfg.Workers = n
	}
	return b
}

// WithLLMThreshold sets the confidence threshold below which the output is
// flagged for downstream LLM correction.
func (b *Builder) WithLLMThreshold(threshold float64) *Builder {
	if threshold > 0 {
		b.cfg.LLMThreshold = threshold
	}
	return b
}

// WithTimeout sets the whole-document processing deadline.
func (b *Builder) WithTimeout(d time.Duration) *Builder {
	if d >= 0 {
		b.cfg.Timeout = d
	}
	return b
}

// WithQualityConfig overrides the quality assessor configuration.
func (b *Builder) WithQualityConfig(cfg quality.Config) *Builder {
	b.cfg.Quality = cfg
	return b
}

// WithThresholds overrides the strategy decision thresholds.
func (b *Builder) WithThresholds(t optimize.Thresholds) *Builder {
	b.cfg.Thresholds = t
	return b
}

// WithEngineConfig overrides the managed engine configuration.
func (b *Builder) WithEngineConfig(cfg engine.Config) *Builder {
	b.cfg.Engine = cfg
	return b
}

// WithLimits overrides the ingestion limits.
func (b *Builder) WithLimits(l ingest.Limits) *Builder {
	b.cfg.Limits = l
	return b
}

// WithMinConfidence sets the ladder acceptance threshold.
func (b *Builder) WithMinConfidence(c float64) *Builder {
	if c > 0 {
		b.cfg.Engine.MinConfidence = c
	}
	return b
}

// WithCacheCapacity sets the recognition cache capacity.
func (b *Builder) WithCacheCapacity(n int) *Builder {
	if n > 0 {
		b.cfg.Engine.CacheCapacity = n
	}
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration before build.
func (b *Builder) Validate() error {
	if b.eng == nil {
		return errors.New("recognition engine is required")
	}
	if b.cfg.Workers < 0 {
		return errors.New("worker count must not be negative")
	}
	if b.cfg.LLMThreshold < 0 || b.cfg.LLMThreshold > 100 {
		return fmt.Errorf("llm threshold %.1f out of range [0,100]", b.cfg.LLMThreshold)
	}
	if b.cfg.Engine.MinConfidence < 0 || b.cfg.Engine.MinConfidence > 100 {
		return fmt.Errorf("min confidence %.1f out of range [0,100]", b.cfg.Engine.MinConfidence)
	}
	return nil
}

// Pipeline processes documents page by page. Safe for concurrent use; all
// mutable state lives in the managed engine's cache and stats.
type Pipeline struct {
	cfg       Config
	assessor  *quality.Assessor
	detector  layout.Detector
	optimizer *optimize.Optimizer
	managed   *engine.Managed
}

// Build initializes the pipeline components.
func (b *Builder) Build() (*Pipeline, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if b.cfg.Workers == 0 {
		b.cfg.Workers = runtime.NumCPU()
	}

	managed, err := engine.NewManaged(b.eng, b.cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("init managed engine: %w", err)
	}

	detector := b.detector
	if detector == nil {
		detector = layout.NewProjectionDetector(b.cfg.Layout)
	}

	return &Pipeline{
		cfg:       b.cfg,
		assessor:  quality.NewAssessor(b.cfg.Quality),
		detector:  detector,
		optimizer: optimize.NewOptimizer(optimize.NewStrategy(b.cfg.Thresholds)),
		managed:   managed,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// EngineStats returns the managed engine's accumulated statistics.
func (p *Pipeline) EngineStats() engine.StatsSnapshot { return p.managed.Stats() }
