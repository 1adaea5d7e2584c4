// Package config loads application configuration from files, environment
// variables, and defaults, and converts it to pipeline settings.
package config

import (
	"fmt"
	"time"

	"github.com/quillscan/quillscan/internal/engine"
	"github.com/quillscan/quillscan/internal/ingest"
	"github.com/quillscan/quillscan/internal/pipeline"
)

// Config is the complete application configuration. It supports loading
// from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Pipeline  PipelineConfig  `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine" json:"engine"`
	Tesseract TesseractConfig `mapstructure:"tesseract" yaml:"tesseract" json:"tesseract"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits" json:"limits"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output" json:"output"`
}

// PipelineConfig contains document processing settings.
type PipelineConfig struct {
	Workers      int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	LLMThreshold float64 `mapstructure:"llm_threshold" yaml:"llm_threshold" json:"llm_threshold"`
	TimeoutSec   int     `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
}

// EngineConfig contains managed recognition settings.
type EngineConfig struct {
	MinConfidence float64             `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	CacheCapacity int                 `mapstructure:"cache_capacity" yaml:"cache_capacity" json:"cache_capacity"`
	EngineRetries int                 `mapstructure:"engine_retries" yaml:"engine_retries" json:"engine_retries"`
	Ladder        []engine.LadderStep `mapstructure:"ladder" yaml:"ladder" json:"ladder"`
}

// TesseractConfig contains settings for the Tesseract engine variant.
type TesseractConfig struct {
	TessdataDir string `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
	Languages   string `mapstructure:"languages" yaml:"languages" json:"languages"`
}

// LimitsConfig bounds the work accepted per run.
type LimitsConfig struct {
	MaxPages  int `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"`
	MaxFileMB int `mapstructure:"max_file_mb" yaml:"max_file_mb" json:"max_file_mb"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text, json, summary, llm
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// DefaultConfig returns the application defaults.
func DefaultConfig() *Config {
	engineDefaults := engine.DefaultConfig()
	pipelineDefaults := pipeline.DefaultConfig()
	limitDefaults := ingest.DefaultLimits()
	return &Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			Workers:      pipelineDefaults.Workers,
			LLMThreshold: pipelineDefaults.LLMThreshold,
			TimeoutSec:   0,
		},
		Engine: EngineConfig{
			MinConfidence: engineDefaults.MinConfidence,
			CacheCapacity: engineDefaults.CacheCapacity,
			EngineRetries: engineDefaults.EngineRetries,
			Ladder:        engineDefaults.Ladder,
		},
		Tesseract: TesseractConfig{
			TessdataDir: "",
			Languages:   "eng",
		},
		Limits: LimitsConfig{
			MaxPages:  limitDefaults.MaxPages,
			MaxFileMB: int(limitDefaults.MaxFileSize >> 20),
		},
		Output: OutputConfig{
			Format: "text",
			File:   "",
		},
	}
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline workers must not be negative: %d", c.Pipeline.Workers)
	}
	if c.Pipeline.LLMThreshold < 0 || c.Pipeline.LLMThreshold > 100 {
		return fmt.Errorf("llm threshold %.1f out of range [0,100]", c.Pipeline.LLMThreshold)
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 100 {
		return fmt.Errorf("min confidence %.1f out of range [0,100]", c.Engine.MinConfidence)
	}
	if c.Engine.CacheCapacity < 0 {
		return fmt.Errorf("cache capacity must not be negative: %d", c.Engine.CacheCapacity)
	}
	for i, step := range c.Engine.Ladder {
		if step.PSM < 0 || step.PSM > 13 {
			return fmt.Errorf("ladder step %d: psm %d out of range [0,13]", i, step.PSM)
		}
		if step.OEM < 0 || step.OEM > 3 {
			return fmt.Errorf("ladder step %d: oem %d out of range [0,3]", i, step.OEM)
		}
	}
	switch c.Output.Format {
	case "text", "json", "summary", "llm":
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}
	return nil
}

// ToPipeline converts the application configuration to pipeline settings.
func (c *Config) ToPipeline() pipeline.Config {
	cfg := pipeline.DefaultConfig()
	if c.Pipeline.Workers > 0 {
		cfg.Workers = c.Pipeline.Workers
	}
	if c.Pipeline.LLMThreshold > 0 {
		cfg.LLMThreshold = c.Pipeline.LLMThreshold
	}
	cfg.Timeout = time.Duration(c.Pipeline.TimeoutSec) * time.Second
	if c.Engine.MinConfidence > 0 {
		cfg.Engine.MinConfidence = c.Engine.MinConfidence
	}
	if c.Engine.CacheCapacity > 0 {
		cfg.Engine.CacheCapacity = c.Engine.CacheCapacity
	}
	cfg.Engine.EngineRetries = c.Engine.EngineRetries
	if len(c.Engine.Ladder) > 0 {
		cfg.Engine.Ladder = c.Engine.Ladder
	}
	if c.Limits.MaxPages > 0 {
		cfg.Limits.MaxPages = c.Limits.MaxPages
	}
	if c.Limits.MaxFileMB > 0 {
		cfg.Limits.MaxFileSize = int64(c.Limits.MaxFileMB) << 20
	}
	return cfg
}

// ToTesseract converts the Tesseract section to engine settings.
func (c *Config) ToTesseract() engine.TesseractConfig {
	cfg := engine.DefaultTesseractConfig()
	if c.Tesseract.TessdataDir != "" {
		cfg.TessdataDir = c.Tesseract.TessdataDir
	}
	if c.Tesseract.Languages != "" {
		cfg.Languages = c.Tesseract.Languages
	}
	return cfg
}
