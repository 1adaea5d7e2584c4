// Package optimize selects recognition configuration from layout and quality
// signals and prepares the page image accordingly.
package optimize

import (
	"fmt"

	"github.com/quillscan/quillscan/internal/layout"
	"github.com/quillscan/quillscan/internal/preprocess"
	"github.com/quillscan/quillscan/internal/quality"
)

// EngineConfig is the immutable recognition configuration produced by the
// strategy: a preprocessing variant, an upscale factor, and the engine's
// page-segmentation and operating modes.
type EngineConfig struct {
	Preprocess preprocess.Type `json:"preprocess"`
	Scale      float64         `json:"scale"` // pure resampling factor, >= 1.0
	PSM        int             `json:"psm"`   // page-segmentation mode
	OEM        int             `json:"oem"`   // operating mode (0 legacy .. 3 best)
}

// Validate checks the enumerated fields. A config failing validation is a
// programming error in the strategy, not a recoverable condition.
func (c EngineConfig) Validate() error {
	if !c.Preprocess.Valid() {
		return fmt.Errorf("unknown preprocessing type %q", c.Preprocess)
	}
	if c.Scale < 1.0 {
		return fmt.Errorf("scale %.2f below 1.0", c.Scale)
	}
	if c.PSM < 0 || c.PSM > 13 {
		return fmt.Errorf("page segmentation mode %d out of range", c.PSM)
	}
	if c.OEM < 0 || c.OEM > 3 {
		return fmt.Errorf("operating mode %d out of range", c.OEM)
	}
	return nil
}

// Thresholds holds the strategy's tunable decision bands.
type Thresholds struct {
	SharpnessLow    float64
	SharpnessMedium float64
	SharpnessHigh   float64
	ContrastLow     float64
	ContrastMedium  float64
	ContrastHigh    float64

	// Progressive upscale bands for blur-dominant pages: sharpness below
	// ScaleBandHeavy gets ScaleHeavy, below ScaleBandMedium gets ScaleMedium,
	// otherwise ScaleLight.
	ScaleBandHeavy  float64
	ScaleBandMedium float64
	ScaleHeavy      float64
	ScaleMedium     float64
	ScaleLight      float64
}

// DefaultThresholds returns conservative decision bands: grayscale-only
// handling unless degradation is measurable.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SharpnessLow:    50,
		SharpnessMedium: 90,
		SharpnessHigh:   150,
		ContrastLow:     0.30,
		ContrastMedium:  0.45,
		ContrastHigh:    0.55,
		ScaleBandHeavy:  35,
		ScaleBandMedium: 50,
		ScaleHeavy:      1.5,
		ScaleMedium:     1.3,
		ScaleLight:      1.2,
	}
}

// rule is one entry of the ordered decision table. Rules are evaluated
// top-to-bottom with first-match-wins semantics so each can be audited and
// tested on its own.
type rule struct {
	name    string
	matches func(lt layout.Type, m quality.Metrics, t Thresholds) bool
	config  func(lt layout.Type, m quality.Metrics, t Thresholds) EngineConfig
}

// Strategy maps (layout type, quality metrics) to an EngineConfig. Pure and
// deterministic: identical inputs always yield identical configs, which the
// recognition cache key depends on.
type Strategy struct {
	thresholds Thresholds
	rules      []rule
}

// NewStrategy creates the decision table with the given thresholds.
func NewStrategy(t Thresholds) *Strategy {
	if t.SharpnessHigh == 0 {
		t = DefaultThresholds()
	}
	return &Strategy{thresholds: t, rules: decisionTable()}
}

// Decide selects the engine configuration for a page. Total: the final rule
// is a catch-all, so every input maps to a valid config.
func (s *Strategy) Decide(lt layout.Type, m quality.Metrics) EngineConfig {
	for _, r := range s.rules {
		if r.matches(lt, m, s.thresholds) {
			return r.config(lt, m, s.thresholds)
		}
	}
	// Unreachable: the table ends with a catch-all.
	return EngineConfig{Preprocess: preprocess.TypeMinimal, Scale: 1.0, PSM: 3, OEM: 2}
}

// RuleNames lists the decision table in evaluation order.
func (s *Strategy) RuleNames() []string {
	names := make([]string, len(s.rules))
	for i, r := range s.rules {
		names[i] = r.name
	}
	return names
}

func decisionTable() []rule {
	return []rule{
		{
			// Complex layouts get the conservative high-fidelity mode
			// regardless of quality: segmentation mistakes there cost more
			// than a slower pass.
			name: "complex-layout",
			matches: func(lt layout.Type, _ quality.Metrics, _ Thresholds) bool {
				return lt == layout.TypeComplex
			},
			config: func(_ layout.Type, _ quality.Metrics, _ Thresholds) EngineConfig {
				return EngineConfig{Preprocess: preprocess.TypeBalanced, Scale: 1.2, PSM: 6, OEM: 3}
			},
		},
		{
			// Strong clean-digital evidence: cheapest plan, smallest scale,
			// fast operating mode.
			name: "clean-digital",
			matches: func(_ layout.Type, m quality.Metrics, t Thresholds) bool {
				return m.CleanDigital && m.Sharpness >= t.SharpnessHigh && m.Contrast >= t.ContrastHigh
			},
			config: func(lt layout.Type, _ quality.Metrics, _ Thresholds) EngineConfig {
				return EngineConfig{Preprocess: preprocess.TypeMinimal, Scale: 1.0, PSM: psmForLayout(lt), OEM: 1}
			},
		},
		{
			// Blur clearly dominates contrast problems: heavy correction and
			// progressive upscaling.
			name: "blur-dominant",
			matches: func(_ layout.Type, m quality.Metrics, t Thresholds) bool {
				blurScore := max(0, t.SharpnessLow-m.Sharpness)
				contrastScore := max(0, t.ContrastLow-m.Contrast)
				return blurScore > contrastScore && m.Sharpness < t.SharpnessMedium
			},
			config: func(_ layout.Type, m quality.Metrics, t Thresholds) EngineConfig {
				scale := t.ScaleLight
				switch {
				case m.Sharpness < t.ScaleBandHeavy:
					scale = t.ScaleHeavy
				case m.Sharpness < t.ScaleBandMedium:
					scale = t.ScaleMedium
				}
				return EngineConfig{Preprocess: preprocess.TypeAggressive, Scale: scale, PSM: 6, OEM: 3}
			},
		},
		{
			// Low contrast: global binarization restores separation; sparse
			// segmentation for multi-column pages.
			name: "low-contrast",
			matches: func(_ layout.Type, m quality.Metrics, t Thresholds) bool {
				return m.Contrast < t.ContrastMedium
			},
			config: func(lt layout.Type, _ quality.Metrics, _ Thresholds) EngineConfig {
				psm := 11
				if lt == layout.TypeSingle {
					psm = 3
				}
				return EngineConfig{Preprocess: preprocess.TypeBalanced, Scale: 1.2, PSM: psm, OEM: 2}
			},
		},
		{
			name: "default",
			matches: func(layout.Type, quality.Metrics, Thresholds) bool {
				return true
			},
			config: func(lt layout.Type, _ quality.Metrics, _ Thresholds) EngineConfig {
				return EngineConfig{Preprocess: preprocess.TypeMinimal, Scale: 1.0, PSM: psmForLayout(lt), OEM: 2}
			},
		},
	}
}

func psmForLayout(lt layout.Type) int {
	if lt == layout.TypeSingle {
		return 3
	}
	return 4
}
