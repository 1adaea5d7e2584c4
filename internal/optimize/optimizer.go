package optimize

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/quillscan/quillscan/internal/layout"
	"github.com/quillscan/quillscan/internal/preprocess"
	"github.com/quillscan/quillscan/internal/quality"
)

// Optimizer composes the strategy, the preprocessing chain, and upscaling
// into a ready-to-recognize image. One-shot and deterministic: it owns no
// cache and no retry logic.
type Optimizer struct {
	strategy *Strategy
}

// NewOptimizer creates an optimizer over the given strategy.
func NewOptimizer(strategy *Strategy) *Optimizer {
	if strategy == nil {
		strategy = NewStrategy(DefaultThresholds())
	}
	return &Optimizer{strategy: strategy}
}

// FindOptimalConfig decides the engine configuration for the page, applies
// the derived preprocessing plan, and upscales when configured. It returns
// both the processed image and the config so downstream stages can record
// exactly what was used.
func (o *Optimizer) FindOptimalConfig(
	img image.Image,
	layoutType layout.Type,
	metrics quality.Metrics,
) (image.Image, EngineConfig) {
	cfg := o.strategy.Decide(layoutType, metrics)
	plan := preprocess.PlanFor(cfg.Preprocess)
	processed := preprocess.Apply(img, plan)
	processed = Upscale(processed, cfg.Scale)
	return processed, cfg
}

// Upscale resamples the image by the given factor. Pure resampling, not a
// correction step; factors at or below 1.0 return the input untouched.
func Upscale(img image.Image, scale float64) image.Image {
	if img == nil || scale <= 1.0 {
		return img
	}
	b := img.Bounds()
	w := int(float64(b.Dx()) * scale)
	h := int(float64(b.Dy()) * scale)
	if w <= 0 || h <= 0 {
		return img
	}
	return imaging.Resize(img, w, h, imaging.CatmullRom)
}
