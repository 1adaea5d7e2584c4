// Package preprocess implements the ordered, conditionally-applied image
// transform chain that prepares a page for recognition.
package preprocess

import (
	"image"
	"log/slog"
)

// Type identifies a named preprocessing variant selected by the config
// strategy. Each variant maps to a fixed subset of the transform chain.
type Type string

const (
	TypeMinimal    Type = "minimal"
	TypeBalanced   Type = "balanced"
	TypeAggressive Type = "aggressive"
)

// Valid reports whether t names a known preprocessing variant.
func (t Type) Valid() bool {
	switch t {
	case TypeMinimal, TypeBalanced, TypeAggressive:
		return true
	}
	return false
}

// Step names one transform in the chain. The chain order is fixed: each step
// assumes the invariant established by the previous one (binarization assumes
// grayscale input, deskew assumes shadows and noise have been reduced).
type Step string

const (
	StepPolarity  Step = "polarity"
	StepGrayscale Step = "grayscale"
	StepShadow    Step = "shadow"
	StepDenoise   Step = "denoise"
	StepDeskew    Step = "deskew"
	StepCrop      Step = "crop"
	StepBinarize  Step = "binarize"
)

// chainOrder is the only order steps may execute in.
var chainOrder = []Step{
	StepPolarity,
	StepGrayscale,
	StepShadow,
	StepDenoise,
	StepDeskew,
	StepCrop,
	StepBinarize,
}

// DenoiseMethod selects the denoising filter.
type DenoiseMethod string

const (
	DenoiseMedian    DenoiseMethod = "median"
	DenoiseBilateral DenoiseMethod = "bilateral"
	DenoiseBox       DenoiseMethod = "box"
)

// Plan is the ordered subset of transform steps to apply, with their
// parameters. Derived from the selected preprocessing Type; immutable.
type Plan struct {
	Steps   []Step
	Denoise DenoiseMethod

	// Binarization parameters
	Adaptive      bool // adaptive mean threshold instead of global Otsu
	AdaptiveBlock int  // odd block size for adaptive threshold
	AdaptiveC     int  // constant subtracted from the local mean

	// Deskew parameters
	MaxSkewDegrees float64

	// Crop parameters
	CropMarginPx int
}

// Has reports whether the plan includes the given step.
func (p Plan) Has(step Step) bool {
	for _, s := range p.Steps {
		if s == step {
			return true
		}
	}
	return false
}

// PlanFor derives the transform plan for a preprocessing variant.
//
// Skipping steps is a correctness requirement, not an optimization: several
// transforms are lossy and must not run on already-clean input. The minimal
// plan is what lets most digital-born pages bypass heavy correction entirely.
func PlanFor(t Type) Plan {
	base := Plan{
		AdaptiveBlock:  29,
		AdaptiveC:      11,
		MaxSkewDegrees: 15,
		CropMarginPx:   12,
	}
	switch t {
	case TypeBalanced:
		base.Steps = []Step{StepPolarity, StepGrayscale, StepDenoise, StepBinarize}
		base.Denoise = DenoiseMedian
	case TypeAggressive:
		base.Steps = chainOrder
		base.Denoise = DenoiseBilateral
		base.Adaptive = true
	default: // TypeMinimal and anything unrecognized
		base.Steps = []Step{StepGrayscale, StepBinarize}
	}
	return base
}

// Apply runs the plan's steps over the image in the fixed chain order and
// returns the processed image. Every executed transform returns a new buffer;
// the input is never mutated. A transform that cannot establish its result
// (deskew without a reliable angle, crop with an empty content box) falls
// back to a no-op for that step rather than failing the page.
func Apply(img image.Image, plan Plan) image.Image {
	if img == nil {
		return nil
	}
	out := img
	for _, step := range chainOrder {
		if !plan.Has(step) {
			continue
		}
		out = applyStep(out, step, plan)
	}
	return out
}

func applyStep(img image.Image, step Step, plan Plan) image.Image {
	switch step {
	case StepPolarity:
		return Polarity(img)
	case StepGrayscale:
		return Grayscale(img)
	case StepShadow:
		return RemoveShadow(img)
	case StepDenoise:
		return Denoise(img, plan.Denoise)
	case StepDeskew:
		return Deskew(img, plan.MaxSkewDegrees)
	case StepCrop:
		return SmartCrop(img, plan.CropMarginPx)
	case StepBinarize:
		if plan.Adaptive {
			return BinarizeAdaptive(img, plan.AdaptiveBlock, plan.AdaptiveC)
		}
		return BinarizeOtsu(img)
	default:
		slog.Warn("unknown preprocessing step skipped", "step", string(step))
		return img
	}
}
