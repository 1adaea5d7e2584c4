// Package engine wraps an external recognition engine with model-profile
// selection, a progressive parameter-fallback ladder, and a bounded result
// cache.
package engine

import (
	"context"
	"image"
)

// Profile selects the recognizer model family, trading completeness for
// latency.
type Profile string

const (
	ProfileFast     Profile = "fast"
	ProfileStandard Profile = "standard"
	ProfileBest     Profile = "best"
)

// Valid reports whether p names a known model profile.
func (p Profile) Valid() bool {
	switch p {
	case ProfileFast, ProfileStandard, ProfileBest:
		return true
	}
	return false
}

// ProfileForOEM maps an engine operating mode to a model profile: legacy and
// fast modes use the fast models, the best mode uses the full ones.
func ProfileForOEM(oem int) Profile {
	switch oem {
	case 0, 1:
		return ProfileFast
	case 3:
		return ProfileBest
	default:
		return ProfileStandard
	}
}

// Params are the engine parameters for a single recognition attempt.
type Params struct {
	PSM     int     `json:"psm"`
	OEM     int     `json:"oem"`
	Profile Profile `json:"profile"`
}

// Observation is the raw output of one engine invocation.
type Observation struct {
	Text       string  // recognized text
	Confidence float64 // mean word confidence in [0,100]
}

// Engine is the capability interface over the underlying recognizer. The
// managed wrapper is its sole caller in the pipeline.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, params Params) (Observation, error)
}
