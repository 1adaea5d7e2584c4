// Package layout classifies the column structure of a page image. The core
// pipeline consumes layout results read-only; detection itself is pluggable.
package layout

import "image"

// Type classifies the column structure of a page.
type Type string

const (
	TypeUnknown Type = "unknown"
	TypeSingle  Type = "single"
	TypeDouble  Type = "double"
	TypeComplex Type = "complex"
)

// Region is a bounding box in page pixel coordinates.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Result is the layout classification for one page.
type Result struct {
	Type    Type     `json:"layout_type"`
	Regions []Region `json:"regions"`
}

// Detector produces a layout classification for a page image.
type Detector interface {
	Detect(img image.Image) (Result, error)
}

// StaticDetector always returns a fixed result. Used for deterministic tests
// and for callers that supply layout information out of band.
type StaticDetector struct {
	Result Result
}

// Detect returns the configured result. When no regions are set, the full
// image bounds are emitted as a single region.
func (d StaticDetector) Detect(img image.Image) (Result, error) {
	res := d.Result
	if res.Type == "" {
		res.Type = TypeSingle
	}
	if len(res.Regions) == 0 && img != nil {
		b := img.Bounds()
		res.Regions = []Region{{X: b.Min.X, Y: b.Min.Y, W: b.Dx(), H: b.Dy()}}
	}
	return res, nil
}
