package layout

import (
	"errors"
	"image"
)

// ProjectionConfig tunes the ink-projection column detector.
type ProjectionConfig struct {
	InkThreshold   uint8   // luminance below this counts as ink
	ValleyFraction float64 // column gap must stay below this fraction of peak ink
	MinValleyWidth float64 // gap width as a fraction of page width
	SampleStride   int     // pixel stride (0 = auto)
}

// DefaultProjectionConfig returns detector defaults for printed documents.
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		InkThreshold:   128,
		ValleyFraction: 0.08,
		MinValleyWidth: 0.03,
		SampleStride:   0,
	}
}

// ProjectionDetector classifies single/double/complex layouts from the
// vertical ink projection of the page. A wide low-ink valley near the page
// center indicates a two-column layout; several valleys indicate a complex
// one.
type ProjectionDetector struct {
	cfg ProjectionConfig
}

// NewProjectionDetector creates a projection-based layout detector.
func NewProjectionDetector(cfg ProjectionConfig) *ProjectionDetector {
	if cfg.InkThreshold == 0 {
		cfg = DefaultProjectionConfig()
	}
	return &ProjectionDetector{cfg: cfg}
}

// Detect classifies the page and returns the column regions.
func (d *ProjectionDetector) Detect(img image.Image) (Result, error) {
	if img == nil {
		return Result{}, errors.New("nil image")
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width < 8 || height < 8 {
		return Result{Type: TypeSingle, Regions: fullPage(bounds)}, nil
	}

	stride := d.cfg.SampleStride
	if stride <= 0 {
		stride = 1 + height/512
	}

	// Vertical ink projection: count of dark pixels per column.
	proj := make([]int, width)
	peak := 0
	for x := range width {
		count := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
			r, g, b, _ := img.At(bounds.Min.X+x, y).RGBA()
			lum := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
			if uint8(lum) < d.cfg.InkThreshold {
				count++
			}
		}
		proj[x] = count
		if count > peak {
			peak = count
		}
	}
	if peak == 0 {
		// Blank page: treat as single column.
		return Result{Type: TypeSingle, Regions: fullPage(bounds)}, nil
	}

	valleys := d.findValleys(proj, peak, width)
	switch len(valleys) {
	case 0:
		return Result{Type: TypeSingle, Regions: fullPage(bounds)}, nil
	case 1:
		mid := valleys[0]
		return Result{
			Type: TypeDouble,
			Regions: []Region{
				{X: bounds.Min.X, Y: bounds.Min.Y, W: mid, H: height},
				{X: bounds.Min.X + mid, Y: bounds.Min.Y, W: width - mid, H: height},
			},
		}, nil
	default:
		return Result{Type: TypeComplex, Regions: fullPage(bounds)}, nil
	}
}

// findValleys returns the center of each interior low-ink gap wide enough to
// separate columns. Only gaps bounded by ink on both sides count, so page
// margins around a centered text block are never mistaken for column gaps.
func (d *ProjectionDetector) findValleys(proj []int, peak, width int) []int {
	threshold := int(float64(peak) * d.cfg.ValleyFraction)
	minWidth := int(float64(width) * d.cfg.MinValleyWidth)
	if minWidth < 1 {
		minWidth = 1
	}
	margin := width / 10

	var valleys []int
	seenInk := false
	start := -1
	for x := margin; x < width-margin; x++ {
		if proj[x] <= threshold {
			if start < 0 && seenInk {
				start = x
			}
			continue
		}
		if start >= 0 && x-start >= minWidth {
			valleys = append(valleys, start+(x-start)/2)
		}
		seenInk = true
		start = -1
	}
	return valleys
}

func fullPage(b image.Rectangle) []Region {
	return []Region{{X: b.Min.X, Y: b.Min.Y, W: b.Dx(), H: b.Dy()}}
}
