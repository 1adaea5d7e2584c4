// Package quality computes cheap image-quality metrics used to pick a
// recognition strategy before any preprocessing runs.
package quality

import (
	"image"
)

// Bucket is a coarse qualitative classification of a page image.
type Bucket string

const (
	BucketExcellent Bucket = "excellent"
	BucketGood      Bucket = "good"
	BucketFair      Bucket = "fair"
	BucketPoor      Bucket = "poor"
)

// Metrics holds the quality signals computed for one page image.
// Immutable once returned; derived solely from the image.
type Metrics struct {
	Sharpness    float64 `json:"sharpness"`     // Laplacian variance, >= 0
	Contrast     float64 `json:"contrast"`      // Michelson ratio in [0,1]
	Score        float64 `json:"quality_score"` // weighted composite in [0,1]
	Bucket       Bucket  `json:"bucket"`
	CleanDigital bool    `json:"clean_digital"` // strong evidence of a digital-born page
}

// Config holds the tunable constants of the assessor. Thresholds are
// configuration, not per-call arguments.
type Config struct {
	SharpnessRef    float64 // sharpness value normalized to 1.0 in the composite score
	SharpnessWeight float64
	ContrastWeight  float64
	ExcellentScore  float64 // bucket ladder over Score, descending
	GoodScore       float64
	FairScore       float64
	CleanSharpness  float64 // both must hold for CleanDigital
	CleanContrast   float64
	SampleStride    int // pixel stride for large pages (0 = auto)
}

// DefaultConfig returns assessor defaults tuned for 150-300 DPI document pages.
func DefaultConfig() Config {
	return Config{
		SharpnessRef:    300.0,
		SharpnessWeight: 0.6,
		ContrastWeight:  0.4,
		ExcellentScore:  0.80,
		GoodScore:       0.60,
		FairScore:       0.35,
		CleanSharpness:  150.0,
		CleanContrast:   0.55,
		SampleStride:    0,
	}
}

// Assessor computes Metrics from raw page images. Stateless and safe for
// concurrent use.
type Assessor struct {
	cfg Config
}

// NewAssessor creates an assessor with the given configuration.
func NewAssessor(cfg Config) *Assessor {
	if cfg.SharpnessRef <= 0 {
		cfg.SharpnessRef = DefaultConfig().SharpnessRef
	}
	return &Assessor{cfg: cfg}
}

// Assess computes quality metrics for the image. It is total: nil or
// degenerate images (uniform color, zero variance) map to the lowest bucket
// rather than erroring, since assessment runs before any input validation.
func (a *Assessor) Assess(img image.Image) Metrics {
	if img == nil {
		return Metrics{Bucket: BucketPoor}
	}
	lum, w, h := luminancePlane(img, a.cfg.SampleStride)
	if w < 3 || h < 3 {
		return Metrics{Bucket: BucketPoor}
	}

	sharpness := laplacianVariance(lum, w, h)
	contrast := michelsonContrast(lum)

	norm := sharpness / a.cfg.SharpnessRef
	if norm > 1.0 {
		norm = 1.0
	}
	score := a.cfg.SharpnessWeight*norm + a.cfg.ContrastWeight*contrast

	return Metrics{
		Sharpness:    sharpness,
		Contrast:     contrast,
		Score:        score,
		Bucket:       a.bucketFor(score),
		CleanDigital: sharpness >= a.cfg.CleanSharpness && contrast >= a.cfg.CleanContrast,
	}
}

func (a *Assessor) bucketFor(score float64) Bucket {
	switch {
	case score >= a.cfg.ExcellentScore:
		return BucketExcellent
	case score >= a.cfg.GoodScore:
		return BucketGood
	case score >= a.cfg.FairScore:
		return BucketFair
	default:
		return BucketPoor
	}
}

// luminancePlane extracts a (possibly subsampled) grayscale plane.
// Stride auto-selection keeps the sampled grid near 1024px on the long edge
// so assessment stays within a few milliseconds per page.
func luminancePlane(img image.Image, stride int) ([]uint8, int, int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0
	}
	if stride <= 0 {
		longest := width
		if height > longest {
			longest = height
		}
		stride = 1 + longest/1024
	}

	sw := (width + stride - 1) / stride
	sh := (height + stride - 1) / stride
	plane := make([]uint8, sw*sh)

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stride {
		for x := bounds.Min.X; x < bounds.Max.X; x += stride {
			r, g, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma from 16-bit channels
			lum := (299*(r>>8) + 587*(g>>8) + 114*(b>>8)) / 1000
			plane[i] = uint8(lum)
			i++
		}
	}
	return plane, sw, sh
}

// laplacianVariance measures edge energy with a 4-neighbor Laplacian kernel.
// Higher values mean crisper text strokes.
func laplacianVariance(lum []uint8, w, h int) float64 {
	n := (w - 2) * (h - 2)
	if n <= 0 {
		return 0
	}
	responses := make([]float64, 0, n)
	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := float64(lum[y*w+x])
			lap := float64(lum[(y-1)*w+x]) + float64(lum[(y+1)*w+x]) +
				float64(lum[y*w+x-1]) + float64(lum[y*w+x+1]) - 4*c
			responses = append(responses, lap)
			sum += lap
		}
	}
	mean := sum / float64(n)
	var variance float64
	for _, v := range responses {
		d := v - mean
		variance += d * d
	}
	return variance / float64(n)
}

// michelsonContrast is (max-min)/(max+min) over the luminance plane.
// The epsilon guards uniform (all-black) pages.
func michelsonContrast(lum []uint8) float64 {
	if len(lum) == 0 {
		return 0
	}
	minV, maxV := lum[0], lum[0]
	for _, v := range lum {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return (float64(maxV) - float64(minV)) / (float64(maxV) + float64(minV) + 1e-6)
}
