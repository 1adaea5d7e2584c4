package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	deskewSweepStep   = 0.5   // degrees between candidate angles
	deskewMinAngle    = 0.4   // corrections below this are noise
	deskewScoreMargin = 1.15  // best score must beat the unrotated score by this factor
	deskewThumbWidth  = 400   // scoring runs on a thumbnail for speed
	deskewMinInkFrac  = 0.002 // less ink than this leaves nothing to align
	deskewInkCutoff   = 128   // rotation interpolates binary pixels; mid-gray splits them
)

// Deskew estimates page rotation within ±maxDegrees and corrects it. The
// estimate maximizes the variance of the horizontal ink projection: text
// lines produce the sharpest projection peaks when they are level. When no
// candidate angle clearly beats the unrotated baseline the step is a no-op,
// returning the input unchanged.
func Deskew(img image.Image, maxDegrees float64) image.Image {
	if maxDegrees <= 0 {
		maxDegrees = 15
	}
	thumb := deskewThumbnail(img)
	if thumb == nil {
		return img
	}

	baseline := projectionScore(thumb, 0)
	bestAngle, bestScore := 0.0, baseline
	for angle := -maxDegrees; angle <= maxDegrees; angle += deskewSweepStep {
		if angle > -deskewMinAngle && angle < deskewMinAngle {
			continue
		}
		score := projectionScore(thumb, angle)
		if score > bestScore {
			bestScore = score
			bestAngle = angle
		}
	}

	if bestAngle == 0 || bestScore < baseline*deskewScoreMargin {
		return img
	}
	return imaging.Rotate(img, bestAngle, color.White)
}

// deskewThumbnail downscales the page and binarizes it for scoring. Thin
// strokes wash out toward the background during downscaling, so the ink
// cutoff comes from the thumbnail's own histogram rather than a fixed level.
// Returns nil when the page is too small, carries no measurable ink, or is
// mostly ink (nothing line-shaped to align).
func deskewThumbnail(img image.Image) *image.Gray {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	if b.Dx() < 16 || b.Dy() < 16 {
		return nil
	}
	width := deskewThumbWidth
	if b.Dx() < width {
		width = b.Dx()
	}
	height := b.Dy() * width / b.Dx()
	g := toGray(imaging.Resize(img, width, height, imaging.Box))

	threshold := otsuThreshold(g)
	ink := 0
	for i, v := range g.Pix {
		if v <= threshold {
			g.Pix[i] = 0
			ink++
		} else {
			g.Pix[i] = 255
		}
	}
	frac := float64(ink) / float64(len(g.Pix))
	if frac < deskewMinInkFrac || frac > 0.5 {
		return nil
	}
	return g
}

// projectionScore rotates the thumbnail by angle and returns the variance of
// its per-row ink counts. The rotated image is cropped back to the original
// frame so the white canvas padding added by rotation does not leak into the
// row statistics.
func projectionScore(thumb *image.Gray, angle float64) float64 {
	g := thumb
	if angle != 0 {
		b := thumb.Bounds()
		rotated := imaging.Rotate(thumb, angle, color.White)
		g = toGray(imaging.CropCenter(rotated, b.Dx(), b.Dy()))
	}
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if h == 0 {
		return 0
	}

	rows := make([]float64, h)
	var total float64
	for y := range h {
		var count float64
		for x := range w {
			if g.Pix[y*g.Stride+x] < deskewInkCutoff {
				count++
			}
		}
		rows[y] = count
		total += count
	}
	mean := total / float64(h)
	var variance float64
	for _, c := range rows {
		d := c - mean
		variance += d * d
	}
	return variance / float64(h)
}
