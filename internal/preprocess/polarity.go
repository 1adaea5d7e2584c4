package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

// polarityMeanThreshold is the mean luminance below which a page is treated
// as light-text-on-dark-background. Printed pages are predominantly white;
// a mostly dark page almost always means inverted polarity.
const polarityMeanThreshold = 100.0

// Polarity detects light-text-on-dark-background pages and inverts them so
// the rest of the chain can assume dark ink on a light background. Pages with
// normal polarity pass through on a fresh buffer.
func Polarity(img image.Image) image.Image {
	g := toGray(img)
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return img
	}

	var sum uint64
	for y := range b.Dy() {
		for x := range b.Dx() {
			sum += uint64(g.Pix[y*g.Stride+x])
		}
	}
	mean := float64(sum) / float64(total)
	if mean >= polarityMeanThreshold {
		return imaging.Clone(img)
	}
	return imaging.Invert(img)
}
