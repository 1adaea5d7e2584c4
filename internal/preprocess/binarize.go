package preprocess

import (
	"image"
)

// BinarizeOtsu applies global Otsu thresholding. Assumes grayscale input
// (earlier chain steps guarantee this); color input is converted first.
// Idempotent: a black-and-white image thresholds to itself.
func BinarizeOtsu(img image.Image) image.Image {
	g := toGray(img)
	threshold := otsuThreshold(g)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	for y := range h {
		for x := range w {
			if g.Pix[y*g.Stride+x] > threshold {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// BinarizeAdaptive thresholds each pixel against the mean of its local block
// minus a constant. Handles uneven illumination that defeats a global
// threshold.
func BinarizeAdaptive(img image.Image, blockSize, c int) image.Image {
	if blockSize <= 1 || blockSize%2 == 0 {
		blockSize = 29
	}
	g := toGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)

	radius := blockSize / 2
	sums, sw, sh := integralImage(g)
	for y := range h {
		for x := range w {
			mean := boxMean(sums, sw, sh, x, y, radius)
			if float64(g.Pix[y*g.Stride+x]) > mean-float64(c) {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}

// otsuThreshold picks the threshold minimizing intra-class variance over the
// 256-bin luminance histogram.
func otsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	total := w * h
	if total == 0 {
		return 127
	}
	for y := range h {
		for x := range w {
			hist[g.Pix[y*g.Stride+x]]++
		}
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * float64(n)
	}

	var (
		sumBg, wBg  float64
		bestBetween float64
		best        = 127
	)
	for t := range 256 {
		wBg += float64(hist[t])
		if wBg == 0 {
			continue
		}
		wFg := float64(total) - wBg
		if wFg == 0 {
			break
		}
		sumBg += float64(t) * float64(hist[t])
		meanBg := sumBg / wBg
		meanFg := (sumAll - sumBg) / wFg
		between := wBg * wFg * (meanBg - meanFg) * (meanBg - meanFg)
		if between > bestBetween {
			bestBetween = between
			best = t
		}
	}
	return uint8(best)
}
