package preprocess

import (
	"image"
)

// RemoveShadow normalizes local contrast against an estimated background.
// The background is the wide-window box mean of the page; dividing each pixel
// by its background flattens illumination gradients and scanner shadows while
// preserving ink strokes.
func RemoveShadow(img image.Image) image.Image {
	g := toGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return g
	}

	radius := w / 8
	if r := h / 8; r < radius {
		radius = r
	}
	if radius < 8 {
		radius = 8
	}

	sums, sw, sh := integralImage(g)
	out := image.NewGray(b)
	for y := range h {
		for x := range w {
			bg := boxMean(sums, sw, sh, x, y, radius)
			if bg < 1 {
				bg = 1
			}
			v := float64(g.Pix[y*g.Stride+x]) / bg * 255.0
			out.Pix[y*out.Stride+x] = clampByte(v)
		}
	}
	return out
}
