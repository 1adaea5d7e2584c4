package preprocess

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Grayscale converts the image to a single-channel luminance image.
// Idempotent for grayscale input; always returns a new buffer.
func Grayscale(img image.Image) image.Image {
	return toGray(img)
}

// toGray produces an *image.Gray copy of the input.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		out := image.NewGray(g.Bounds())
		copy(out.Pix, g.Pix)
		return out
	}
	src := imaging.Grayscale(img)
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// NRGBA from imaging.Grayscale has R==G==B
			i := src.PixOffset(x, y)
			out.SetGray(x, y, color.Gray{Y: src.Pix[i]})
		}
	}
	return out
}

// integralImage computes summed-area sums over a gray plane so any
// rectangular mean can be read in constant time. sums has (w+1)*(h+1)
// entries; sums[(y+1)*(w+1)+x+1] is the sum of the rectangle [0,0)-(x,y].
func integralImage(g *image.Gray) ([]uint64, int, int) {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	sums := make([]uint64, (w+1)*(h+1))
	for y := range h {
		var rowSum uint64
		for x := range w {
			rowSum += uint64(g.Pix[y*g.Stride+x])
			sums[(y+1)*(w+1)+x+1] = sums[y*(w+1)+x+1] + rowSum
		}
	}
	return sums, w, h
}

// boxMean reads the mean luminance of the clamped box centered at (x, y).
func boxMean(sums []uint64, w, h, x, y, radius int) float64 {
	x0, y0 := x-radius, y-radius
	x1, y1 := x+radius+1, y+radius+1
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > w {
		x1 = w
	}
	if y1 > h {
		y1 = h
	}
	area := (x1 - x0) * (y1 - y0)
	if area <= 0 {
		return 0
	}
	sum := sums[y1*(w+1)+x1] - sums[y0*(w+1)+x1] - sums[y1*(w+1)+x0] + sums[y0*(w+1)+x0]
	return float64(sum) / float64(area)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
