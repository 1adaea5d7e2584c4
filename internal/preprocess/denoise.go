package preprocess

import (
	"image"
	"math"
	"sort"
)

// Denoise applies the filter selected by the plan. Unknown methods fall back
// to the median filter, the safest choice for scanned text.
func Denoise(img image.Image, method DenoiseMethod) image.Image {
	switch method {
	case DenoiseBilateral:
		return denoiseBilateral(img)
	case DenoiseBox:
		return denoiseBox(img)
	default:
		return denoiseMedian(img)
	}
}

// denoiseMedian replaces each pixel with the median of its 3x3 neighborhood.
// Removes salt-and-pepper scanner noise without blurring stroke edges.
func denoiseMedian(img image.Image) image.Image {
	g := toGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	copy(out.Pix, g.Pix)

	window := make([]uint8, 0, 9)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, g.Pix[(y+dy)*g.Stride+(x+dx)])
				}
			}
			sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })
			out.Pix[y*out.Stride+x] = window[4]
		}
	}
	return out
}

// denoiseBilateral smooths flat regions while keeping edges: neighbor weights
// fall off with both spatial distance and intensity difference.
func denoiseBilateral(img image.Image) image.Image {
	const (
		radius     = 2
		sigmaSpace = 2.0
		sigmaColor = 30.0
	)
	g := toGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	copy(out.Pix, g.Pix)

	// Precomputed spatial kernel
	size := 2*radius + 1
	spatial := make([]float64, size*size)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[(dy+radius)*size+(dx+radius)] = math.Exp(-d2 / (2 * sigmaSpace * sigmaSpace))
		}
	}

	for y := radius; y < h-radius; y++ {
		for x := radius; x < w-radius; x++ {
			center := float64(g.Pix[y*g.Stride+x])
			var weightSum, valueSum float64
			for dy := -radius; dy <= radius; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					v := float64(g.Pix[(y+dy)*g.Stride+(x+dx)])
					diff := v - center
					wgt := spatial[(dy+radius)*size+(dx+radius)] *
						math.Exp(-(diff*diff)/(2*sigmaColor*sigmaColor))
					weightSum += wgt
					valueSum += wgt * v
				}
			}
			out.Pix[y*out.Stride+x] = clampByte(valueSum / weightSum)
		}
	}
	return out
}

// denoiseBox is a plain 3x3 mean filter.
func denoiseBox(img image.Image) image.Image {
	g := toGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(b)
	copy(out.Pix, g.Pix)

	sums, sw, sh := integralImage(g)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			out.Pix[y*out.Stride+x] = clampByte(boxMean(sums, sw, sh, x, y, 1))
		}
	}
	return out
}
