package preprocess

import (
	"image"

	"github.com/disintegration/imaging"
)

const (
	cropInkLevel     = 160   // luminance below this counts as page content
	cropMaxCoverage  = 0.97  // skip when the content box is nearly the full page
	cropMinInkPixels = 16    // fewer ink pixels than this means a blank page
)

// SmartCrop removes empty margins by cropping to the ink bounding box plus a
// margin. Blank pages and pages whose content already fills the frame pass
// through unchanged.
func SmartCrop(img image.Image, marginPx int) image.Image {
	g := toGray(img)
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}

	minX, minY := w, h
	maxX, maxY := -1, -1
	inkCount := 0
	for y := range h {
		for x := range w {
			if g.Pix[y*g.Stride+x] < cropInkLevel {
				inkCount++
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if inkCount < cropMinInkPixels || maxX < 0 {
		return img
	}

	minX -= marginPx
	minY -= marginPx
	maxX += marginPx
	maxY += marginPx
	if minX < 0 {
		minX = 0
	}
	if minY < 0 {
		minY = 0
	}
	if maxX >= w {
		maxX = w - 1
	}
	if maxY >= h {
		maxY = h - 1
	}

	boxW, boxH := maxX-minX+1, maxY-minY+1
	if float64(boxW*boxH) >= cropMaxCoverage*float64(w*h) {
		return img
	}
	rect := image.Rect(b.Min.X+minX, b.Min.Y+minY, b.Min.X+maxX+1, b.Min.Y+maxY+1)
	return imaging.Crop(img, rect)
}
