// Package testutil provides synthetic page images for tests: rendered text
// with optional rotation, noise, low contrast, and inverted polarity.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// PageConfig holds configuration for generating synthetic page images.
type PageConfig struct {
	Text        string
	Size        ImageSize
	Background  color.Color
	Foreground  color.Color
	FontFace    font.Face
	Rotation    float64 // degrees, counter-clockwise
	NoiseLevel  float64 // fraction of pixels flipped, 0 disables
	NoiseSeed   int64
	Inverted    bool // light text on dark background
	LowContrast bool // narrow the luminance range
	Columns     int  // 0 or 1 renders one block, 2 renders two columns
}

// DefaultPageConfig returns a clean single-column page.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		Text:       "The quick brown fox jumps over the lazy dog",
		Size:       MediumSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
		NoiseSeed:  1,
	}
}

// RenderPage creates a synthetic page image from the configuration.
func RenderPage(cfg PageConfig) image.Image {
	bg, fg := cfg.Background, cfg.Foreground
	if cfg.LowContrast {
		bg = color.Gray{Y: 150}
		fg = color.Gray{Y: 110}
	}
	if cfg.Inverted {
		bg, fg = fg, bg
	}

	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)

	face := cfg.FontFace
	if face == nil {
		face = basicfont.Face7x13
	}
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{fg},
		Face: face,
	}

	if cfg.Columns >= 2 {
		drawColumns(drawer, face, cfg)
	} else {
		drawBlock(drawer, face, cfg.Text, 0, cfg.Size.Width, cfg.Size.Height)
	}

	var out image.Image = img
	if cfg.Rotation != 0 {
		out = imaging.Rotate(img, cfg.Rotation, bg)
	}
	if cfg.NoiseLevel > 0 {
		out = addNoise(out, cfg.NoiseLevel, cfg.NoiseSeed)
	}
	return out
}

// drawBlock renders wrapped lines of text centered in the given horizontal
// band of the image.
func drawBlock(drawer *font.Drawer, face font.Face, text string, x0, x1, height int) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}
	const wordsPerLine = 4
	var lines []string
	for i := 0; i < len(words); i += wordsPerLine {
		end := min(i+wordsPerLine, len(words))
		lines = append(lines, strings.Join(words[i:end], " "))
	}

	lineHeight := face.Metrics().Height.Ceil() + 4
	startY := (height - len(lines)*lineHeight) / 2
	for i, line := range lines {
		y := startY + (i+1)*lineHeight
		textWidth := font.MeasureString(face, line).Ceil()
		x := x0 + (x1-x0-textWidth)/2
		if x < x0 {
			x = x0
		}
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(line)
	}
}

// drawColumns renders the text twice in two column bands separated by a
// wide white gutter, so projection profiles find a valley between them.
func drawColumns(drawer *font.Drawer, face font.Face, cfg PageConfig) {
	gutter := cfg.Size.Width / 10
	colWidth := (cfg.Size.Width - gutter) / 2
	drawBlock(drawer, face, cfg.Text, 0, colWidth, cfg.Size.Height)
	drawBlock(drawer, face, cfg.Text, colWidth+gutter, cfg.Size.Width, cfg.Size.Height)
}

// addNoise flips a deterministic pseudo-random fraction of pixels.
func addNoise(img image.Image, level float64, seed int64) image.Image {
	bounds := img.Bounds()
	noisy := image.NewRGBA(bounds)
	draw.Draw(noisy, bounds, img, bounds.Min, draw.Src)

	rng := rand.New(rand.NewSource(seed))
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if rng.Float64() >= level {
				continue
			}
			r, g, b, a := noisy.At(x, y).RGBA()
			noisy.Set(x, y, color.RGBA64{
				R: uint16(65535 - r),
				G: uint16(65535 - g),
				B: uint16(65535 - b),
				A: uint16(a),
			})
		}
	}
	return noisy
}

// SolidImage creates a uniform image of the given size and color.
func SolidImage(width, height int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// TextImage renders text on a default page of the given size.
func TextImage(text string, width, height int) image.Image {
	cfg := DefaultPageConfig()
	cfg.Text = text
	cfg.Size = ImageSize{Width: width, Height: height}
	return RenderPage(cfg)
}
