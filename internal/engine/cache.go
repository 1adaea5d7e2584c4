package engine

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/cespare/xxhash/v2"
)

// ImageDigest hashes the pixel content of an image. Equal images of the same
// concrete type always digest identically, so cache keys survive the buffer
// copies made by the preprocessing chain. Gray and NRGBA hash their raw pixel
// buffers directly and therefore digest differently from each other even for
// visually identical content; that only costs a cache miss.
func ImageDigest(img image.Image) uint64 {
	if img == nil {
		return 0
	}
	h := xxhash.New()
	b := img.Bounds()

	var dims [16]byte
	binary.LittleEndian.PutUint64(dims[0:8], uint64(int64(b.Dx())))
	binary.LittleEndian.PutUint64(dims[8:16], uint64(int64(b.Dy())))
	_, _ = h.Write(dims[:])

	switch src := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[(y-b.Min.Y)*src.Stride : (y-b.Min.Y)*src.Stride+b.Dx()]
			_, _ = h.Write(row)
		}
	case *image.NRGBA:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[(y-b.Min.Y)*src.Stride : (y-b.Min.Y)*src.Stride+4*b.Dx()]
			_, _ = h.Write(row)
		}
	default:
		buf := make([]byte, 4*b.Dx())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := 0
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, a := img.At(x, y).RGBA()
				buf[i] = uint8(r >> 8)
				buf[i+1] = uint8(g >> 8)
				buf[i+2] = uint8(bl >> 8)
				buf[i+3] = uint8(a >> 8)
				i += 4
			}
			_, _ = h.Write(buf)
		}
	}
	return h.Sum64()
}

// cacheKey identifies a recognition result by image content and the
// effective engine parameters, so identical work is never repeated.
func cacheKey(digest uint64, params Params, minConfidence float64) string {
	return fmt.Sprintf("%016x|psm=%d|oem=%d|profile=%s|mc=%.2f",
		digest, params.PSM, params.OEM, params.Profile, minConfidence)
}
