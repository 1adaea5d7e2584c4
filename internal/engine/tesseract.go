package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"path/filepath"

	"github.com/otiai10/gosseract/v2"
)

// TesseractConfig configures the Tesseract-backed engine variant.
type TesseractConfig struct {
	TessdataDir string             // base traineddata directory ("" = system default)
	Languages   string             // e.g. "eng" or "por+eng"
	ProfileDirs map[Profile]string // optional tessdata subdirectory per model profile
}

// DefaultTesseractConfig returns defaults using the system tessdata and
// English models for every profile.
func DefaultTesseractConfig() TesseractConfig {
	return TesseractConfig{
		TessdataDir: "",
		Languages:   "eng",
		ProfileDirs: nil,
	}
}

// Tesseract is the real recognition engine variant. Each call builds its own
// client, so the engine is safe for concurrent page workers.
type Tesseract struct {
	cfg TesseractConfig
}

// NewTesseract creates the Tesseract engine variant.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.Languages == "" {
		cfg.Languages = "eng"
	}
	return &Tesseract{cfg: cfg}
}

// Recognize runs one Tesseract pass with the given parameters and reports
// the text alongside the mean word confidence.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, params Params) (Observation, error) {
	if err := ctx.Err(); err != nil {
		return Observation{}, err
	}
	if img == nil {
		return Observation{}, fmt.Errorf("nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Observation{}, fmt.Errorf("encode image for recognition: %w", err)
	}

	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if dir := t.tessdataFor(params.Profile); dir != "" {
		if err := client.SetTessdataPrefix(dir); err != nil {
			return Observation{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.cfg.Languages); err != nil {
		return Observation{}, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(params.PSM)); err != nil {
		return Observation{}, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return Observation{}, fmt.Errorf("set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return Observation{}, fmt.Errorf("tesseract recognition: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		// Text extraction succeeded; degrade to zero confidence rather than
		// failing the attempt.
		return Observation{Text: text}, nil
	}
	var sum float64
	count := 0
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		sum += b.Confidence
		count++
	}
	obs := Observation{Text: text}
	if count > 0 {
		obs.Confidence = sum / float64(count)
	}
	return obs, nil
}

// tessdataFor resolves the traineddata directory for a model profile.
// Operating-mode selection maps to the model family on disk: legacy and fast
// profiles use the fast models, the best profile uses the full ones.
func (t *Tesseract) tessdataFor(profile Profile) string {
	if t.cfg.ProfileDirs != nil {
		if dir, ok := t.cfg.ProfileDirs[profile]; ok && dir != "" {
			return dir
		}
	}
	if t.cfg.TessdataDir == "" {
		return ""
	}
	return filepath.Clean(t.cfg.TessdataDir)
}
