// Package ingest turns input files into ordered sequences of raster pages
// with source metadata, enforcing resource limits before any page work
// begins.
package ingest

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Run-level errors surfaced before any page is processed.
var (
	ErrPageLimit = errors.New("document exceeds the configured page limit")
	ErrFileSize  = errors.New("file exceeds the configured size limit")
)

// Page is one raster page of a document, 1-based.
type Page struct {
	Number int
	Image  image.Image
}

// FileMetadata identifies the source file of a document.
type FileMetadata struct {
	Name      string `json:"name"`
	Hash      string `json:"hash"`
	SizeBytes int64  `json:"size_bytes"`
	PageCount int    `json:"page_count"`
}

// Document is an ordered sequence of pages plus source metadata.
type Document struct {
	Meta  FileMetadata
	Pages []Page
}

// Limits bound the work accepted for a single run. Zero values disable the
// corresponding check.
type Limits struct {
	MaxPages    int
	MaxFileSize int64
}

// DefaultLimits returns the default ingestion limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPages:    500,
		MaxFileSize: 256 << 20,
	}
}

// check validates a candidate document against the limits. Violations are
// fatal for the whole run.
func (l Limits) check(sizeBytes int64, pageCount int) error {
	if l.MaxFileSize > 0 && sizeBytes > l.MaxFileSize {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileSize, sizeBytes, l.MaxFileSize)
	}
	if l.MaxPages > 0 && pageCount > l.MaxPages {
		return fmt.Errorf("%w: %d pages (limit %d)", ErrPageLimit, pageCount, l.MaxPages)
	}
	return nil
}

// Load reads a document from path, dispatching on the file extension. PDF
// files are split into page images; anything else is decoded as a
// single-page raster image.
func Load(path string, limits Limits) (*Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return LoadPDF(path, limits)
	}
	return LoadImage(path, limits)
}

// LoadImage reads a single raster image file as a one-page document.
func LoadImage(path string, limits Limits) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}
	if err := limits.check(info.Size(), 1); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path) //nolint:gosec // user-provided input path
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}
	img, _, err := image.Decode(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}

	return &Document{
		Meta: FileMetadata{
			Name:      filepath.Base(path),
			Hash:      fmt.Sprintf("%016x", xxhash.Sum64(data)),
			SizeBytes: info.Size(),
			PageCount: 1,
		},
		Pages: []Page{{Number: 1, Image: img}},
	}, nil
}

// FromImages wraps in-memory page images as a document, in the given order.
// Used by callers that render pages themselves.
func FromImages(name string, images []image.Image, limits Limits) (*Document, error) {
	if err := limits.check(0, len(images)); err != nil {
		return nil, err
	}
	pages := make([]Page, 0, len(images))
	digest := xxhash.New()
	for i, img := range images {
		pages = append(pages, Page{Number: i + 1, Image: img})
		_, _ = digest.WriteString(fmt.Sprintf("page-%d", i+1))
	}
	return &Document{
		Meta: FileMetadata{
			Name:      name,
			Hash:      fmt.Sprintf("%016x", digest.Sum64()),
			PageCount: len(images),
		},
		Pages: pages,
	}, nil
}
