package ingest

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// LoadPDF splits a PDF into page images and wraps them as a document. Every
// page the PDF declares gets a slot; pages without an extractable raster
// image carry a nil image and fail individually during recognition rather
// than shrinking the document.
func LoadPDF(path string, limits Limits) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input file: %w", err)
	}
	if err := limits.check(info.Size(), 0); err != nil {
		return nil, err
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("count pdf pages: %w", err)
	}
	if err := limits.check(info.Size(), pageCount); err != nil {
		return nil, err
	}

	byPage, err := extractPageImages(path)
	if err != nil {
		return nil, err
	}

	pages := assemblePages(byPage, pageCount)

	data, err := os.ReadFile(path) //nolint:gosec // user-provided input path
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	return &Document{
		Meta: FileMetadata{
			Name:      filepath.Base(path),
			Hash:      fmt.Sprintf("%016x", xxhash.Sum64(data)),
			SizeBytes: info.Size(),
			PageCount: pageCount,
		},
		Pages: pages,
	}, nil
}

// assemblePages lays extracted images into a dense page list covering every
// declared page. Pages with no extracted image keep their slot with a nil
// image so the loss surfaces per page instead of silently.
func assemblePages(byPage map[int]image.Image, pageCount int) []Page {
	pages := make([]Page, 0, pageCount)
	for n := 1; n <= pageCount; n++ {
		pages = append(pages, Page{Number: n, Image: byPage[n]})
	}
	return pages
}

// extractPageImages extracts embedded images from the PDF into a temp
// directory and maps each page to its first image.
func extractPageImages(path string) (map[int]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "quillscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	if err := api.ExtractImagesFile(path, tempDir, nil, nil); err != nil {
		return nil, fmt.Errorf("extract pdf images: %w", err)
	}

	result := make(map[int]image.Image)
	err = filepath.Walk(tempDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		pageNum, err := parsePageFromFilename(info.Name())
		if err != nil {
			return nil
		}
		if _, ok := result[pageNum]; ok {
			return nil
		}
		img, err := loadImageFile(p)
		if err != nil {
			return nil
		}
		result[pageNum] = img
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect extracted images: %w", err)
	}
	return result, nil
}

func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // path produced by pdfcpu in our temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// parsePageFromFilename extracts the page number from a pdfcpu output name
// of the form page_<num>_image_<idx>.<ext>.
func parsePageFromFilename(filename string) (int, error) {
	if !strings.HasPrefix(filename, "page_") {
		return 0, errors.New("not a page file")
	}
	parts := strings.Split(filename, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}
	pageNum, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}
