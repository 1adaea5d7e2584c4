package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillscan/quillscan/internal/ingest"
	"github.com/quillscan/quillscan/internal/quality"
)

// Statistics summarizes a whole document run. The weighted mean confidence
// weights each page by its word count so empty pages cannot mask bad ones.
type Statistics struct {
	TotalPages         int                    `json:"total_pages"`
	FailedPages        int                    `json:"failed_pages"`
	TotalWords         int                    `json:"total_words"`
	TotalCharacters    int                    `json:"total_characters"`
	MeanConfidence     float64                `json:"mean_confidence"`
	WeightedConfidence float64                `json:"weighted_confidence"`
	QualityBuckets     map[quality.Bucket]int `json:"quality_buckets"`
	WallTime           time.Duration          `json:"wall_time_ns"`
	PagesPerSecond     float64                `json:"pages_per_second"`
}

// ProcessDocument runs the full pipeline over a document. Only run-level
// problems (empty document, context errors) surface as errors; individual
// page failures are recorded in the output.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc *ingest.Document) (*OCROutput, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, errors.New("document has no pages")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	results := p.processPages(ctx, doc.Pages)
	stats := buildStatistics(results, time.Since(start))

	documentsProcessedTotal.Inc()
	return newOCROutput(doc.Meta, results, stats, p.cfg.LLMThreshold), nil
}

// ProcessFile loads the file at path and processes it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*OCROutput, error) {
	doc, err := ingest.Load(path, p.cfg.Limits)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return p.ProcessDocument(ctx, doc)
}

func buildStatistics(results []PageResult, wall time.Duration) Statistics {
	stats := Statistics{
		TotalPages:     len(results),
		QualityBuckets: make(map[quality.Bucket]int),
		WallTime:       wall,
	}

	var confSum float64
	var weightedSum float64
	succeeded := 0
	for _, r := range results {
		if r.Failed {
			stats.FailedPages++
			continue
		}
		succeeded++
		stats.TotalWords += r.Words
		stats.TotalCharacters += r.Characters
		confSum += r.Confidence
		weightedSum += r.Confidence * float64(r.Words)
		stats.QualityBuckets[r.Quality.Bucket]++
	}

	if succeeded > 0 {
		stats.MeanConfidence = confSum / float64(succeeded)
	}
	if stats.TotalWords > 0 {
		stats.WeightedConfidence = weightedSum / float64(stats.TotalWords)
	} else {
		// No recognized words anywhere; fall back to the unweighted mean so
		// the correction flag still reflects page confidence.
		stats.WeightedConfidence = stats.MeanConfidence
	}
	if wall > 0 {
		stats.PagesPerSecond = float64(len(results)) / wall.Seconds()
	}
	return stats
}

func newRunID() string { return uuid.NewString() }
