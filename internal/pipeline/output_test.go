package pipeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillscan/quillscan/internal/ingest"
	"github.com/quillscan/quillscan/internal/quality"
)

func samplePages() []PageResult {
	return []PageResult{
		{Page: 1, Text: "first page text", Confidence: 90, Words: 100, Characters: 600,
			Quality: quality.Metrics{Bucket: quality.BucketGood}},
		{Page: 2, Text: "second page text", Confidence: 81, Words: 100, Characters: 620,
			Quality: quality.Metrics{Bucket: quality.BucketFair}},
	}
}

func TestBuildStatisticsWeightedMean(t *testing.T) {
	stats := buildStatistics(samplePages(), time.Second)

	// Equal word counts: weighted mean is (90 + 81) / 2 = 85.5.
	assert.InDelta(t, 85.5, stats.WeightedConfidence, 1e-9)
	assert.InDelta(t, 85.5, stats.MeanConfidence, 1e-9)
	assert.Equal(t, 200, stats.TotalWords)
	assert.Equal(t, 1220, stats.TotalCharacters)
	assert.Equal(t, 1, stats.QualityBuckets[quality.BucketGood])
	assert.Equal(t, 1, stats.QualityBuckets[quality.BucketFair])
}

func TestBuildStatisticsWordWeighting(t *testing.T) {
	pages := []PageResult{
		{Page: 1, Confidence: 100, Words: 300},
		{Page: 2, Confidence: 40, Words: 100},
	}
	stats := buildStatistics(pages, time.Second)

	// (100*300 + 40*100) / 400 = 85; unweighted would be 70.
	assert.InDelta(t, 85.0, stats.WeightedConfidence, 1e-9)
	assert.InDelta(t, 70.0, stats.MeanConfidence, 1e-9)
}

func TestBuildStatisticsFailedPagesExcluded(t *testing.T) {
	pages := []PageResult{
		{Page: 1, Confidence: 90, Words: 50},
		{Page: 2, Failed: true, Error: "boom"},
	}
	stats := buildStatistics(pages, time.Second)

	assert.Equal(t, 1, stats.FailedPages)
	assert.Equal(t, 50, stats.TotalWords)
	assert.InDelta(t, 90.0, stats.WeightedConfidence, 1e-9)
}

func TestBuildStatisticsNoWordsFallsBackToMean(t *testing.T) {
	pages := []PageResult{
		{Page: 1, Confidence: 60, Words: 0},
	}
	stats := buildStatistics(pages, time.Second)
	assert.InDelta(t, 60.0, stats.WeightedConfidence, 1e-9)
}

func TestNeedsLLMCorrectionFlag(t *testing.T) {
	meta := ingest.FileMetadata{Name: "doc.pdf"}
	stats := buildStatistics(samplePages(), time.Second)

	flagged := newOCROutput(meta, samplePages(), stats, 92.0)
	assert.True(t, flagged.NeedsLLMCorrection, "85.5 < 92 must flag correction")

	relaxed := newOCROutput(meta, samplePages(), stats, 80.0)
	assert.False(t, relaxed.NeedsLLMCorrection)
}

func TestOCROutputIdentity(t *testing.T) {
	meta := ingest.FileMetadata{Name: "doc.pdf", Hash: "abc123"}
	out := newOCROutput(meta, samplePages(), buildStatistics(samplePages(), time.Second), 92.0)

	assert.NotEmpty(t, out.RunID)
	assert.False(t, out.CreatedAt.IsZero())
	assert.Equal(t, meta, out.File)
	assert.Equal(t, "first page text\n\nsecond page text", out.FullText)

	other := newOCROutput(meta, samplePages(), buildStatistics(samplePages(), time.Second), 92.0)
	assert.NotEqual(t, out.RunID, other.RunID, "run IDs must be unique")
}

func TestSummaryView(t *testing.T) {
	meta := ingest.FileMetadata{Name: "doc.pdf", Hash: "abc123"}
	out := newOCROutput(meta, samplePages(), buildStatistics(samplePages(), time.Second), 92.0)

	s := out.Summary()
	assert.Equal(t, out.RunID, s.RunID)
	assert.Equal(t, meta, s.File)
	require.Len(t, s.Pages, 2)
	assert.Equal(t, 1, s.Pages[0].Page)
	assert.Len(t, s.Pages[0].TextHash, 16)
	assert.NotEqual(t, s.Pages[0].TextHash, s.Pages[1].TextHash)
	assert.True(t, s.NeedsLLMCorrection)
}

func TestLLMReadyTextFraming(t *testing.T) {
	meta := ingest.FileMetadata{Name: "doc.pdf"}
	out := newOCROutput(meta, samplePages(), buildStatistics(samplePages(), time.Second), 92.0)

	text := out.LLMReadyText()
	assert.True(t, strings.HasPrefix(text, "=== OCR RESULTS - 2 PAGES ==="))
	assert.Contains(t, text, "=== PAGE 1 | Confidence: 90.0% ===")
	assert.Contains(t, text, "=== PAGE 2 | Confidence: 81.0% ===")
	assert.Contains(t, text, "first page text")
	assert.Contains(t, text, "second page text")
	assert.True(t, strings.HasSuffix(text, "=== END OF DOCUMENT ==="))

	// Page frames appear in page order.
	assert.Less(t,
		strings.Index(text, "=== PAGE 1"),
		strings.Index(text, "=== PAGE 2"))
}

func TestLLMReadyTextFailedPage(t *testing.T) {
	pages := []PageResult{
		{Page: 1, Failed: true, Error: "recognition failed"},
	}
	out := newOCROutput(ingest.FileMetadata{}, pages, buildStatistics(pages, time.Second), 92.0)

	text := out.LLMReadyText()
	assert.Contains(t, text, "=== PAGE 1 | Confidence: 0.0% ===")
	assert.Contains(t, text, "[PAGE FAILED: recognition failed]")
}

func TestToJSONRoundTrip(t *testing.T) {
	meta := ingest.FileMetadata{Name: "doc.pdf", Hash: "abc123"}
	out := newOCROutput(meta, samplePages(), buildStatistics(samplePages(), time.Second), 92.0)

	data, err := out.ToJSON()
	require.NoError(t, err)

	var decoded OCROutput
	require.NoError(t, json.Unmarshal([]byte(data), &decoded))
	assert.Equal(t, out.RunID, decoded.RunID)
	assert.Equal(t, out.FullText, decoded.FullText)
	assert.Len(t, decoded.Pages, 2)
}
