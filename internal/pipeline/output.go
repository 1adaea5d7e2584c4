package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/quillscan/quillscan/internal/ingest"
)

// OCROutput is the immutable result of one document run. All derived views
// (full text, correction flag) are computed once at construction.
type OCROutput struct {
	RunID              string              `json:"run_id"`
	CreatedAt          time.Time           `json:"created_at"`
	File               ingest.FileMetadata `json:"file"`
	Pages              []PageResult        `json:"pages"`
	FullText           string              `json:"full_text"`
	Statistics         Statistics          `json:"statistics"`
	NeedsLLMCorrection bool                `json:"needs_llm_correction"`
	LLMThreshold       float64             `json:"llm_threshold"`
}

func newOCROutput(meta ingest.FileMetadata, pages []PageResult, stats Statistics, llmThreshold float64) *OCROutput {
	texts := make([]string, 0, len(pages))
	for _, page := range pages {
		if !page.Failed && page.Text != "" {
			texts = append(texts, page.Text)
		}
	}
	return &OCROutput{
		RunID:              newRunID(),
		CreatedAt:          time.Now().UTC(),
		File:               meta,
		Pages:              pages,
		FullText:           strings.Join(texts, "\n\n"),
		Statistics:         stats,
		NeedsLLMCorrection: stats.WeightedConfidence < llmThreshold,
		LLMThreshold:       llmThreshold,
	}
}

// PageSummary is the per-page line of a document summary.
type PageSummary struct {
	Page       int     `json:"page"`
	TextHash   string  `json:"text_hash"`
	Words      int     `json:"words"`
	Confidence float64 `json:"confidence"`
	Failed     bool    `json:"failed"`
}

// Summary identifies the run and its pages without carrying page text.
type Summary struct {
	RunID              string              `json:"run_id"`
	File               ingest.FileMetadata `json:"file"`
	Pages              []PageSummary       `json:"pages"`
	TotalWords         int                 `json:"total_words"`
	FailedPages        int                 `json:"failed_pages"`
	WeightedConfidence float64             `json:"weighted_confidence"`
	NeedsLLMCorrection bool                `json:"needs_llm_correction"`
}

// Summary returns the compact view of the output.
func (o *OCROutput) Summary() Summary {
	pages := make([]PageSummary, 0, len(o.Pages))
	for _, p := range o.Pages {
		pages = append(pages, PageSummary{
			Page:       p.Page,
			TextHash:   fmt.Sprintf("%016x", xxhash.Sum64String(p.Text)),
			Words:      p.Words,
			Confidence: p.Confidence,
			Failed:     p.Failed,
		})
	}
	return Summary{
		RunID:              o.RunID,
		File:               o.File,
		Pages:              pages,
		TotalWords:         o.Statistics.TotalWords,
		FailedPages:        o.Statistics.FailedPages,
		WeightedConfidence: o.Statistics.WeightedConfidence,
		NeedsLLMCorrection: o.NeedsLLMCorrection,
	}
}

// LLMReadyText renders the document framed for a downstream language model:
// a page-count header, one confidence-tagged frame per page, and an explicit
// end-of-document trailer.
func (o *OCROutput) LLMReadyText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== OCR RESULTS - %d PAGES ===\n\n", len(o.Pages))
	for _, page := range o.Pages {
		fmt.Fprintf(&b, "=== PAGE %d | Confidence: %.1f%% ===\n", page.Page, page.Confidence)
		if page.Failed {
			fmt.Fprintf(&b, "[PAGE FAILED: %s]\n", page.Error)
		} else {
			b.WriteString(page.Text)
			if !strings.HasSuffix(page.Text, "\n") {
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("=== END OF DOCUMENT ===")
	return b.String()
}

// ToJSON serializes the output as pretty JSON.
func (o *OCROutput) ToJSON() (string, error) {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
