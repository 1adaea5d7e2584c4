package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/quillscan/quillscan/internal/common"
	"github.com/quillscan/quillscan/internal/engine"
	"github.com/quillscan/quillscan/internal/ingest"
	"github.com/quillscan/quillscan/internal/layout"
	"github.com/quillscan/quillscan/internal/optimize"
	"github.com/quillscan/quillscan/internal/quality"
)

// PageResult is the outcome of processing a single page. Failed pages keep
// their diagnostics but carry empty text and zero confidence.
type PageResult struct {
	Page       int                   `json:"page"`
	Text       string                `json:"text"`
	Confidence float64               `json:"confidence"` // [0,100]
	Words      int                   `json:"words"`
	Characters int                   `json:"characters"`
	Quality    quality.Metrics       `json:"quality"`
	Layout     layout.Type           `json:"layout"`
	Engine     optimize.EngineConfig `json:"engine_config"`
	Attempts   int                   `json:"attempts"`
	Cached     bool                  `json:"cached"`
	Failed     bool                  `json:"failed"`
	Error      string                `json:"error,omitempty"`
	Timings    common.StageTimings   `json:"timings"`
}

// ProcessPage runs the per-page stages: assess, detect layout, optimize,
// recognize. Any stage failure marks this page failed without affecting
// sibling pages.
func (p *Pipeline) ProcessPage(ctx context.Context, page ingest.Page) PageResult {
	total := common.NewNamedTimer("page")
	result := PageResult{Page: page.Number}

	if page.Image == nil {
		return failPage(result, total, fmt.Errorf("nil page image"))
	}
	if err := ctx.Err(); err != nil {
		return failPage(result, total, err)
	}

	t := common.NewTimer()
	metrics := p.assessor.Assess(page.Image)
	result.Quality = metrics
	result.Timings.AssessNs = t.Stop().Nanoseconds()

	t = common.NewTimer()
	layoutRes, err := p.detector.Detect(page.Image)
	result.Timings.LayoutNs = t.Stop().Nanoseconds()
	if err != nil {
		// Layout is advisory; fall back to unknown rather than failing the page.
		slog.Warn("layout detection failed", "page", page.Number, "error", err)
		layoutRes = layout.Result{Type: layout.TypeUnknown}
	}
	result.Layout = layoutRes.Type

	t = common.NewTimer()
	processed, engineCfg := p.optimizer.FindOptimalConfig(page.Image, layoutRes.Type, metrics)
	result.Engine = engineCfg
	result.Timings.PreprocessNs = t.Stop().Nanoseconds()

	t = common.NewTimer()
	rec, err := p.managed.Recognize(ctx, processed, engine.Request{PSM: engineCfg.PSM, OEM: engineCfg.OEM})
	result.Timings.RecognizeNs = t.Stop().Nanoseconds()
	if err != nil {
		return failPage(result, total, fmt.Errorf("recognize page %d: %w", page.Number, err))
	}

	result.Text = rec.Text
	result.Confidence = rec.Confidence
	result.Words = len(strings.Fields(rec.Text))
	result.Characters = utf8.RuneCountInString(rec.Text)
	result.Attempts = rec.Attempts
	result.Cached = rec.Cached
	result.Timings.TotalNs = total.Stop().Nanoseconds()

	pagesProcessedTotal.Inc()
	pageDurationSeconds.Observe(total.Duration().Seconds())
	return result
}

func failPage(result PageResult, total *common.Timer, err error) PageResult {
	result.Failed = true
	result.Error = err.Error()
	result.Text = ""
	result.Confidence = 0
	result.Timings.TotalNs = total.Stop().Nanoseconds()
	slog.Error("page processing failed", "page", result.Page, "error", err)
	pagesFailedTotal.Inc()
	return result
}
