package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quillscan/quillscan/internal/engine"
	"github.com/quillscan/quillscan/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Run OCR over image or PDF files",
	Long: `Process one or more documents through the adaptive OCR pipeline.
Each page is assessed, preprocessed per its quality profile, and recognized
with progressive parameter fallback. Output formats: text, json, summary,
llm (language-model ready framing).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringP("format", "f", "", "output format: text, json, summary, llm (default from config)")
	processCmd.Flags().StringP("output", "o", "", "output file or directory (default stdout)")
	processCmd.Flags().Int("workers", 0, "parallel page workers (default from config)")
	processCmd.Flags().Float64("min-confidence", 0, "fallback ladder acceptance threshold")
	processCmd.Flags().Float64("llm-threshold", 0, "weighted confidence below this flags LLM correction")
	processCmd.Flags().String("languages", "", "tesseract languages, e.g. eng or por+eng")
	processCmd.Flags().String("tessdata-dir", "", "tesseract traineddata directory")
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Output.Format
	}
	switch format {
	case "text", "json", "summary", "llm":
	default:
		return fmt.Errorf("invalid output format %q", format)
	}

	outPath, _ := cmd.Flags().GetString("output")
	if outPath == "" {
		outPath = cfg.Output.File
	}

	tessCfg := cfg.ToTesseract()
	if langs, _ := cmd.Flags().GetString("languages"); langs != "" {
		tessCfg.Languages = langs
	}
	if dir, _ := cmd.Flags().GetString("tessdata-dir"); dir != "" {
		tessCfg.TessdataDir = dir
	}

	builder := pipeline.NewBuilder().
		WithEngine(engine.NewTesseract(tessCfg)).
		WithEngineConfig(cfg.ToPipeline().Engine).
		WithLimits(cfg.ToPipeline().Limits).
		WithTimeout(cfg.ToPipeline().Timeout)
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		builder.WithWorkers(workers)
	} else if cfg.Pipeline.Workers > 0 {
		builder.WithWorkers(cfg.Pipeline.Workers)
	}
	if mc, _ := cmd.Flags().GetFloat64("min-confidence"); mc > 0 {
		builder.WithMinConfidence(mc)
	}
	if lt, _ := cmd.Flags().GetFloat64("llm-threshold"); lt > 0 {
		builder.WithLLMThreshold(lt)
	} else if cfg.Pipeline.LLMThreshold > 0 {
		builder.WithLLMThreshold(cfg.Pipeline.LLMThreshold)
	}

	p, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	multi := len(args) > 1
	for _, path := range args {
		output, err := p.ProcessFile(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("process %s: %w", path, err)
		}
		slog.Info("document processed",
			"file", output.File.Name,
			"pages", output.Statistics.TotalPages,
			"failed_pages", output.Statistics.FailedPages,
			"weighted_confidence", output.Statistics.WeightedConfidence,
			"needs_llm_correction", output.NeedsLLMCorrection)

		rendered, err := renderOutput(output, format)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd, rendered, outPath, path, format, multi); err != nil {
			return err
		}
	}
	return nil
}

func renderOutput(output *pipeline.OCROutput, format string) (string, error) {
	switch format {
	case "json":
		return output.ToJSON()
	case "summary":
		s := output.Summary()
		var b strings.Builder
		fmt.Fprintf(&b, "File:       %s (%s)\n", s.File.Name, s.File.Hash)
		fmt.Fprintf(&b, "Run:        %s\n", s.RunID)
		fmt.Fprintf(&b, "Pages:      %d (%d failed)\n", len(s.Pages), s.FailedPages)
		fmt.Fprintf(&b, "Words:      %d\n", s.TotalWords)
		fmt.Fprintf(&b, "Confidence: %.1f%% (weighted)\n", s.WeightedConfidence)
		fmt.Fprintf(&b, "LLM pass:   %v\n", s.NeedsLLMCorrection)
		for _, page := range s.Pages {
			status := "ok"
			if page.Failed {
				status = "FAILED"
			}
			fmt.Fprintf(&b, "  page %3d  %s  %5.1f%%  %5d words  %s\n",
				page.Page, page.TextHash, page.Confidence, page.Words, status)
		}
		return b.String(), nil
	case "llm":
		return output.LLMReadyText(), nil
	default:
		return output.FullText, nil
	}
}

func writeOutput(cmd *cobra.Command, rendered, outPath, inputPath, format string, multi bool) error {
	if outPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
		return nil
	}

	target := outPath
	if multi {
		ext := "txt"
		if format == "json" {
			ext = "json"
		}
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		if err := os.MkdirAll(outPath, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		target = filepath.Join(outPath, fmt.Sprintf("%s.%s", base, ext))
	}
	if err := os.WriteFile(target, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
