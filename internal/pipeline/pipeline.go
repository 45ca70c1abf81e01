// Package pipeline sequences the end-to-end translation of one PDF:
// rasterize, detect layout, extract text, match regions, translate, and
// rewrite the document — with progress events and cooperative cancellation.
package pipeline

import (
	"context"
	"os"
	"sort"
	"sync/atomic"

	"github.com/liunuozhi/pdf2zh-app/internal/layout"
	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/pdf"
	"github.com/liunuozhi/pdf2zh-app/internal/settings"
	"github.com/liunuozhi/pdf2zh-app/internal/translator"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// AbortFlag is the shared cancellation boolean polled at the pipeline's
// checkpoints. In-flight work is not preempted; the worst-case delay between
// Abort and observable termination is one page plus one in-flight call.
type AbortFlag struct {
	flag atomic.Bool
}

// Abort requests cancellation.
func (a *AbortFlag) Abort() { a.flag.Store(true) }

// Aborted reports whether cancellation was requested.
func (a *AbortFlag) Aborted() bool { return a.flag.Load() }

// Assets are the file inputs the pipeline needs besides the PDF itself.
type Assets struct {
	// ModelPath is the DocLayout-YOLO ONNX export.
	ModelPath string
	// FontPath is the regular TTF covering the target script.
	FontPath string
	// BoldFontPath is the optional title face.
	BoldFontPath string
}

// Request describes one translation run.
type Request struct {
	InputPath  string
	OutputPath string
	Settings   settings.AppSettings
	// SelectedPages are one-based page numbers; out-of-range values are
	// silently dropped, empty means all pages.
	SelectedPages []int
	// CustomPrompt overrides the LLM system prompt for this run.
	CustomPrompt string
	Assets       Assets
	Abort        *AbortFlag
	OnProgress   func(types.ProgressEvent)
}

// Result summarizes a completed run.
type Result struct {
	OutputPath     string                `json:"output_path"`
	PagesProcessed int                   `json:"pages_processed"`
	RegionCount    int                   `json:"region_count"`
	Usage          types.TranslatorUsage `json:"usage"`
}

// progress emits monotonically non-decreasing percentages to the callback.
type progress struct {
	emit func(types.ProgressEvent)
	last float64
}

func (p *progress) report(stage string, currentPage, totalPages int, percent float64) {
	if percent < p.last {
		percent = p.last
	}
	p.last = percent
	if p.emit != nil {
		p.emit(types.ProgressEvent{
			Stage:       stage,
			CurrentPage: currentPage,
			TotalPages:  totalPages,
			Percent:     percent,
		})
	}
}

// Run executes one translation run. Any component failure aborts the run;
// cancellation surfaces as a Cancelled error distinguishable via
// types.IsCancelled.
func Run(ctx context.Context, req Request) (*Result, error) {
	prog := &progress{emit: req.OnProgress}

	aborted := func() bool {
		if req.Abort != nil && req.Abort.Aborted() {
			return true
		}
		return ctx.Err() != nil
	}

	if err := checkAssets(req.Assets); err != nil {
		return nil, err
	}

	prog.report("load_model", 0, 0, 0)
	if err := layout.EnsureModel(req.Assets.ModelPath); err != nil {
		return nil, err
	}

	doc, err := pdf.Open(req.InputPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	pages := resolvePages(req.SelectedPages, doc.PageCount())
	n := len(pages)

	s := req.Settings.Normalize()
	tr, err := translator.New(s, req.CustomPrompt)
	if err != nil {
		return nil, err
	}

	prog.report("load_pdf", 0, n, 5)
	logger.Info("translation run started",
		logger.String("input", req.InputPath),
		logger.Int("pages", n),
		logger.String("translator", s.TranslatorType),
		logger.String("target", s.TargetLanguage))

	collected := make(types.PageRegions)
	var usage types.TranslatorUsage
	regionCount := 0

	for i, pageNumber := range pages {
		if aborted() {
			return nil, cancelled()
		}

		base := 10 + float64(i)/float64(n)*85
		step := 85 / float64(n)

		prog.report("rasterize", pageNumber, n, base)
		size := doc.PageSize(pageNumber)
		img, err := pdf.RenderPage(req.InputPath, pageNumber, size)
		if err != nil {
			return nil, err
		}

		prog.report("detect_layout", pageNumber, n, base+0.2*step)
		boxes, err := layout.Detect(req.Assets.ModelPath, img.RGB, img.Width, img.Height)
		if err != nil {
			return nil, err
		}

		prog.report("extract_text", pageNumber, n, base+0.4*step)
		blocks, err := doc.ExtractBlocks(pageNumber)
		if err != nil {
			return nil, err
		}

		prog.report("translate", pageNumber, n, base+0.6*step)
		regions := pdf.MatchRegions(boxes, blocks, size.Height, img.Scale)
		// Drop the raster before translation; blocks and boxes die with this
		// iteration, keeping peak memory at one page.
		img.RGB = nil

		if len(regions) == 0 {
			continue
		}

		texts := make([]string, len(regions))
		for j, region := range regions {
			texts[j] = region.FullText
		}
		translated, err := tr.TranslateBatch(ctx, texts, "", s.TargetLanguage)
		if err != nil {
			return nil, err
		}
		usage = usage.Add(tr.Usage())

		result := types.PageResult{Size: size, Regions: make([]types.TranslatedRegion, len(regions))}
		for j, region := range regions {
			result.Regions[j] = types.TranslatedRegion{
				TranslatableRegion: region,
				TranslatedText:     translated[j],
			}
		}
		collected[pageNumber-1] = result
		regionCount += len(regions)
	}

	if aborted() {
		return nil, cancelled()
	}

	prog.report("write_pdf", n, n, 95)
	writer := pdf.NewWriter(req.Assets.FontPath, req.Assets.BoldFontPath)
	if err := writer.Write(req.InputPath, req.OutputPath, collected); err != nil {
		return nil, err
	}

	prog.report("complete", n, n, 100)
	logger.Info("translation run complete",
		logger.Int("pages", n),
		logger.Int("regions", regionCount),
		logger.Int("inputTokens", usage.InputTokens),
		logger.Int("outputTokens", usage.OutputTokens))

	return &Result{
		OutputPath:     req.OutputPath,
		PagesProcessed: n,
		RegionCount:    regionCount,
		Usage:          usage,
	}, nil
}

func cancelled() error {
	return types.NewError(types.ErrCancelled, "translation cancelled", nil)
}

func checkAssets(a Assets) error {
	if a.ModelPath == "" {
		return types.NewError(types.ErrAssetMissing, "layout model path is required", nil)
	}
	if a.FontPath == "" {
		return types.NewError(types.ErrAssetMissing, "translation font path is required", nil)
	}
	for _, p := range []string{a.ModelPath, a.FontPath} {
		if _, err := os.Stat(p); err != nil {
			return types.NewError(types.ErrAssetMissing, "asset not readable: "+p, err)
		}
	}
	return nil
}

// resolvePages intersects the selection with [1..total], sorted and deduped.
// An empty selection means every page.
func resolvePages(selected []int, total int) []int {
	if len(selected) == 0 {
		pages := make([]int, total)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages
	}

	seen := make(map[int]bool)
	var pages []int
	for _, p := range selected {
		if p >= 1 && p <= total && !seen[p] {
			seen[p] = true
			pages = append(pages, p)
		}
	}
	sort.Ints(pages)
	return pages
}
