package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

const (
	// lineHeightFactor converts font size to line height.
	lineHeightFactor = 1.2
	// minFontSize is the auto-shrink floor.
	minFontSize = 6.0
	// shrinkStep is the auto-shrink decrement.
	shrinkStep = 0.5
	// fallbackBodySize applies when a page has no body-class blocks.
	fallbackBodySize = 10.0
)

// bodyClasses drive the uniform body font size of a page.
var bodyClasses = map[string]bool{
	"plain_text":      true,
	"figure_caption":  true,
	"table_caption":   true,
	"table_footnote":  true,
	"formula_caption": true,
}

// Writer re-emits the original PDF with translated regions drawn over white
// erasure rectangles.
type Writer struct {
	fontPath     string
	boldFontPath string
}

// NewWriter creates a Writer. fontPath must cover the target script;
// boldFontPath is optional and used for titles.
func NewWriter(fontPath, boldFontPath string) *Writer {
	return &Writer{fontPath: fontPath, boldFontPath: boldFontPath}
}

// Write produces outputPath from inputPath with every region in pages
// erased and redrawn. Unselected pages pass through unchanged; link
// annotations overlapping a region are removed. The final file lands at
// outputPath atomically (write + rename).
func (w *Writer) Write(inputPath, outputPath string, pages types.PageRegions) error {
	if len(pages) == 0 {
		tmpOut := outputPath + ".tmp"
		if err := copyFile(inputPath, tmpOut); err != nil {
			return err
		}
		if err := os.Rename(tmpOut, outputPath); err != nil {
			return types.NewError(types.ErrWriteFailed, "failed to move output into place", err)
		}
		return nil
	}

	pageIdx := make([]int, 0, len(pages))
	for idx := range pages {
		pageIdx = append(pageIdx, idx)
	}
	sort.Ints(pageIdx)

	tempDir, err := os.MkdirTemp("", "pdf2zh_write_*")
	if err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to create write temp dir", err)
	}
	defer os.RemoveAll(tempDir)

	overlayPath := filepath.Join(tempDir, "overlay.pdf")
	if err := w.buildOverlay(overlayPath, pageIdx, pages); err != nil {
		return err
	}

	stampedPath := filepath.Join(tempDir, "stamped.pdf")
	if err := stampOverlay(inputPath, stampedPath, overlayPath, pageIdx); err != nil {
		return err
	}

	tmpOut := outputPath + ".tmp"
	if err := scrubLinkAnnotations(stampedPath, tmpOut, pages); err != nil {
		return err
	}
	if err := os.Rename(tmpOut, outputPath); err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to move output into place", err)
	}

	logger.Info("translated PDF written",
		logger.String("output", filepath.Base(outputPath)),
		logger.Int("pages", len(pageIdx)))
	return nil
}

// buildOverlay draws one overlay page per processed page: erasure rectangles
// first, then wrapped translated text.
func (w *Writer) buildOverlay(overlayPath string, pageIdx []int, pages types.PageRegions) error {
	canvas, hasBold := newOverlayCanvas(w.fontPath, w.boldFontPath, pages[pageIdx[0]].Size)

	for _, idx := range pageIdx {
		result := pages[idx]
		canvas.AddPage(result.Size)

		bodySize := medianBodyFontSize(result.Regions)
		for _, region := range result.Regions {
			if err := w.drawRegion(canvas, region, result.Size, bodySize, hasBold); err != nil {
				return types.NewPageError(types.ErrWriteFailed, "failed to draw region", idx+1, err)
			}
		}
	}

	if err := canvas.Save(overlayPath); err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to serialize overlay", err)
	}
	return nil
}

// drawRegion erases the region's bbox and lays the translation out inside
// it, shrinking the font until the wrapped text fits the padded box.
func (w *Writer) drawRegion(canvas overlayCanvas, region types.TranslatedRegion, size types.PageSize, bodySize float64, hasBold bool) error {
	bbox := region.PDFBBox
	topY := size.Height - (bbox.Y + bbox.Height)
	canvas.FillWhiteRect(bbox.X, topY, bbox.Width, bbox.Height)

	if region.TranslatedText == "" {
		return nil
	}

	isTitle := region.Box.ClassName == "title"
	target := bodySize
	if isTitle {
		target = meanFontSize(region.Blocks)
	}

	padding := 0.15 * target
	if padding < 2 {
		padding = 2
	}
	availW := bbox.Width - 2*padding
	availH := bbox.Height - 2*padding

	bold := isTitle && hasBold
	fontSize := target
	var lines []string
	for {
		if err := canvas.SetFont(bold, fontSize); err != nil {
			return err
		}
		lines = wrapText(canvas, region.TranslatedText, fontSize, availW)
		if float64(len(lines))*fontSize*lineHeightFactor <= availH || fontSize <= minFontSize {
			break
		}
		fontSize -= shrinkStep
	}

	lineHeight := fontSize * lineHeightFactor
	for i, line := range lines {
		baseline := bbox.Y + bbox.Height - padding - float64(i+1)*lineHeight + (lineHeight - fontSize)
		if baseline < bbox.Y {
			continue
		}
		if err := canvas.DrawText(bbox.X+padding, size.Height-baseline, line); err != nil {
			return err
		}
	}
	return nil
}

// stampOverlay stamps overlay page k onto original page pageIdx[k]+1. The
// stamp sits on top of the original content, so the erasure rectangles hide
// the source text while everything else survives.
func stampOverlay(inputPath, outPath, overlayPath string, pageIdx []int) error {
	stamps := make(map[int]*model.Watermark, len(pageIdx))
	for k, idx := range pageIdx {
		wm, err := api.PDFWatermark(fmt.Sprintf("%s:%d", overlayPath, k+1),
			"pos:c, scale:1 abs, rot:0", true, false, pdftypes.POINTS)
		if err != nil {
			return types.NewError(types.ErrWriteFailed, "failed to build page stamp", err)
		}
		stamps[idx+1] = wm
	}

	if err := api.AddWatermarksMapFile(inputPath, outPath, stamps, nil); err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to stamp translated pages", err)
	}
	return nil
}

// scrubLinkAnnotations removes every Link annotation whose rectangle
// overlaps a region bbox on its page, then serializes the document.
func scrubLinkAnnotations(inPath, outPath string, pages types.PageRegions) error {
	ctx, err := api.ReadContextFile(inPath)
	if err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to reopen stamped PDF", err)
	}

	for idx, result := range pages {
		if err := scrubPage(ctx, idx+1, result.Regions); err != nil {
			return err
		}
	}

	if err := api.WriteContextFile(ctx, outPath); err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to serialize output PDF", err)
	}
	return nil
}

func scrubPage(ctx *model.Context, pageNumber int, regions []types.TranslatedRegion) error {
	pageDict, _, _, err := ctx.PageDict(pageNumber, false)
	if err != nil {
		return types.NewPageError(types.ErrWriteFailed, "failed to load page dictionary", pageNumber, err)
	}
	obj, found := pageDict.Find("Annots")
	if !found {
		return nil
	}
	annots, err := ctx.DereferenceArray(obj)
	if err != nil || annots == nil {
		return nil
	}

	// Remove in reverse so earlier indices stay valid.
	for i := len(annots) - 1; i >= 0; i-- {
		d, err := ctx.DereferenceDict(annots[i])
		if err != nil || d == nil {
			continue
		}
		subtype := d.NameEntry("Subtype")
		if subtype == nil || *subtype != "Link" {
			continue
		}
		rect, ok := annotationRect(ctx, d)
		if !ok {
			continue
		}
		for _, region := range regions {
			if rectsOverlap(rect, region.PDFBBox) {
				annots = append(annots[:i], annots[i+1:]...)
				break
			}
		}
	}

	pageDict.Update("Annots", annots)
	return nil
}

// annotationRect reads an annotation's /Rect as an x/y/w/h rectangle.
func annotationRect(ctx *model.Context, d pdftypes.Dict) (types.PDFRect, bool) {
	obj, found := d.Find("Rect")
	if !found {
		return types.PDFRect{}, false
	}
	arr, err := ctx.DereferenceArray(obj)
	if err != nil || len(arr) != 4 {
		return types.PDFRect{}, false
	}
	var v [4]float64
	for i, o := range arr {
		f, ok := numericValue(ctx, o)
		if !ok {
			return types.PDFRect{}, false
		}
		v[i] = f
	}
	x0, y0, x1, y1 := v[0], v[1], v[2], v[3]
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return types.PDFRect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, true
}

func numericValue(ctx *model.Context, o pdftypes.Object) (float64, bool) {
	resolved, err := ctx.Dereference(o)
	if err != nil {
		return 0, false
	}
	switch n := resolved.(type) {
	case pdftypes.Integer:
		return float64(n), true
	case pdftypes.Float:
		return float64(n), true
	}
	return 0, false
}

// rectsOverlap is the strict AABB overlap test: touching edges do not count.
func rectsOverlap(a, b types.PDFRect) bool {
	return a.X < b.X+b.Width && b.X < a.X+a.Width &&
		a.Y < b.Y+b.Height && b.Y < a.Y+a.Height
}

// medianBodyFontSize returns the median original font size over all blocks
// of body-class regions, or the fallback when the page has none.
func medianBodyFontSize(regions []types.TranslatedRegion) float64 {
	var sizes []float64
	for _, region := range regions {
		if !bodyClasses[region.Box.ClassName] {
			continue
		}
		for _, b := range region.Blocks {
			if b.FontSize > 0 {
				sizes = append(sizes, b.FontSize)
			}
		}
	}
	if len(sizes) == 0 {
		return fallbackBodySize
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}

// meanFontSize averages the original sizes of a region's blocks.
func meanFontSize(blocks []types.TextBlock) float64 {
	var total float64
	n := 0
	for _, b := range blocks {
		if b.FontSize > 0 {
			total += b.FontSize
			n++
		}
	}
	if n == 0 {
		return fallbackBodySize
	}
	return total / float64(n)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to read input PDF", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return types.NewError(types.ErrWriteFailed, "failed to write output PDF", err)
	}
	return nil
}
