package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// bboxMargin expands the union of matched blocks on every side, in PDF
// points, so the erasure rectangle covers glyph overshoot.
const bboxMargin = 2.0

// unknownLineTolerance is the same-line tolerance when a block has no font
// size.
const unknownLineTolerance = 10.0

// BlockCenterInImage maps a text block's PDF-point geometry into image-pixel
// space and returns its center. pageHeight is the media-box height at scale
// 1.0; scale is the page's raster scale.
func BlockCenterInImage(b types.TextBlock, pageHeight, scale float64) (float64, float64) {
	imgX := b.X * scale
	imgY := (pageHeight - b.Y - b.Height) * scale
	return imgX + b.Width*scale/2, imgY + b.Height*scale/2
}

// MatchRegions intersects layout detections with the page's text blocks and
// assembles translatable regions. Only detections of translatable classes
// participate; a block whose center lies inside several overlapping boxes
// joins each of them. Regions whose joined text is blank are skipped.
func MatchRegions(boxes []types.LayoutBox, blocks []types.TextBlock, pageHeight, scale float64) []types.TranslatableRegion {
	var regions []types.TranslatableRegion

	for _, box := range boxes {
		if !types.IsTranslatableClass(box.ClassName) {
			continue
		}

		var matched []types.TextBlock
		for _, b := range blocks {
			cx, cy := BlockCenterInImage(b, pageHeight, scale)
			if cx >= box.Rect.X && cx <= box.Rect.X+box.Rect.Width &&
				cy >= box.Rect.Y && cy <= box.Rect.Y+box.Rect.Height {
				matched = append(matched, b)
			}
		}
		if len(matched) == 0 {
			continue
		}

		sortReadingOrder(matched, pageHeight)

		parts := make([]string, len(matched))
		for i, b := range matched {
			parts[i] = b.Text
		}
		fullText := strings.Join(parts, " ")
		if strings.TrimSpace(fullText) == "" {
			continue
		}

		regions = append(regions, types.TranslatableRegion{
			Box:      box,
			Blocks:   matched,
			FullText: fullText,
			PDFBBox:  unionBBox(matched),
		})
	}

	return regions
}

// sortReadingOrder orders blocks top-to-bottom, left-to-right. Two blocks
// share a line when their top-down y distance is under the left block's font
// size (10 when unknown); the tolerance is an approximation that can
// misorder tightly spaced multi-size lines.
func sortReadingOrder(blocks []types.TextBlock, pageHeight float64) {
	sort.SliceStable(blocks, func(i, j int) bool {
		ay := pageHeight - blocks[i].Y
		by := pageHeight - blocks[j].Y
		tol := blocks[i].FontSize
		if tol <= 0 {
			tol = unknownLineTolerance
		}
		if math.Abs(ay-by) < tol {
			return blocks[i].X < blocks[j].X
		}
		return ay < by
	})
}

// unionBBox computes the tight PDF-space union of the matched blocks,
// expanded by the erasure margin. This deliberately ignores the detector's
// image-space box: the rectangle must track the real ink under the text.
func unionBBox(blocks []types.TextBlock) types.PDFRect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, b := range blocks {
		minX = math.Min(minX, b.X)
		minY = math.Min(minY, b.Y)
		maxX = math.Max(maxX, b.X+b.Width)
		maxY = math.Max(maxY, b.Y+b.Height)
	}
	return types.PDFRect{
		X:      minX - bboxMargin,
		Y:      minY - bboxMargin,
		Width:  maxX - minX + 2*bboxMargin,
		Height: maxY - minY + 2*bboxMargin,
	}
}
