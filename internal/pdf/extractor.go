package pdf

import (
	"strings"

	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// defaultFontSize is used when the text layer carries no usable size.
const defaultFontSize = 10.0

// ExtractBlocks returns the positioned text blocks of a one-based page.
// Runs on the same row merge into one block; rows that are empty after
// trimming are dropped, so every returned block has non-blank text.
func (d *Document) ExtractBlocks(pageNumber int) ([]types.TextBlock, error) {
	page := d.r.Page(pageNumber)
	if page.V.IsNull() {
		return nil, nil
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, types.NewPageError(types.ErrExtractionFailed, "failed to read text layer", pageNumber, err)
	}

	var blocks []types.TextBlock
	for _, row := range rows {
		if len(row.Content) == 0 {
			continue
		}

		var sb strings.Builder
		var minX, maxX, minY float64
		var totalSize float64
		var fontName string
		sized := 0
		first := true

		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			sb.WriteString(t.S)
			if first {
				minX, maxX, minY = t.X, t.X, t.Y
				fontName = t.Font
				first = false
			} else {
				if t.X < minX {
					minX = t.X
				}
				if t.X > maxX {
					maxX = t.X
				}
				if t.Y < minY {
					minY = t.Y
				}
			}
			if t.FontSize > 0 {
				totalSize += t.FontSize
				sized++
			}
		}

		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}

		fontSize := defaultFontSize
		if sized > 0 {
			fontSize = totalSize / float64(sized)
		}

		// The text layer gives run origins, not extents; the width is the
		// larger of the run spread plus one em and a per-character estimate.
		// Only the union bbox and center test downstream depend on it.
		width := maxX - minX + fontSize
		if est := float64(len(text)) * fontSize * 0.5; est > width {
			width = est
		}

		blocks = append(blocks, types.TextBlock{
			Text:     text,
			X:        minX,
			Y:        minY,
			Width:    width,
			Height:   fontSize,
			FontSize: fontSize,
			FontName: fontName,
		})
	}

	return blocks, nil
}
