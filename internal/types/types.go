// Package types defines the shared data model of the translation pipeline:
// coordinate-space tagged rectangles, layout detections, positioned text,
// translatable regions and the progress/error surface exposed to callers.
package types

// ImageRect is an axis-aligned rectangle in image-pixel space.
// Origin is the top-left corner of the rasterized page.
type ImageRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PDFRect is an axis-aligned rectangle in PDF-point space.
// Origin is the bottom-left corner of the page.
type PDFRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageSize is the media box of one page at scale 1.0, in PDF points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutClassNames are the DocLayout-YOLO classes in model declaration order.
var LayoutClassNames = []string{
	"title",
	"plain_text",
	"abandon",
	"figure",
	"figure_caption",
	"table",
	"table_caption",
	"table_footnote",
	"isolate_formula",
	"formula_caption",
}

// translatableClasses 可翻译的版面类别
var translatableClasses = map[string]bool{
	"title":           true,
	"plain_text":      true,
	"figure_caption":  true,
	"table_caption":   true,
	"table_footnote":  true,
	"formula_caption": true,
}

// ClassNameFor maps a model class ID to its name. Out-of-range IDs are
// treated as body text.
func ClassNameFor(classID int) string {
	if classID < 0 || classID >= len(LayoutClassNames) {
		return "plain_text"
	}
	return LayoutClassNames[classID]
}

// IsTranslatableClass reports whether text inside a detection of this class
// should be translated.
func IsTranslatableClass(className string) bool {
	return translatableClasses[className]
}

// LayoutBox is one detection produced by the layout model.
type LayoutBox struct {
	Rect       ImageRect `json:"rect"`
	ClassID    int       `json:"class_id"`
	ClassName  string    `json:"class_name"`
	Confidence float64   `json:"confidence"`
}

// TextBlock 文本块
// One positioned text run harvested from the PDF text layer. X/Y are the
// bottom-left of the glyph baseline box in PDF points. Text is never empty
// or whitespace-only.
type TextBlock struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size"`
	FontName string  `json:"font_name"`
}

// TranslatableRegion pairs a layout detection with the text blocks whose
// centers fall inside it, in reading order. PDFBBox is computed from the
// matched blocks, not from the detector box, so erasure rectangles stay
// aligned with the real ink.
type TranslatableRegion struct {
	Box      LayoutBox   `json:"box"`
	Blocks   []TextBlock `json:"blocks"`
	FullText string      `json:"full_text"`
	PDFBBox  PDFRect     `json:"pdf_bbox"`
}

// TranslatedRegion 翻译后的区域
type TranslatedRegion struct {
	TranslatableRegion
	TranslatedText string `json:"translated_text"`
}

// PageResult holds everything the writer needs for one processed page.
type PageResult struct {
	Size    PageSize           `json:"size"`
	Regions []TranslatedRegion `json:"regions"`
}

// PageRegions maps zero-based page index to that page's translated regions.
// Pages not selected by the caller do not appear.
type PageRegions map[int]PageResult

// TranslatorUsage accumulates token and cost accounting across all batches
// of a run. All fields stay zero for the free web translator.
type TranslatorUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// Add returns the sum of two usage records.
func (u TranslatorUsage) Add(o TranslatorUsage) TranslatorUsage {
	return TranslatorUsage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalCost:    u.TotalCost + o.TotalCost,
	}
}

// ProgressEvent is emitted to the caller's callback at each pipeline
// checkpoint. TotalPages counts the pages selected for processing, not the
// document total. Percent is monotonically non-decreasing within a run.
type ProgressEvent struct {
	Stage       string  `json:"stage"`
	CurrentPage int     `json:"current_page"`
	TotalPages  int     `json:"total_pages"`
	Percent     float64 `json:"percent"`
}
