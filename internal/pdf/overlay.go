package pdf

import (
	"codeberg.org/go-pdf/fpdf"
	gopdf "github.com/VantageDataChat/GoPDF2"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// overlayCanvas is the drawing surface the writer lays translated pages out
// on. Coordinates are top-left-origin PDF points; DrawText positions by
// baseline. Implementations keep the currently selected font size.
type overlayCanvas interface {
	AddPage(size types.PageSize)
	SetFont(bold bool, size float64) error
	// RuneWidth measures one character at the current font; implementations
	// return an error for unmeasurable glyphs.
	RuneWidth(r rune) (float64, error)
	FillWhiteRect(x, y, w, h float64)
	DrawText(x, baselineY float64, text string) error
	Save(path string) error
}

// newOverlayCanvas embeds the CJK fonts on a GoPDF2 canvas. When the regular
// font cannot be loaded the writer degrades to core Helvetica on an fpdf
// canvas instead of failing the run, since a hard failure here would reject
// every CJK output. Returns the canvas and whether a bold face is available.
func newOverlayCanvas(fontPath, boldFontPath string, first types.PageSize) (overlayCanvas, bool) {
	c, hasBold, err := newTTFCanvas(fontPath, boldFontPath, first)
	if err != nil {
		logger.Warn("failed to embed translation font, falling back to Helvetica",
			logger.String("font", fontPath),
			logger.Err(err))
		return newHelveticaCanvas(first), true
	}
	return c, hasBold
}

const (
	regularFontName = "translation"
	boldFontName    = "translation-bold"
)

// ttfCanvas draws with embedded TrueType fonts. The registered font is kept
// unsubsetted: translated glyphs are not known at embed time without a
// second pass.
type ttfCanvas struct {
	pdf      gopdf.GoPdf
	hasBold  bool
	fontSize float64
}

func newTTFCanvas(fontPath, boldFontPath string, first types.PageSize) (*ttfCanvas, bool, error) {
	c := &ttfCanvas{}
	c.pdf.Start(gopdf.Config{
		PageSize: gopdf.Rect{W: first.Width, H: first.Height},
		Unit:     gopdf.UnitPT,
	})

	if err := c.pdf.AddTTFFont(regularFontName, fontPath); err != nil {
		return nil, false, err
	}
	if boldFontPath != "" {
		if err := c.pdf.AddTTFFont(boldFontName, boldFontPath); err != nil {
			logger.Warn("failed to embed bold title font, titles use the regular face",
				logger.String("font", boldFontPath),
				logger.Err(err))
		} else {
			c.hasBold = true
		}
	}
	return c, c.hasBold, nil
}

func (c *ttfCanvas) AddPage(size types.PageSize) {
	c.pdf.AddPageWithOption(gopdf.PageOption{
		PageSize: &gopdf.Rect{W: size.Width, H: size.Height},
	})
}

func (c *ttfCanvas) SetFont(bold bool, size float64) error {
	name := regularFontName
	if bold && c.hasBold {
		name = boldFontName
	}
	c.fontSize = size
	return c.pdf.SetFont(name, "", size)
}

func (c *ttfCanvas) RuneWidth(r rune) (float64, error) {
	return c.pdf.MeasureTextWidth(string(r))
}

func (c *ttfCanvas) FillWhiteRect(x, y, w, h float64) {
	c.pdf.SetFillColor(255, 255, 255)
	c.pdf.RectFromUpperLeftWithStyle(x, y, w, h, "F")
}

func (c *ttfCanvas) DrawText(x, baselineY float64, text string) error {
	// Cell positions by the top of the em box; approximate the ascent with
	// the font size.
	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.SetXY(x, baselineY-c.fontSize)
	return c.pdf.Cell(nil, text)
}

func (c *ttfCanvas) Save(path string) error {
	return c.pdf.WritePdf(path)
}

// helveticaCanvas is the degraded overlay surface using the core Helvetica
// faces. Non-Latin glyphs will not render here; the erasure rectangles and
// layout still apply.
type helveticaCanvas struct {
	pdf      *fpdf.Fpdf
	fontSize float64
}

func newHelveticaCanvas(first types.PageSize) *helveticaCanvas {
	p := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	return &helveticaCanvas{pdf: p}
}

func (c *helveticaCanvas) AddPage(size types.PageSize) {
	c.pdf.AddPageFormat("P", fpdf.SizeType{Wd: size.Width, Ht: size.Height})
}

func (c *helveticaCanvas) SetFont(bold bool, size float64) error {
	style := ""
	if bold {
		style = "B"
	}
	c.fontSize = size
	c.pdf.SetFont("Helvetica", style, size)
	return c.pdf.Error()
}

func (c *helveticaCanvas) RuneWidth(r rune) (float64, error) {
	w := c.pdf.GetStringWidth(string(r))
	if err := c.pdf.Error(); err != nil {
		return 0, err
	}
	return w, nil
}

func (c *helveticaCanvas) FillWhiteRect(x, y, w, h float64) {
	c.pdf.SetFillColor(255, 255, 255)
	c.pdf.Rect(x, y, w, h, "F")
}

func (c *helveticaCanvas) DrawText(x, baselineY float64, text string) error {
	c.pdf.SetTextColor(0, 0, 0)
	c.pdf.Text(x, baselineY, text)
	return c.pdf.Error()
}

func (c *helveticaCanvas) Save(path string) error {
	return c.pdf.OutputFileAndClose(path)
}
