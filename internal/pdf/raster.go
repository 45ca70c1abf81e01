package pdf

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/liunuozhi/pdf2zh-app/internal/logger"
	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// rasterBudget is the longest-side pixel budget; it matches the layout
// model's input resolution.
const rasterBudget = 1024

// PageImage is one rasterized page: tightly packed 3-byte RGB rows, top-left
// origin, len(RGB) == Width*Height*3. Scale converts PDF points to image
// pixels for this page.
type PageImage struct {
	RGB    []byte
	Width  int
	Height int
	Scale  float64
}

// RasterDims returns the scale and pixel dimensions used for a page size.
func RasterDims(size types.PageSize) (scale float64, width, height int) {
	longest := math.Max(size.Width, size.Height)
	scale = rasterBudget / longest
	// Rounding can leave longest*scale just under the budget; step the scale
	// up by one ulp at a time so the longest side floors to exactly the budget.
	for math.Floor(longest*scale) < rasterBudget {
		scale = math.Nextafter(scale, math.Inf(1))
	}
	width = int(math.Floor(size.Width * scale))
	height = int(math.Floor(size.Height * scale))
	return scale, width, height
}

// RenderPage rasterizes one one-based page of the PDF via poppler's pdftoppm
// and returns the pixel buffer with the PDF-point-to-pixel scale.
func RenderPage(pdfPath string, pageNumber int, size types.PageSize) (*PageImage, error) {
	scale, width, height := RasterDims(size)

	tempDir, err := os.MkdirTemp("", "pdf2zh_raster_*")
	if err != nil {
		return nil, types.NewPageError(types.ErrRenderFailed, "failed to create raster temp dir", pageNumber, err)
	}
	defer os.RemoveAll(tempDir)

	outputPrefix := filepath.Join(tempDir, fmt.Sprintf("page_%d", pageNumber))
	args := []string{
		"-f", fmt.Sprintf("%d", pageNumber),
		"-l", fmt.Sprintf("%d", pageNumber),
		"-scale-to-x", fmt.Sprintf("%d", width),
		"-scale-to-y", fmt.Sprintf("%d", height),
		"-singlefile",
		pdfPath,
		outputPrefix,
	}

	cmd := exec.Command("pdftoppm", args...)
	hideWindowOnWindows(cmd)

	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, types.NewPageError(types.ErrRenderFailed,
			fmt.Sprintf("pdftoppm failed: %s", string(out)), pageNumber, err)
	}

	rgb, w, h, err := readPPM(outputPrefix + ".ppm")
	if err != nil {
		return nil, types.NewPageError(types.ErrRenderFailed, "failed to read rendered page", pageNumber, err)
	}
	if w != width || h != height {
		return nil, types.NewPageError(types.ErrRenderFailed,
			fmt.Sprintf("renderer produced %dx%d, expected %dx%d", w, h, width, height), pageNumber, nil)
	}

	logger.Debug("page rasterized",
		logger.Int("page", pageNumber),
		logger.Int("width", width),
		logger.Int("height", height),
		logger.Float64("scale", scale))

	return &PageImage{RGB: rgb, Width: width, Height: height, Scale: scale}, nil
}

// readPPM decodes a binary P6 PPM with 8-bit samples. The payload is already
// the packed RGB layout the detector consumes, so no pixel conversion runs.
func readPPM(path string) ([]byte, int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()

	br := bufio.NewReader(f)

	magic, err := ppmToken(br)
	if err != nil {
		return nil, 0, 0, err
	}
	if magic != "P6" {
		return nil, 0, 0, fmt.Errorf("unsupported PPM magic %q", magic)
	}

	var width, height, maxVal int
	for _, dst := range []*int{&width, &height, &maxVal} {
		tok, err := ppmToken(br)
		if err != nil {
			return nil, 0, 0, err
		}
		if _, err := fmt.Sscanf(tok, "%d", dst); err != nil {
			return nil, 0, 0, fmt.Errorf("invalid PPM header token %q", tok)
		}
	}
	if width <= 0 || height <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid PPM dimensions %dx%d", width, height)
	}
	if maxVal != 255 {
		return nil, 0, 0, fmt.Errorf("unsupported PPM max value %d", maxVal)
	}

	rgb := make([]byte, width*height*3)
	if _, err := io.ReadFull(br, rgb); err != nil {
		return nil, 0, 0, fmt.Errorf("short PPM payload: %w", err)
	}
	return rgb, width, height, nil
}

// ppmToken reads the next whitespace-delimited header token, skipping
// '#' comment lines.
func ppmToken(br *bufio.Reader) (string, error) {
	var tok []byte
	for {
		b, err := br.ReadByte()
		if err != nil {
			return "", err
		}
		switch {
		case b == '#':
			if _, err := br.ReadString('\n'); err != nil {
				return "", err
			}
		case b == ' ' || b == '\t' || b == '\r' || b == '\n':
			if len(tok) > 0 {
				return string(tok), nil
			}
		default:
			tok = append(tok, b)
		}
	}
}
