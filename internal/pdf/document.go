// Package pdf provides the PDF-facing half of the translation pipeline:
// page rasterization, positioned text extraction, region matching and
// layout-preserving rewriting.
package pdf

import (
	"os"

	ledongthuc "github.com/ledongthuc/pdf"

	"github.com/liunuozhi/pdf2zh-app/internal/types"
)

// Document wraps an open source PDF for the lifetime of one run.
type Document struct {
	path string
	file *os.File
	r    *ledongthuc.Reader
}

// Open opens a PDF for reading. The caller must Close it.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, types.NewError(types.ErrAssetMissing, "input PDF not readable", err)
	}
	f, r, err := ledongthuc.Open(path)
	if err != nil {
		return nil, types.NewError(types.ErrExtractionFailed, "failed to open PDF", err)
	}
	return &Document{path: path, file: f, r: r}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

// Path returns the source file path.
func (d *Document) Path() string {
	return d.path
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.r.NumPage()
}

// PageSize returns the media box of a one-based page at scale 1.0, walking
// Parent nodes for inherited boxes. Pages without a resolvable media box
// default to US Letter.
func (d *Document) PageSize(pageNumber int) types.PageSize {
	page := d.r.Page(pageNumber)
	for v := page.V; !v.IsNull(); v = v.Key("Parent") {
		mb := v.Key("MediaBox")
		if mb.Len() == 4 {
			x0 := mb.Index(0).Float64()
			y0 := mb.Index(1).Float64()
			x1 := mb.Index(2).Float64()
			y1 := mb.Index(3).Float64()
			w, h := x1-x0, y1-y0
			if w > 0 && h > 0 {
				return types.PageSize{Width: w, Height: h}
			}
		}
	}
	return types.PageSize{Width: 612, Height: 792}
}
