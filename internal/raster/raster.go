// Package raster renders PDF pages to images.
package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// BaseDPI is the resolution at which one pixel equals one PDF point.
const BaseDPI = 72.0

// Document is an opened, renderable PDF. Pages are 1-based.
type Document interface {
	NumPage() int
	Render(ctx context.Context, page int, dpi float64) (image.Image, error)
	Close() error
}

// Rasterizer opens documents for rendering.
type Rasterizer interface {
	Open(path string) (Document, error)
}

// MuPDF implements Rasterizer with github.com/gen2brain/go-fitz.
type MuPDF struct{}

func NewMuPDF() *MuPDF {
	return &MuPDF{}
}

// Open loads the document at path. An unreadable file yields an error
// wrapping models.ErrAccessDenied.
func (m *MuPDF) Open(path string) (Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s for rendering: %v", models.ErrAccessDenied, path, err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	// fitz documents are not safe for concurrent rendering.
	mu  sync.Mutex
	doc *fitz.Document
}

func (d *fitzDocument) NumPage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

// Render draws page at dpi. The canvas covers the page's media box, so at
// BaseDPI the image size equals the page size in points.
func (d *fitzDocument) Render(ctx context.Context, page int, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dpi <= 0 {
		dpi = BaseDPI
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if page < 1 || page > d.doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d out of range", models.ErrRenderFailure, page)
	}
	img, err := d.doc.ImageDPI(page-1, dpi)
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: %v", models.ErrRenderFailure, page, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
