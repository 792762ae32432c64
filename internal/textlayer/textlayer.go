// Package textlayer reads the embedded text layer and document info of a PDF.
package textlayer

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Layer is the embedded text of a document, one entry per page.
type Layer struct {
	Pages     []string
	PageCount int
	Title     string
	Author    string
}

// Text returns the pages joined with newlines.
func (l Layer) Text() string {
	return strings.Join(l.Pages, "\n")
}

// Reader extracts a Layer from a local PDF file.
type Reader interface {
	Read(ctx context.Context, path string) (Layer, error)
}

// PDFReader implements Reader with github.com/ledongthuc/pdf.
type PDFReader struct{}

// NewPDFReader creates a text layer reader.
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// Read parses the file and returns the text of every page. A page whose
// content cannot be decoded contributes an empty string.
func (r *PDFReader) Read(ctx context.Context, path string) (layer Layer, err error) {
	// The parser panics on some malformed inputs instead of returning an error.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("parse %s: %v", path, rec)
		}
	}()

	f, doc, err := pdf.Open(path)
	if err != nil {
		return Layer{}, fmt.Errorf("could not read PDF %s: %w", path, err)
	}
	defer f.Close()

	layer.PageCount = doc.NumPage()
	info := doc.Trailer().Key("Info")
	layer.Title = strings.TrimSpace(info.Key("Title").Text())
	layer.Author = strings.TrimSpace(info.Key("Author").Text())

	layer.Pages = make([]string, 0, layer.PageCount)
	for i := 1; i <= layer.PageCount; i++ {
		if err := ctx.Err(); err != nil {
			return Layer{}, err
		}
		layer.Pages = append(layer.Pages, pageText(doc.Page(i)))
	}
	return layer, nil
}

func pageText(page pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
