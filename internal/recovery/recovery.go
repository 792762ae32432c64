// Package recovery produces the full text of a document, reading the embedded
// text layer when present and falling back to OCR of rendered pages.
package recovery

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/raster"
	"github.com/Lllllllleong/pdfmanager/internal/textlayer"
)

// Pipeline wires a text layer reader, a rasterizer and a recognizer.
// Recognizer may be nil, in which case OCR yields empty pages.
type Pipeline struct {
	Reader     textlayer.Reader
	Rasterizer raster.Rasterizer
	Recognizer ocr.Recognizer
	Logger     *slog.Logger
}

// New creates a pipeline.
func New(reader textlayer.Reader, rasterizer raster.Rasterizer, recognizer ocr.Recognizer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Reader: reader, Rasterizer: rasterizer, Recognizer: recognizer, Logger: logger}
}

// Recover never fails: malformed or empty documents produce empty text.
// The recognizer runs only when the text layer holds nothing but whitespace.
func (p *Pipeline) Recover(ctx context.Context, path string, languages []string) models.RecoveredText {
	logCtx := p.Logger.With("path", path)

	layer, err := p.Reader.Read(ctx, path)
	if err != nil {
		logCtx.Warn("Text layer unreadable, falling back to OCR.", "error", err)
	}
	if text := layer.Text(); strings.TrimSpace(text) != "" {
		return models.RecoveredText{
			Text:      text,
			Pages:     layer.Pages,
			PageCount: layer.PageCount,
			Title:     layer.Title,
			Author:    layer.Author,
		}
	}

	out := models.RecoveredText{
		OCRPerformed: true,
		Languages:    ocr.LanguagesOrDefault(languages),
		PageCount:    layer.PageCount,
		Title:        layer.Title,
		Author:       layer.Author,
	}
	out.Pages = p.recognizePages(ctx, logCtx, path, out.Languages, &out.PageCount)
	out.Text = strings.Join(out.Pages, "\n")
	return out
}

func (p *Pipeline) recognizePages(ctx context.Context, logCtx *slog.Logger, path string, languages []string, pageCount *int) []string {
	if p.Rasterizer == nil {
		return make([]string, *pageCount)
	}
	doc, err := p.Rasterizer.Open(path)
	if err != nil {
		logCtx.Warn("Could not open document for rendering.", "error", err)
		return make([]string, *pageCount)
	}
	defer doc.Close()

	if *pageCount == 0 {
		*pageCount = doc.NumPage()
	}
	pages := make([]string, *pageCount)
	if p.Recognizer == nil {
		logCtx.Warn("No recognizer configured; OCR pages left empty.")
		return pages
	}

	for i := range pages {
		if ctx.Err() != nil {
			logCtx.Warn("Recovery canceled; remaining pages left empty.", "page", i+1)
			break
		}
		img, err := doc.Render(ctx, i+1, raster.BaseDPI)
		if err != nil {
			logCtx.Warn("Page render failed.", "page", i+1, "error", err)
			continue
		}
		text, err := p.Recognizer.Recognize(ctx, img, languages)
		if err != nil {
			logCtx.Warn("Page recognition failed.", "page", i+1, "recognizer", p.Recognizer.Name(), "error", err)
			continue
		}
		pages[i] = text
	}
	return pages
}
