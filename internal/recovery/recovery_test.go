package recovery

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/raster"
	"github.com/Lllllllleong/pdfmanager/internal/textlayer"
)

type fakeReader struct {
	layer textlayer.Layer
	err   error
}

func (f fakeReader) Read(ctx context.Context, path string) (textlayer.Layer, error) {
	return f.layer, f.err
}

type fakeDoc struct {
	pages   int
	failOn  map[int]bool
	renders []int
}

func (d *fakeDoc) NumPage() int { return d.pages }

func (d *fakeDoc) Render(ctx context.Context, page int, dpi float64) (image.Image, error) {
	if dpi != raster.BaseDPI {
		return nil, errors.New("unexpected dpi")
	}
	d.renders = append(d.renders, page)
	if d.failOn[page] {
		return nil, models.ErrRenderFailure
	}
	// Encode the page number in the width so the recognizer can echo it.
	return image.NewGray(image.Rect(0, 0, page, 1)), nil
}

func (d *fakeDoc) Close() error { return nil }

type fakeRasterizer struct {
	doc *fakeDoc
	err error
}

func (f fakeRasterizer) Open(path string) (raster.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeRecognizer struct {
	calls     int
	failOn    map[int]bool
	languages []string
	cancel    context.CancelFunc
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	f.calls++
	f.languages = languages
	page := img.Bounds().Dx()
	if f.cancel != nil {
		f.cancel()
	}
	if f.failOn[page] {
		return "", models.ErrRecognitionUnavailable
	}
	return "page " + string(rune('0'+page)), nil
}

func TestRecoverUsesTextLayer(t *testing.T) {
	rec := &fakeRecognizer{}
	p := New(fakeReader{layer: textlayer.Layer{Pages: []string{"Invoice", "Total"}, PageCount: 2, Title: "T"}},
		fakeRasterizer{doc: &fakeDoc{pages: 2}}, rec, nil)

	got := p.Recover(context.Background(), "doc.pdf", nil)
	if rec.calls != 0 {
		t.Fatalf("recognizer invoked %d times for a document with a text layer", rec.calls)
	}
	if got.OCRPerformed || got.Text != "Invoice\nTotal" || got.PageCount != 2 || got.Title != "T" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRecoverFallsBackToOCR(t *testing.T) {
	doc := &fakeDoc{pages: 3, failOn: map[int]bool{2: true}}
	rec := &fakeRecognizer{}
	p := New(fakeReader{layer: textlayer.Layer{Pages: []string{" ", "", "\n"}, PageCount: 3}},
		fakeRasterizer{doc: doc}, rec, nil)

	got := p.Recover(context.Background(), "scan.pdf", []string{"en-US"})
	if !got.OCRPerformed {
		t.Fatalf("expected OCR to be performed")
	}
	if got.Text != "page 1\n\npage 3" {
		t.Fatalf("Text = %q", got.Text)
	}
	if rec.calls != 2 {
		t.Fatalf("recognizer calls = %d, want 2", rec.calls)
	}
	if len(got.Languages) != 1 || got.Languages[0] != "en-US" || rec.languages[0] != "en-US" {
		t.Fatalf("languages not passed through: %v / %v", got.Languages, rec.languages)
	}
}

func TestRecoverRecognizerFailureDegrades(t *testing.T) {
	rec := &fakeRecognizer{failOn: map[int]bool{1: true}}
	p := New(fakeReader{layer: textlayer.Layer{Pages: []string{"", ""}, PageCount: 2}},
		fakeRasterizer{doc: &fakeDoc{pages: 2}}, rec, nil)

	got := p.Recover(context.Background(), "scan.pdf", nil)
	if got.Text != "\npage 2" {
		t.Fatalf("Text = %q", got.Text)
	}
	if len(got.Languages) == 0 {
		t.Fatalf("OCR result must carry languages")
	}
}

func TestRecoverMalformedDocument(t *testing.T) {
	p := New(fakeReader{err: errors.New("not a pdf")},
		fakeRasterizer{err: models.ErrAccessDenied}, &fakeRecognizer{}, nil)

	got := p.Recover(context.Background(), "junk.pdf", nil)
	if got.Text != "" || !got.OCRPerformed || len(got.Languages) != len(ocr.DefaultLanguages) {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRecoverPageCountFromRasterizer(t *testing.T) {
	p := New(fakeReader{err: errors.New("unparsable")},
		fakeRasterizer{doc: &fakeDoc{pages: 2}}, &fakeRecognizer{}, nil)

	got := p.Recover(context.Background(), "scan.pdf", nil)
	if got.PageCount != 2 || got.Text != "page 1\npage 2" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRecoverCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	doc := &fakeDoc{pages: 3}
	rec := &fakeRecognizer{cancel: cancel}
	p := New(fakeReader{layer: textlayer.Layer{Pages: []string{"", "", ""}, PageCount: 3}},
		fakeRasterizer{doc: doc}, rec, nil)

	got := p.Recover(ctx, "scan.pdf", nil)
	if rec.calls != 1 || len(got.Pages) != 3 || got.Pages[0] != "page 1" || got.Pages[2] != "" {
		t.Fatalf("unexpected result after cancel: calls=%d pages=%q", rec.calls, got.Pages)
	}
}
