package raster

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/testpdf"
)

func TestRenderAtBaseDPI(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	testpdf.MustWrite(t, path, []string{"hello", "world"}, testpdf.Info{})

	doc, err := NewMuPDF().Open(path)
	if err != nil {
		t.Skipf("MuPDF unavailable: %v", err)
	}
	defer doc.Close()

	if got := doc.NumPage(); got != 2 {
		t.Fatalf("NumPage() = %d, want 2", got)
	}
	img, err := doc.Render(context.Background(), 1, BaseDPI)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	b := img.Bounds()
	if b.Dx() != 612 || b.Dy() != 792 {
		t.Fatalf("image size = %dx%d, want 612x792", b.Dx(), b.Dy())
	}

	if _, err := doc.Render(context.Background(), 3, BaseDPI); !errors.Is(err, models.ErrRenderFailure) {
		t.Fatalf("out of range page: got %v, want ErrRenderFailure", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := NewMuPDF().Open(filepath.Join(t.TempDir(), "missing.pdf"))
	if !errors.Is(err, models.ErrAccessDenied) {
		t.Fatalf("got %v, want ErrAccessDenied", err)
	}
}

func TestRenderCanceled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := testpdf.Write(path, []string{"x"}, testpdf.Info{}); err != nil {
		t.Fatal(err)
	}
	doc, err := NewMuPDF().Open(path)
	if err != nil {
		t.Skipf("MuPDF unavailable: %v", err)
	}
	defer doc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := doc.Render(ctx, 1, BaseDPI); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
