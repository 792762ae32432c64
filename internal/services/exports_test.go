package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/store"
)

// savedFile is an upload whose content was read while the local file existed.
type savedFile struct {
	bucket, object, contentType string
	data                        []byte
}

func capturingUploader(saved *[]savedFile) fileUploader {
	return func(ctx context.Context, bucket, object, localPath, contentType string) error {
		data, err := os.ReadFile(localPath)
		if err != nil {
			return err
		}
		*saved = append(*saved, savedFile{bucket, object, contentType, data})
		return nil
	}
}

func writeImage(t *testing.T, dir, name string, w, h int) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestImageAssembler(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "front.png", 60, 80)
	writeImage(t, dir, "back.png", 80, 60)
	var saved []savedFile
	f := &ImageAssemblerFunction{resolver: bucketResolver{dir: dir}, save: capturingUploader(&saved)}

	resp, err := f.Process(context.Background(), &models.ImagesToPDFRequest{
		ImageRefs: []string{"gs://scans/id/front.png", "gs://scans/id/back.png"},
		OutputRef: "gs://docs/id/licence.pdf",
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Status != "success" || resp.PageCount != 2 || resp.OutputRef != "gs://docs/id/licence.pdf" {
		t.Errorf("resp = %+v", resp)
	}
	if len(saved) != 1 {
		t.Fatalf("saved %d files, want 1", len(saved))
	}
	s := saved[0]
	if s.bucket != "docs" || s.object != "id/licence.pdf" || s.contentType != "application/pdf" {
		t.Errorf("saved to %s/%s as %s", s.bucket, s.object, s.contentType)
	}
	n, err := api.PageCount(bytes.NewReader(s.data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("saved file is not a PDF: %v", err)
	}
	if n != 2 {
		t.Errorf("page count = %d, want 2", n)
	}
}

func TestImageAssemblerRejectsBadRequests(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "front.png", 10, 10)
	writeFile(t, dir, "notes.txt", "not an image")

	tests := []struct {
		name string
		req  models.ImagesToPDFRequest
		want error
	}{
		{"no images", models.ImagesToPDFRequest{OutputRef: "gs://docs/a.pdf"}, ErrBadRequest},
		{"local output", models.ImagesToPDFRequest{ImageRefs: []string{"gs://scans/front.png"}, OutputRef: "/tmp/a.pdf"}, ErrBadRequest},
		{"not a pdf", models.ImagesToPDFRequest{ImageRefs: []string{"gs://scans/front.png"}, OutputRef: "gs://docs/a.png"}, ErrBadRequest},
		{"missing image", models.ImagesToPDFRequest{ImageRefs: []string{"gs://scans/gone.png"}, OutputRef: "gs://docs/a.pdf"}, models.ErrAccessDenied},
		{"undecodable image", models.ImagesToPDFRequest{ImageRefs: []string{"gs://scans/notes.txt"}, OutputRef: "gs://docs/a.pdf"}, models.ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved []savedFile
			f := &ImageAssemblerFunction{resolver: bucketResolver{dir: dir}, save: capturingUploader(&saved)}
			_, err := f.Process(context.Background(), &tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(saved) != 0 {
				t.Errorf("saved %d files on a rejected request", len(saved))
			}
		})
	}
}

func TestTextExportObject(t *testing.T) {
	tests := map[string]string{
		"scans/2024/invoice.pdf": "scans/2024/invoice/OCR Export.rtf",
		"invoice.pdf":            "invoice/OCR Export.rtf",
		"a.b.PDF":                "a.b/OCR Export.rtf",
	}
	for in, want := range tests {
		if got := TextExportObject(in); got != want {
			t.Errorf("TextExportObject(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextExporter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "receipt.pdf", "pdf bytes")
	st := store.NewMemory()
	now := time.Now()
	if err := st.Create(context.Background(), models.DocumentRecord{
		ID: "doc-1", ResourceRef: "gs://src/scans/receipt.pdf", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	rec := &fakeRecoverer{text: "Total: 5€"}
	var saved []savedFile
	f := &TextExporterFunction{
		store:     st,
		resolver:  bucketResolver{dir: dir},
		recoverer: rec,
		upload:    capturingUploader(&saved),
		config:    TextExporterConfig{CoreConfig: CoreConfig{OCRLanguages: []string{"de"}}},
	}

	resp, err := f.Process(context.Background(), &models.ExportTextRequest{DocumentID: "doc-1"})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.OutputRef != "gs://src/scans/receipt/OCR Export.rtf" || resp.PageCount != 1 {
		t.Errorf("resp = %+v", resp)
	}
	if len(saved) != 1 || saved[0].contentType != "application/rtf" {
		t.Fatalf("saved = %+v", saved)
	}
	body := string(saved[0].data)
	if !strings.HasPrefix(body, `{\rtf1`) || !strings.Contains(body, `Total: 5\u8364?`) {
		t.Errorf("export body = %q", body)
	}
	if len(rec.langs) != 1 || !slices.Equal(rec.langs[0], []string{"de"}) {
		t.Errorf("languages = %v, want configured [de]", rec.langs)
	}

	// Request languages win over configuration and the export bucket is honoured.
	f.config.ExportBucket = "exports"
	resp, err = f.Process(context.Background(), &models.ExportTextRequest{DocumentID: "doc-1", Languages: []string{"ja"}})
	if err != nil {
		t.Fatal(err)
	}
	if resp.OutputRef != "gs://exports/scans/receipt/OCR Export.rtf" {
		t.Errorf("OutputRef = %q", resp.OutputRef)
	}
	if !slices.Equal(rec.langs[1], []string{"ja"}) {
		t.Errorf("languages = %v, want [ja]", rec.langs[1])
	}
}

func TestTextExporterErrors(t *testing.T) {
	st := store.NewMemory()
	now := time.Now()
	if err := st.Create(context.Background(), models.DocumentRecord{
		ID: "local", ResourceRef: "/srv/docs/a.pdf", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	var saved []savedFile
	f := &TextExporterFunction{
		store:     st,
		resolver:  bucketResolver{dir: t.TempDir()},
		recoverer: &fakeRecoverer{},
		upload:    capturingUploader(&saved),
	}
	ctx := context.Background()

	if _, err := f.Process(ctx, &models.ExportTextRequest{}); !errors.Is(err, ErrBadRequest) {
		t.Errorf("empty id: err = %v", err)
	}
	if _, err := f.Process(ctx, &models.ExportTextRequest{DocumentID: "missing"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown id: err = %v", err)
	}
	if _, err := f.Process(ctx, &models.ExportTextRequest{DocumentID: "local"}); !errors.Is(err, models.ErrAccessDenied) {
		t.Errorf("local resource: err = %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("unexpected uploads %+v", saved)
	}
}
