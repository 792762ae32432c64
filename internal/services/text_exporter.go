package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Lllllllleong/pdfmanager/internal/gcp"
	"github.com/Lllllllleong/pdfmanager/internal/ingest"
	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
	"github.com/Lllllllleong/pdfmanager/internal/rtf"
	"github.com/Lllllllleong/pdfmanager/internal/store"
)

// TextExportName is the object name of an export inside its folder.
const TextExportName = "OCR Export.rtf"

// TextExporterConfig holds configuration for the text exporter.
type TextExporterConfig struct {
	CoreConfig
	ExportBucket string
}

// TextExporterFunction writes the recovered text of a stored document as an
// RTF file, one page per PDF page.
type TextExporterFunction struct {
	store     store.Store
	resolver  resource.Resolver
	recoverer ingest.Recoverer
	upload    fileUploader
	config    TextExporterConfig
}

// NewTextExporter creates a new TextExporterFunction instance.
func NewTextExporter(ctx context.Context) (*TextExporterFunction, error) {
	coreCfg, err := loadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := newCore(ctx, coreCfg)
	if err != nil {
		return nil, err
	}
	pipeline, err := newRecoveryPipeline(ctx, coreCfg)
	if err != nil {
		return nil, err
	}
	return &TextExporterFunction{
		store:     c.store,
		resolver:  c.resolver,
		recoverer: pipeline,
		upload:    gcsUploader(c.storageClient),
		config: TextExporterConfig{
			CoreConfig:   *coreCfg,
			ExportBucket: gcp.GetEnv("EXPORT_BUCKET", ""),
		},
	}, nil
}

// TextExportObject returns where the export of object is written: a folder
// named after the document, next to it.
func TextExportObject(object string) string {
	base := strings.TrimSuffix(path.Base(object), path.Ext(object))
	return path.Join(path.Dir(object), base, TextExportName)
}

// Process recovers the document's text and uploads it as RTF, replacing any
// earlier export of the same document.
func (f *TextExporterFunction) Process(ctx context.Context, req *models.ExportTextRequest) (*models.ExportTextResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID)
	if req.DocumentID == "" {
		return nil, fmt.Errorf("%w: documentId is required", ErrBadRequest)
	}

	rec, err := f.store.Get(ctx, req.DocumentID)
	if err != nil {
		logCtx.Warn("Could not load document record", "error", err)
		return nil, err
	}
	bucket, object, err := resource.ParseGCSRef(rec.ResourceRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a GCS object", models.ErrAccessDenied, rec.ResourceRef)
	}
	if f.config.ExportBucket != "" {
		bucket = f.config.ExportBucket
	}

	h, err := f.resolver.Resolve(ctx, rec.ResourceRef)
	if err != nil {
		logCtx.Error("Could not resolve document resource", "resourceRef", rec.ResourceRef, "error", err)
		return nil, err
	}
	defer h.Close()

	languages := req.Languages
	if len(languages) == 0 {
		languages = f.config.OCRLanguages
	}
	recovered := f.recoverer.Recover(ctx, h.Path, ocr.LanguagesOrDefault(languages))
	pages := recovered.Pages
	if len(pages) == 0 && recovered.Text != "" {
		pages = []string{recovered.Text}
	}

	tmpDir, err := os.MkdirTemp("", "text-export-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	local := filepath.Join(tmpDir, TextExportName)
	if err := writeRTF(local, pages); err != nil {
		return nil, err
	}

	dest := TextExportObject(object)
	if err := f.upload(ctx, bucket, dest, local, "application/rtf"); err != nil {
		logCtx.Error("Failed to upload text export", "bucket", bucket, "object", dest, "error", err)
		return nil, err
	}
	logCtx.Info("Text export uploaded.", "bucket", bucket, "object", dest, "pages", len(pages), "ocr", recovered.OCRPerformed)

	return &models.ExportTextResponse{
		Status:       "success",
		DocumentID:   rec.ID,
		OutputRef:    resource.GCSRef(bucket, dest),
		OCRPerformed: recovered.OCRPerformed,
		PageCount:    len(pages),
	}, nil
}

func writeRTF(local string, pages []string) error {
	out, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := rtf.WritePages(out, pages); err != nil {
		out.Close()
		return fmt.Errorf("failed to write export: %w", err)
	}
	return out.Close()
}
