package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/pdfmanager/internal/gcp"
	"github.com/Lllllllleong/pdfmanager/internal/ingest"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
	"github.com/Lllllllleong/pdfmanager/internal/store"
)

// DocumentIngestorConfig holds configuration for the upload-triggered ingestor.
type DocumentIngestorConfig struct {
	CoreConfig
	WorkflowID       string
	WorkflowLocation string
}

// Trigger starts a downstream workflow for a stored record.
type Trigger interface {
	Trigger(ctx context.Context, payload any) (string, error)
}

// DocumentIngestorFunction ingests every PDF uploaded to a watched bucket.
type DocumentIngestorFunction struct {
	store     store.Store
	resolver  resource.Resolver
	recoverer ingest.Recoverer
	trigger   Trigger
	config    DocumentIngestorConfig
}

// GCSEvent is the payload of a GCS object finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// NewDocumentIngestor creates the function from environment configuration.
// A workflow is triggered after ingestion only when WORKFLOW_ID is set.
func NewDocumentIngestor(ctx context.Context) (*DocumentIngestorFunction, error) {
	coreCfg, err := loadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	config := DocumentIngestorConfig{
		CoreConfig:       *coreCfg,
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}

	c, err := newCore(ctx, coreCfg)
	if err != nil {
		return nil, err
	}
	pipeline, err := newRecoveryPipeline(ctx, coreCfg)
	if err != nil {
		return nil, err
	}

	f := &DocumentIngestorFunction{
		store:     c.store,
		resolver:  c.resolver,
		recoverer: pipeline,
		config:    config,
	}
	if config.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			return nil, err
		}
		f.trigger = trigger
	}
	slog.Info("Document ingestor initialized.", "ocrEngine", config.OCREngine, "workflowId", config.WorkflowID)
	return f, nil
}

// Process ingests the uploaded object and stores its record. Duplicates and
// non-PDF objects are skipped without error.
func (f *DocumentIngestorFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	if !strings.HasSuffix(strings.ToLower(e.Name), ".pdf") {
		logCtx.Info("Ignoring non-PDF object.")
		return nil
	}
	logCtx.Info("Processing new GCS object.")

	in := ingest.New(f.resolver, f.recoverer,
		ingest.WithHashIndex(f.store),
		ingest.WithLanguages(ocr.LanguagesOrDefault(f.config.OCRLanguages)),
		ingest.WithLogger(logCtx),
	)
	outcome := in.Ingest(ctx, []string{resource.GCSRef(e.Bucket, e.Name)})[0]

	switch outcome.Status {
	case ingest.StatusFailed:
		logCtx.Error("Failed to ingest document", "failureKind", outcome.Kind, "error", outcome.Err)
		return fmt.Errorf("failed to ingest gs://%s/%s: %w", e.Bucket, e.Name, outcome.Err)
	case ingest.StatusDuplicate:
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", outcome.Record.ID)
		return nil
	}

	rec := outcome.Record
	logCtx = logCtx.With("documentId", rec.ID)
	if err := f.store.Create(ctx, *rec); err != nil {
		logCtx.Error("Failed to store document record", "error", err)
		return err
	}
	logCtx.Info("Stored document record.", "pageCount", rec.PageCount, "ocrPerformed", rec.OCRPerformed, "tags", rec.Tags)

	if f.trigger == nil {
		return nil
	}
	execName, err := f.trigger.Trigger(ctx, map[string]any{
		"documentId":  rec.ID,
		"resourceRef": rec.ResourceRef,
		"pageCount":   rec.PageCount,
		"tags":        rec.Tags,
	})
	if err != nil {
		logCtx.Error("Failed to trigger workflow", "error", err)
		return err
	}
	if err := f.store.SetWorkflowExecution(ctx, rec.ID, execName); err != nil {
		logCtx.Error("Failed to record workflow execution", "error", err, "execution", execName)
		return err
	}
	logCtx.Info("Hand-off to workflow complete.", "execution", execName)
	return nil
}
