package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Lllllllleong/pdfmanager/internal/gcp"
	"github.com/Lllllllleong/pdfmanager/internal/ingest"
	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/ocr"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
	"github.com/Lllllllleong/pdfmanager/internal/store"
)

// objectLister returns object names under prefix ending in suffix.
type objectLister func(ctx context.Context, bucket, prefix, suffix string) ([]string, error)

// BatchImporterFunction imports an explicit list of references or every PDF
// under a bucket prefix.
type BatchImporterFunction struct {
	store     store.Store
	resolver  resource.Resolver
	recoverer ingest.Recoverer
	list      objectLister
	config    CoreConfig
}

// NewBatchImporter creates a new BatchImporterFunction instance.
func NewBatchImporter(ctx context.Context) (*BatchImporterFunction, error) {
	config, err := loadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := newCore(ctx, config)
	if err != nil {
		return nil, err
	}
	pipeline, err := newRecoveryPipeline(ctx, config)
	if err != nil {
		return nil, err
	}
	storageClient := c.storageClient
	return &BatchImporterFunction{
		store:     c.store,
		resolver:  c.resolver,
		recoverer: pipeline,
		list: func(ctx context.Context, bucket, prefix, suffix string) ([]string, error) {
			return gcp.ListObjects(ctx, storageClient.Bucket(bucket), prefix, suffix)
		},
		config: *config,
	}, nil
}

// Process ingests the requested references and stores a record for each new
// document. Per-item failures are reported in the response, not as an error.
func (f *BatchImporterFunction) Process(ctx context.Context, req *models.ImportRequest) (*models.ImportResponse, error) {
	logCtx := slog.With("bucket", req.Bucket, "prefix", req.Prefix, "refCount", len(req.Refs))
	logCtx.Info("Starting batch import.")

	refs := append([]string(nil), req.Refs...)
	if req.Bucket != "" {
		names, err := f.list(ctx, req.Bucket, req.Prefix, ".pdf")
		if err != nil {
			logCtx.Error("Failed to list objects in source bucket", "error", err)
			return nil, fmt.Errorf("failed to list PDFs: %w", err)
		}
		sort.Strings(names)
		for _, name := range names {
			refs = append(refs, resource.GCSRef(req.Bucket, name))
		}
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: no refs given and no PDFs found", ErrBadRequest)
	}

	languages := req.Languages
	if len(languages) == 0 {
		languages = f.config.OCRLanguages
	}
	in := ingest.New(f.resolver, f.recoverer,
		ingest.WithConcurrency(f.config.Concurrency),
		ingest.WithHashIndex(f.store),
		ingest.WithLanguages(ocr.LanguagesOrDefault(languages)),
		ingest.WithLogger(logCtx),
	)

	resp := &models.ImportResponse{Status: "success", Items: make([]models.ImportItem, 0, len(refs))}
	for i, o := range in.Ingest(ctx, refs) {
		item := models.ImportItem{Ref: refs[i], Status: string(o.Status)}
		switch o.Status {
		case ingest.StatusIngested:
			if err := f.store.Create(ctx, *o.Record); err != nil {
				logCtx.Error("Failed to store document record", "ref", refs[i], "error", err)
				item.Status = string(ingest.StatusFailed)
				item.FailureKind = models.FailureWrite
				item.Reason = err.Error()
				break
			}
			item.DocumentID = o.Record.ID
		case ingest.StatusDuplicate:
			item.DocumentID = o.Record.ID
		default:
			item.FailureKind = o.Kind
			item.Reason = o.Err.Error()
		}
		if item.Status == string(ingest.StatusFailed) {
			resp.Status = "partial"
		}
		resp.Items = append(resp.Items, item)
	}
	logCtx.Info("Batch import complete.", "status", resp.Status, "items", len(resp.Items))
	return resp, nil
}
