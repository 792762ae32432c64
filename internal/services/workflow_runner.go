package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfmanager/internal/gcp"
	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/raster"
	"github.com/Lllllllleong/pdfmanager/internal/resource"
	"github.com/Lllllllleong/pdfmanager/internal/store"
	"github.com/Lllllllleong/pdfmanager/internal/workflow"
)

// DefaultLeaseTTL bounds how long one run may hold a document.
const DefaultLeaseTTL = 10 * time.Minute

// WorkflowRunnerConfig holds configuration for the workflow runner.
type WorkflowRunnerConfig struct {
	CoreConfig
	ExportBucket string
	LeaseTTL     time.Duration
}

// fileUploader copies a local file to gs://bucket/object.
type fileUploader func(ctx context.Context, bucket, object, localPath, contentType string) error

// WorkflowRunnerFunction applies a workflow to the resource of a stored record.
type WorkflowRunnerFunction struct {
	store    store.Store
	resolver resource.Resolver
	engine   *workflow.Engine
	upload   fileUploader
	config   WorkflowRunnerConfig
}

// NewWorkflowRunner creates a new WorkflowRunnerFunction instance.
func NewWorkflowRunner(ctx context.Context) (*WorkflowRunnerFunction, error) {
	coreCfg, err := loadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	config := WorkflowRunnerConfig{
		CoreConfig:   *coreCfg,
		ExportBucket: gcp.GetEnv("EXPORT_BUCKET", ""),
		LeaseTTL:     gcp.GetEnvDuration("LEASE_TTL", DefaultLeaseTTL),
	}
	c, err := newCore(ctx, coreCfg)
	if err != nil {
		return nil, err
	}
	return &WorkflowRunnerFunction{
		store:    c.store,
		resolver: c.resolver,
		engine:   workflow.New(raster.NewMuPDF(), workflow.WithLogger(slog.Default())),
		upload:   gcsUploader(c.storageClient),
		config:   config,
	}, nil
}

// Process runs req.Workflow against the document's resource. The record is
// leased for the duration of the run; changes are committed back to the
// resource, and the record touched, only when at least one step succeeded.
func (f *WorkflowRunnerFunction) Process(ctx context.Context, req *models.RunWorkflowRequest) (*models.RunWorkflowResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "workflowId", req.Workflow.ID, "executionId", req.ExecutionID)
	if req.DocumentID == "" {
		return nil, fmt.Errorf("%w: documentId is required", ErrBadRequest)
	}
	wf, err := requestedWorkflow(req)
	if err != nil {
		logCtx.Warn("Rejected workflow request", "error", err)
		return nil, err
	}
	logCtx.Info("Starting workflow run.", "steps", len(wf.Steps), "quickFlow", req.QuickFlow)

	rec, err := f.store.Get(ctx, req.DocumentID)
	if err != nil {
		logCtx.Warn("Could not load document record", "error", err)
		return nil, err
	}

	owner := req.ExecutionID
	if owner == "" {
		owner = uuid.NewString()
	}
	release, err := f.store.Lease(ctx, rec.ID, owner, f.config.LeaseTTL)
	if err != nil {
		logCtx.Warn("Could not lease document", "error", err)
		return nil, err
	}
	defer func() {
		if err := release(context.Background()); err != nil {
			logCtx.Error("Failed to release lease", "error", err)
		}
	}()

	runCtx, cancel := context.WithTimeout(ctx, f.config.LeaseTTL)
	defer cancel()

	h, err := f.resolver.Resolve(runCtx, rec.ResourceRef)
	if err != nil {
		logCtx.Error("Could not resolve document resource", "resourceRef", rec.ResourceRef, "error", err)
		return f.respond(req, failedResult(wf, err)), nil
	}
	defer h.Close()

	result := f.engine.Execute(runCtx, h.Path, wf)

	if !anySucceeded(result) {
		logCtx.Warn("Workflow run changed nothing.", "failures", len(result.Failures()))
		return f.respond(req, result), nil
	}

	if err := h.Commit(runCtx); err != nil {
		logCtx.Error("Failed to commit workflow output", "error", err)
		return nil, err
	}
	if err := f.uploadExports(runCtx, logCtx, rec.ResourceRef, result); err != nil {
		logCtx.Error("Failed to upload exported images", "error", err)
		return nil, err
	}
	if err := f.store.Touch(ctx, rec.ID); err != nil {
		logCtx.Error("Failed to update record timestamp", "error", err)
		return nil, err
	}
	if req.ExecutionID != "" {
		if err := f.store.SetWorkflowExecution(ctx, rec.ID, req.ExecutionID); err != nil {
			logCtx.Error("Failed to record workflow execution", "error", err)
			return nil, err
		}
	}

	logCtx.Info("Workflow run complete.", "overallSuccess", result.OverallSuccess, "failures", len(result.Failures()))
	return f.respond(req, result), nil
}

func (f *WorkflowRunnerFunction) respond(req *models.RunWorkflowRequest, result models.WorkflowResult) *models.RunWorkflowResponse {
	status := "success"
	if !result.OverallSuccess {
		status = "partial"
	}
	return &models.RunWorkflowResponse{Status: status, DocumentID: req.DocumentID, Result: result}
}

// uploadExports copies exported images of a GCS-hosted document next to the
// source object, or into EXPORT_BUCKET when configured.
func (f *WorkflowRunnerFunction) uploadExports(ctx context.Context, logCtx *slog.Logger, ref string, result models.WorkflowResult) error {
	bucket, object, err := resource.ParseGCSRef(ref)
	if err != nil {
		return nil // Local resources keep their images on disk.
	}
	if f.config.ExportBucket != "" {
		bucket = f.config.ExportBucket
	}
	destDir := path.Base(workflow.ExportDir(object))
	if dir := path.Dir(object); dir != "." {
		destDir = path.Join(dir, destDir)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(10)
	for _, o := range result.Ledger {
		for _, local := range o.Outputs {
			dest := path.Join(destDir, filepath.Base(local))
			eg.Go(func() error {
				if err := f.upload(gctx, bucket, dest, local, "image/jpeg"); err != nil {
					return fmt.Errorf("%s: %w", dest, err)
				}
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logCtx.Info("Exported images uploaded.", "bucket", bucket, "prefix", destDir)
	return nil
}

// requestedWorkflow returns the workflow a request asks for. A quick flow
// request carries no steps of its own and needs at least one password for
// its encrypt step.
func requestedWorkflow(req *models.RunWorkflowRequest) (models.Workflow, error) {
	if !req.QuickFlow {
		return req.Workflow, nil
	}
	if len(req.Workflow.Steps) > 0 {
		return models.Workflow{}, fmt.Errorf("%w: quickFlow cannot be combined with workflow steps", ErrBadRequest)
	}
	if isBlank(req.UserPassword) && isBlank(req.OwnerPassword) {
		return models.Workflow{}, fmt.Errorf("%w: quick flow needs a user or owner password", models.ErrInvalidStep)
	}
	id := req.Workflow.ID
	if id == "" {
		id = "quick-flow"
	}
	return models.QuickFlow(id, req.UserPassword, req.OwnerPassword), nil
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

// failedResult records every step as failed with err.
func failedResult(wf models.Workflow, err error) models.WorkflowResult {
	now := time.Now()
	res := models.WorkflowResult{WorkflowID: wf.ID, StartedAt: now, FinishedAt: now}
	for i, step := range wf.Steps {
		res.Ledger = append(res.Ledger, models.StepOutcome{
			Index:  i,
			Step:   step,
			Status: models.OutcomeFailure,
			Kind:   models.FailureKindOf(err),
			Reason: err.Error(),
		})
	}
	res.OverallSuccess = len(res.Ledger) == 0
	return res
}

func anySucceeded(res models.WorkflowResult) bool {
	for _, o := range res.Ledger {
		if o.Status == models.OutcomeSuccess {
			return true
		}
	}
	return false
}

