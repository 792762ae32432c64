// Package workflow applies ordered document transformations to a PDF on
// disk and records the outcome of every step.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/raster"
)

// StepResult is what a successful operation reports back to the ledger.
type StepResult struct {
	Detail  string
	Outputs []string
}

// Operation performs one step on the file at path. Mutating operations
// must leave path untouched when they fail.
type Operation func(ctx context.Context, path string, step models.Step) (StepResult, error)

// Engine runs workflows. Runs on the same path are serialized.
type Engine struct {
	ops    map[models.StepKind]Operation
	locker *KeyedLocker
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithOperation replaces the implementation of one step kind.
func WithOperation(kind models.StepKind, op Operation) Option {
	return func(e *Engine) { e.ops[kind] = op }
}

// WithLocker shares a locker between engines.
func WithLocker(l *KeyedLocker) Option {
	return func(e *Engine) { e.locker = l }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine with the built-in operations. rasterizer backs the
// exportImages step.
func New(rasterizer raster.Rasterizer, opts ...Option) *Engine {
	e := &Engine{
		locker: NewKeyedLocker(),
		logger: slog.Default(),
		now:    time.Now,
	}
	e.ops = map[models.StepKind]Operation{
		models.StepCompress:       compress,
		models.StepTextWatermark:  textWatermark,
		models.StepAddPageNumbers: addPageNumbers,
		models.StepEncrypt:        encrypt,
		models.StepDecrypt:        decrypt,
		models.StepRotate:         rotate,
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, ok := e.ops[models.StepExportImages]; !ok && rasterizer != nil {
		e.ops[models.StepExportImages] = exportImages(rasterizer, e.logger)
	}
	return e
}

// Execute applies wf.Steps to path in order. A failing step is recorded and
// the remaining steps still run. Once ctx is done every remaining step is
// recorded as canceled.
func (e *Engine) Execute(ctx context.Context, path string, wf models.Workflow) models.WorkflowResult {
	logCtx := e.logger.With("workflowId", wf.ID, "path", path)
	result := models.WorkflowResult{
		WorkflowID: wf.ID,
		Ledger:     make([]models.StepOutcome, 0, len(wf.Steps)),
		StartedAt:  e.now(),
	}

	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	unlock, lockErr := e.locker.Lock(ctx, key)
	if lockErr == nil {
		defer unlock()
	}

	for i, step := range wf.Steps {
		outcome := models.StepOutcome{Index: i, Step: step}
		var res StepResult
		var err error
		switch {
		case lockErr != nil:
			err = lockErr
		case ctx.Err() != nil:
			err = ctx.Err()
		default:
			res, err = e.run(ctx, path, step)
		}

		if err != nil {
			outcome.Status = models.OutcomeFailure
			outcome.Kind = models.FailureKindOf(err)
			outcome.Reason = err.Error()
			logCtx.Warn("Workflow step failed.", "index", i, "kind", step.Kind, "failureKind", outcome.Kind, "error", err)
		} else {
			outcome.Status = models.OutcomeSuccess
			outcome.Detail = res.Detail
			outcome.Outputs = res.Outputs
			logCtx.Info("Workflow step succeeded.", "index", i, "kind", step.Kind)
		}
		result.Ledger = append(result.Ledger, outcome)
	}

	result.OverallSuccess = true
	for _, o := range result.Ledger {
		if o.Status != models.OutcomeSuccess {
			result.OverallSuccess = false
		}
	}
	result.FinishedAt = e.now()
	logCtx.Info("Workflow finished.", "steps", len(result.Ledger), "overallSuccess", result.OverallSuccess)
	return result
}

func (e *Engine) run(ctx context.Context, path string, step models.Step) (StepResult, error) {
	if err := step.Validate(); err != nil {
		return StepResult{}, err
	}
	op, ok := e.ops[step.Kind]
	if !ok {
		return StepResult{}, fmt.Errorf("%w: no operation registered for %q", models.ErrInvalidStep, step.Kind)
	}
	return op(ctx, path, step)
}
