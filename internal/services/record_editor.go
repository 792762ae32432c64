package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdfmanager/internal/classify"
	"github.com/Lllllllleong/pdfmanager/internal/models"
	"github.com/Lllllllleong/pdfmanager/internal/store"
)

// RecordEditorFunction applies user edits to stored records.
type RecordEditorFunction struct {
	store store.Store
}

// NewRecordEditor creates a new RecordEditorFunction instance.
func NewRecordEditor(ctx context.Context) (*RecordEditorFunction, error) {
	config, err := loadCoreConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	c, err := newCore(ctx, config)
	if err != nil {
		return nil, err
	}
	return &RecordEditorFunction{store: c.store}, nil
}

// Process applies tag and field edits in order: suggested tags, added tags,
// removed tags, then field edits.
func (f *RecordEditorFunction) Process(ctx context.Context, req *models.EditRecordRequest) (*models.EditRecordResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID)
	if req.DocumentID == "" {
		return nil, fmt.Errorf("%w: documentId is required", ErrBadRequest)
	}

	rec, err := f.store.Get(ctx, req.DocumentID)
	if err != nil {
		logCtx.Warn("Could not load document record", "error", err)
		return nil, err
	}

	if req.SuggestTags && rec.ContentSnippet != nil {
		suggested := classify.Classify(*rec.ContentSnippet)
		if len(suggested) > 0 {
			if rec, err = f.store.AddTags(ctx, rec.ID, suggested); err != nil {
				return nil, fmt.Errorf("failed to add suggested tags: %w", err)
			}
			logCtx.Info("Suggested tags applied.", "tags", suggested)
		}
	}
	if len(req.AddTags) > 0 {
		if rec, err = f.store.AddTags(ctx, rec.ID, req.AddTags); err != nil {
			return nil, fmt.Errorf("failed to add tags: %w", err)
		}
	}
	if len(req.RemoveTags) > 0 {
		if rec, err = f.store.RemoveTags(ctx, rec.ID, req.RemoveTags); err != nil {
			return nil, fmt.Errorf("failed to remove tags: %w", err)
		}
	}

	edit := store.FieldEdit{
		Title:     req.Title,
		Author:    req.Author,
		Vendor:    req.Vendor,
		Passenger: req.Passenger,
		Airline:   req.Airline,
		Notes:     req.Notes,
	}
	if !edit.Empty() {
		if rec, err = f.store.UpdateFields(ctx, rec.ID, edit); err != nil {
			return nil, fmt.Errorf("failed to update fields: %w", err)
		}
	}

	logCtx.Info("Record updated.", "tags", rec.Tags)
	return &models.EditRecordResponse{Status: "success", Record: rec}, nil
}
