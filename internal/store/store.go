// Package store persists document records.
package store

import (
	"context"
	"slices"
	"time"

	"github.com/Lllllllleong/pdfmanager/internal/classify"
	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// FieldEdit carries user edits to a record. Nil fields are left unchanged;
// a pointer to "" clears the field.
type FieldEdit struct {
	Title     *string
	Author    *string
	Vendor    *string
	Passenger *string
	Airline   *string
	Notes     *string
}

// Empty reports whether the edit changes nothing.
func (e FieldEdit) Empty() bool {
	return e.Title == nil && e.Author == nil && e.Vendor == nil && e.Passenger == nil && e.Airline == nil && e.Notes == nil
}

// Release gives up a lease.
type Release func(ctx context.Context) error

// Store is the record collaborator shared by ingestion, the record editor
// and the workflow runner. Lookups of unknown ids return models.ErrNotFound.
// Every mutation keeps UpdatedAt >= CreatedAt.
type Store interface {
	Create(ctx context.Context, rec models.DocumentRecord) error
	Get(ctx context.Context, id string) (models.DocumentRecord, error)
	FindByHash(ctx context.Context, hash string) (models.DocumentRecord, bool, error)
	AddTags(ctx context.Context, id string, tags []string) (models.DocumentRecord, error)
	RemoveTags(ctx context.Context, id string, tags []string) (models.DocumentRecord, error)
	UpdateFields(ctx context.Context, id string, edit FieldEdit) (models.DocumentRecord, error)
	Touch(ctx context.Context, id string) error
	SetWorkflowExecution(ctx context.Context, id, executionID string) error
	// Lease grants owner exclusive use of the record's resource for ttl.
	// It fails with models.ErrLocked while another owner holds a live lease.
	Lease(ctx context.Context, id, owner string, ttl time.Duration) (Release, error)
}

func addTags(rec *models.DocumentRecord, tags []string) {
	rec.Tags = classify.Merge(rec.Tags, tags)
}

func removeTags(rec *models.DocumentRecord, tags []string) {
	drop := classify.Merge(nil, tags)
	rec.Tags = slices.DeleteFunc(classify.Merge(rec.Tags, nil), func(t string) bool {
		return slices.Contains(drop, t)
	})
}

func applyEdit(rec *models.DocumentRecord, e FieldEdit) {
	set := func(dst **string, v *string) {
		if v == nil {
			return
		}
		if *v == "" {
			*dst = nil
			return
		}
		s := *v
		*dst = &s
	}
	set(&rec.Title, e.Title)
	set(&rec.Author, e.Author)
	set(&rec.Vendor, e.Vendor)
	set(&rec.Passenger, e.Passenger)
	set(&rec.Airline, e.Airline)
	set(&rec.Notes, e.Notes)
}

// touch advances UpdatedAt without letting it fall behind CreatedAt.
func touch(rec *models.DocumentRecord, now time.Time) {
	if now.Before(rec.CreatedAt) {
		now = rec.CreatedAt
	}
	rec.UpdatedAt = now
}
