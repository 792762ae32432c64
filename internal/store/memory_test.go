package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

func newRecord(id string, created time.Time) models.DocumentRecord {
	return models.DocumentRecord{ID: id, FileName: id + ".pdf", FileHash: "hash-" + id, CreatedAt: created, UpdatedAt: created, Tags: []string{"finance"}}
}

func ptr(s string) *string { return &s }

func TestMemoryTags(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if err := m.Create(ctx, newRecord("a", time.Now())); err != nil {
		t.Fatal(err)
	}

	rec, err := m.AddTags(ctx, "a", []string{"travel", "finance", " work "})
	if err != nil {
		t.Fatalf("AddTags() error = %v", err)
	}
	if want := []string{"finance", "travel", "work"}; !reflect.DeepEqual(rec.Tags, want) {
		t.Fatalf("Tags = %v, want %v", rec.Tags, want)
	}

	rec, err = m.RemoveTags(ctx, "a", []string{"finance", "missing"})
	if err != nil {
		t.Fatalf("RemoveTags() error = %v", err)
	}
	if want := []string{"travel", "work"}; !reflect.DeepEqual(rec.Tags, want) {
		t.Fatalf("Tags = %v, want %v", rec.Tags, want)
	}
}

func TestMemoryUpdatedAtNeverBeforeCreatedAt(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return created.Add(-time.Hour) }
	if err := m.Create(ctx, newRecord("a", created)); err != nil {
		t.Fatal(err)
	}
	if err := m.Touch(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	rec, _ := m.Get(ctx, "a")
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		t.Fatalf("UpdatedAt %v before CreatedAt %v", rec.UpdatedAt, rec.CreatedAt)
	}
}

func TestMemoryUpdateFields(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	rec := newRecord("a", time.Now())
	rec.Vendor = ptr("Acme")
	if err := m.Create(ctx, rec); err != nil {
		t.Fatal(err)
	}

	got, err := m.UpdateFields(ctx, "a", FieldEdit{Vendor: ptr(""), Notes: ptr("paid")})
	if err != nil {
		t.Fatalf("UpdateFields() error = %v", err)
	}
	if got.Vendor != nil {
		t.Fatalf("Vendor should be cleared, got %q", *got.Vendor)
	}
	if got.Notes == nil || *got.Notes != "paid" {
		t.Fatalf("Notes = %v", got.Notes)
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.Get(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Get() = %v, want ErrNotFound", err)
	}
	if _, err := m.AddTags(ctx, "nope", []string{"x"}); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("AddTags() = %v, want ErrNotFound", err)
	}
	if _, err := m.Lease(ctx, "nope", "me", time.Minute); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Lease() = %v, want ErrNotFound", err)
	}
}

func TestMemoryFindByHash(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Create(ctx, newRecord("a", time.Now()))

	rec, ok, err := m.FindByHash(ctx, "hash-a")
	if err != nil || !ok || rec.ID != "a" {
		t.Fatalf("FindByHash() = %v, %v, %v", rec.ID, ok, err)
	}
	if _, ok, _ := m.FindByHash(ctx, "other"); ok {
		t.Fatalf("unexpected match")
	}
}

func TestMemoryLease(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }
	_ = m.Create(ctx, newRecord("a", now))

	release, err := m.Lease(ctx, "a", "run-1", time.Minute)
	if err != nil {
		t.Fatalf("Lease() error = %v", err)
	}
	if _, err := m.Lease(ctx, "a", "run-2", time.Minute); !errors.Is(err, models.ErrLocked) {
		t.Fatalf("second Lease() = %v, want ErrLocked", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Lease(ctx, "a", "run-2", time.Minute); err != nil {
		t.Fatalf("expired lease should be taken over: %v", err)
	}
	// run-1 no longer owns the lease, so its release must not drop run-2's.
	_ = release(ctx)
	if _, err := m.Lease(ctx, "a", "run-3", time.Minute); !errors.Is(err, models.ErrLocked) {
		t.Fatalf("Lease() after stale release = %v, want ErrLocked", err)
	}
}
