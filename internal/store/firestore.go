package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

// Firestore stores one document per record in a collection, keyed by the
// record id. Leases live in a sibling collection named "<collection>-leases".
type Firestore struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	return &Firestore{client: client, collection: collection, now: time.Now}
}

type leaseDoc struct {
	Owner     string    `firestore:"owner"`
	ExpiresAt time.Time `firestore:"expiresAt"`
}

var errNoDocument = errors.New("document does not exist")

func (s *Firestore) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

func (s *Firestore) Create(ctx context.Context, rec models.DocumentRecord) error {
	if _, err := s.doc(rec.ID).Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to create record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Firestore) Get(ctx context.Context, id string) (models.DocumentRecord, error) {
	snap, err := s.doc(id).Get(ctx)
	if snap != nil && !snap.Exists() {
		return models.DocumentRecord{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	var rec models.DocumentRecord
	if err := snap.DataTo(&rec); err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to decode record %s: %w", id, err)
	}
	return rec, nil
}

func (s *Firestore) FindByHash(ctx context.Context, hash string) (models.DocumentRecord, bool, error) {
	docs, err := s.client.Collection(s.collection).Where("fileHash", "==", hash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return models.DocumentRecord{}, false, fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) == 0 {
		return models.DocumentRecord{}, false, nil
	}
	var rec models.DocumentRecord
	if err := docs[0].DataTo(&rec); err != nil {
		return models.DocumentRecord{}, false, fmt.Errorf("failed to decode record %s: %w", docs[0].Ref.ID, err)
	}
	return rec, true, nil
}

// mutate applies fn to the stored record inside a transaction.
func (s *Firestore) mutate(ctx context.Context, id string, fn func(rec *models.DocumentRecord)) (models.DocumentRecord, error) {
	ref := s.doc(id)
	var out models.DocumentRecord
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if snap != nil && !snap.Exists() {
			return errNoDocument
		}
		if err != nil {
			return err
		}
		var rec models.DocumentRecord
		if err := snap.DataTo(&rec); err != nil {
			return err
		}
		fn(&rec)
		touch(&rec, s.now())
		out = rec
		return tx.Set(ref, rec)
	})
	if errors.Is(err, errNoDocument) {
		return models.DocumentRecord{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.DocumentRecord{}, fmt.Errorf("failed to update record %s: %w", id, err)
	}
	return out, nil
}

func (s *Firestore) AddTags(ctx context.Context, id string, tags []string) (models.DocumentRecord, error) {
	return s.mutate(ctx, id, func(rec *models.DocumentRecord) { addTags(rec, tags) })
}

func (s *Firestore) RemoveTags(ctx context.Context, id string, tags []string) (models.DocumentRecord, error) {
	return s.mutate(ctx, id, func(rec *models.DocumentRecord) { removeTags(rec, tags) })
}

func (s *Firestore) UpdateFields(ctx context.Context, id string, edit FieldEdit) (models.DocumentRecord, error) {
	return s.mutate(ctx, id, func(rec *models.DocumentRecord) { applyEdit(rec, edit) })
}

func (s *Firestore) Touch(ctx context.Context, id string) error {
	_, err := s.mutate(ctx, id, func(*models.DocumentRecord) {})
	return err
}

func (s *Firestore) SetWorkflowExecution(ctx context.Context, id, executionID string) error {
	_, err := s.mutate(ctx, id, func(rec *models.DocumentRecord) { rec.LastWorkflowExecutionID = executionID })
	return err
}

// Lease takes or refreshes the lease document in a transaction. An expired
// lease held by another owner is taken over.
func (s *Firestore) Lease(ctx context.Context, id, owner string, ttl time.Duration) (Release, error) {
	ref := s.client.Collection(s.collection + "-leases").Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		missing := snap != nil && !snap.Exists()
		if err != nil && !missing {
			return err
		}
		now := s.now()
		if !missing {
			var cur leaseDoc
			if err := snap.DataTo(&cur); err != nil {
				return err
			}
			if cur.Owner != owner && now.Before(cur.ExpiresAt) {
				return fmt.Errorf("%w: %s held by %s until %s", models.ErrLocked, id, cur.Owner, cur.ExpiresAt.Format(time.RFC3339))
			}
		}
		return tx.Set(ref, leaseDoc{Owner: owner, ExpiresAt: now.Add(ttl)})
	})
	if err != nil {
		if errors.Is(err, models.ErrLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire lease on %s: %w", id, err)
	}

	return func(ctx context.Context) error {
		return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			snap, err := tx.Get(ref)
			if snap != nil && !snap.Exists() {
				return nil
			}
			if err != nil {
				return err
			}
			var cur leaseDoc
			if err := snap.DataTo(&cur); err != nil {
				return err
			}
			if cur.Owner != owner {
				return nil
			}
			return tx.Delete(ref)
		})
	}, nil
}
