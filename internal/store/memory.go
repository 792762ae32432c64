package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Lllllllleong/pdfmanager/internal/models"
)

type lease struct {
	owner   string
	expires time.Time
}

// Memory is an in-process Store used by tests and local runs.
type Memory struct {
	mu      sync.Mutex
	records map[string]models.DocumentRecord
	leases  map[string]lease
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]models.DocumentRecord),
		leases:  make(map[string]lease),
		now:     time.Now,
	}
}

func clone(rec models.DocumentRecord) models.DocumentRecord {
	rec.Tags = slices.Clone(rec.Tags)
	rec.OCRLanguages = slices.Clone(rec.OCRLanguages)
	rec.DetectedLanguageCodes = slices.Clone(rec.DetectedLanguageCodes)
	return rec
}

func (m *Memory) Create(ctx context.Context, rec models.DocumentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.ID]; ok {
		return fmt.Errorf("record %s already exists", rec.ID)
	}
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return models.DocumentRecord{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return clone(rec), nil
}

func (m *Memory) FindByHash(ctx context.Context, hash string) (models.DocumentRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.records {
		if rec.FileHash != "" && rec.FileHash == hash {
			return clone(rec), true, nil
		}
	}
	return models.DocumentRecord{}, false, nil
}

func (m *Memory) mutate(id string, fn func(rec *models.DocumentRecord)) (models.DocumentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return models.DocumentRecord{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	rec = clone(rec)
	fn(&rec)
	touch(&rec, m.now())
	m.records[id] = rec
	return clone(rec), nil
}

func (m *Memory) AddTags(ctx context.Context, id string, tags []string) (models.DocumentRecord, error) {
	return m.mutate(id, func(rec *models.DocumentRecord) { addTags(rec, tags) })
}

func (m *Memory) RemoveTags(ctx context.Context, id string, tags []string) (models.DocumentRecord, error) {
	return m.mutate(id, func(rec *models.DocumentRecord) { removeTags(rec, tags) })
}

func (m *Memory) UpdateFields(ctx context.Context, id string, edit FieldEdit) (models.DocumentRecord, error) {
	return m.mutate(id, func(rec *models.DocumentRecord) { applyEdit(rec, edit) })
}

func (m *Memory) Touch(ctx context.Context, id string) error {
	_, err := m.mutate(id, func(*models.DocumentRecord) {})
	return err
}

func (m *Memory) SetWorkflowExecution(ctx context.Context, id, executionID string) error {
	_, err := m.mutate(id, func(rec *models.DocumentRecord) { rec.LastWorkflowExecutionID = executionID })
	return err
}

func (m *Memory) Lease(ctx context.Context, id, owner string, ttl time.Duration) (Release, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	now := m.now()
	if l, ok := m.leases[id]; ok && l.owner != owner && now.Before(l.expires) {
		return nil, fmt.Errorf("%w: %s held by %s", models.ErrLocked, id, l.owner)
	}
	m.leases[id] = lease{owner: owner, expires: now.Add(ttl)}
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if l, ok := m.leases[id]; ok && l.owner == owner {
			delete(m.leases, id)
		}
		return nil
	}, nil
}
