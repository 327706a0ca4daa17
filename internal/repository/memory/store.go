// Package memory provides in-memory implementations of the store
// interfaces for tests and credential-free local development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"curiocity/internal/domain"
	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
)

// Store holds all three primary tables behind one mutex.
type Store struct {
	mu        sync.RWMutex
	documents map[string]*models.Document
	metas     map[string]*models.ResourceMeta
	resources map[string]*models.Resource

	// FailDocumentPut forces the next document Put to fail, for
	// exercising primary-write error paths.
	FailDocumentPut bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]*models.Document),
		metas:     make(map[string]*models.ResourceMeta),
		resources: make(map[string]*models.Resource),
	}
}

// Documents returns the store's DocumentRepository view.
func (s *Store) Documents() repositories.DocumentRepository { return (*documentRepo)(s) }

// Metas returns the store's ResourceMetaRepository view.
func (s *Store) Metas() repositories.ResourceMetaRepository { return (*metaRepo)(s) }

// Resources returns the store's ResourceRepository view.
func (s *Store) Resources() repositories.ResourceRepository { return (*resourceRepo)(s) }

type documentRepo Store

func (r *documentRepo) Get(ctx context.Context, id string) (*models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, nil
	}
	return doc.Clone(), nil
}

func (r *documentRepo) Put(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailDocumentPut {
		r.FailDocumentPut = false
		return fmt.Errorf("document put: %w", domain.ErrStorage)
	}

	existing, ok := r.documents[doc.ID]
	if doc.Version == 0 {
		if ok {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("document %s already exists", doc.ID),
				ResourceType: "document",
				ResourceID:   doc.ID,
			}
		}
		doc.Version = 1
		r.documents[doc.ID] = doc.Clone()
		return nil
	}

	if !ok || existing.Version != doc.Version {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s was modified concurrently", doc.ID),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
	doc.Version++
	r.documents[doc.ID] = doc.Clone()
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	doc.DeletePending = models.Now()
	for _, folder := range doc.Folders {
		for _, res := range folder.Resources {
			delete(r.metas, res.ID)
		}
	}
	delete(r.documents, id)
	return nil
}

func (r *documentRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := []models.Document{}
	for _, doc := range r.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, *doc.Clone())
		}
	}
	return docs, nil
}

func (r *documentRepo) MarkDeletePending(ctx context.Context, id string, at string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.documents[id]; ok {
		doc.DeletePending = at
	}
	return nil
}

func (r *documentRepo) FindPendingDeletes(ctx context.Context) ([]models.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := []models.Document{}
	for _, doc := range r.documents {
		if doc.DeletePending != "" {
			docs = append(docs, *doc.Clone())
		}
	}
	return docs, nil
}

type metaRepo Store

func (r *metaRepo) Get(ctx context.Context, id string) (*models.ResourceMeta, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	meta, ok := r.metas[id]
	if !ok {
		return nil, nil
	}
	cp := *meta
	cp.Tags = append([]string(nil), meta.Tags...)
	return &cp, nil
}

func (r *metaRepo) Put(ctx context.Context, meta *models.ResourceMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *meta
	cp.Tags = append([]string(nil), meta.Tags...)
	r.metas[meta.ID] = &cp
	return nil
}

func (r *metaRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.metas, id)
	return nil
}

type resourceRepo Store

func (r *resourceRepo) Get(ctx context.Context, hash string) (*models.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[hash]
	if !ok {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

func (r *resourceRepo) Put(ctx context.Context, res *models.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *res
	r.resources[res.ID] = &cp
	return nil
}

func (r *resourceRepo) Delete(ctx context.Context, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, hash)
	return nil
}

// Mirror is an in-memory MirrorStore double. Records are stored by table
// and id; FailNextPut simulates a mirror outage for compensation tests.
type Mirror struct {
	mu          sync.Mutex
	records     map[string]map[string]any
	FailNextPut bool
	PutCount    int
}

// NewMirror creates an empty mirror double.
func NewMirror() *Mirror {
	return &Mirror{records: make(map[string]map[string]any)}
}

func (m *Mirror) Put(ctx context.Context, table string, record any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCount++
	if m.FailNextPut {
		m.FailNextPut = false
		return fmt.Errorf("mirror put to %s: %w", table, domain.ErrStorage)
	}

	id := recordID(record)
	if id == "" {
		return fmt.Errorf("record for %s has no id", table)
	}
	if m.records[table] == nil {
		m.records[table] = make(map[string]any)
	}
	m.records[table][id] = record
	return nil
}

func (m *Mirror) Delete(ctx context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records[table], id)
	return nil
}

// Get returns a mirrored record, for assertions.
func (m *Mirror) Get(table, id string) any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[table][id]
}

func recordID(record any) string {
	switch rec := record.(type) {
	case *models.Document:
		return rec.ID
	case *models.ResourceMeta:
		return rec.ID
	case *models.Resource:
		return rec.ID
	default:
		return ""
	}
}
