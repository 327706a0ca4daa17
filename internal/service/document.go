// Package service implements the business logic behind the document and
// resource APIs. Services validate input, enforce the folder invariants,
// and coordinate the primary store, the mirror, blob storage, and
// analytics. Handlers stay thin.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"curiocity/internal/analytics"
	"curiocity/internal/domain"
	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
	"curiocity/internal/domain/services"
)

type documentService struct {
	docs       repositories.DocumentRepository
	metas      repositories.ResourceMetaRepository
	replicator *Replicator
	events     analytics.Emitter
	logger     *slog.Logger
}

// NewDocumentService creates the document service.
func NewDocumentService(
	docs repositories.DocumentRepository,
	metas repositories.ResourceMetaRepository,
	replicator *Replicator,
	events analytics.Emitter,
	logger *slog.Logger,
) services.DocumentService {
	return &documentService{
		docs:       docs,
		metas:      metas,
		replicator: replicator,
		events:     events,
		logger:     logger,
	}
}

func (s *documentService) CreateDocument(ctx context.Context, req *services.CreateDocumentRequest) (*models.Document, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required),
		validation.Field(&req.OwnerID, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	doc := models.NewDocument(uuid.NewString(), req.OwnerID, req.Name, req.Text, req.DateAdded)
	if err := s.docs.Put(ctx, doc); err != nil {
		return nil, err
	}

	// Create is mirrored best-effort; there is no pre-image to restore.
	s.replicator.PutBestEffort(ctx, repositories.TableDocuments, doc)

	s.events.Emit(ctx, analytics.EventDocumentCreated, doc.OwnerID, map[string]any{
		"documentId": doc.ID,
		"name":       doc.Name,
	})
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, id string, touch bool) (*models.Document, error) {
	doc, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if !touch {
		return doc, nil
	}

	prev := doc.Clone()
	doc.LastOpened = models.Now()
	if err := s.docs.Put(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.replicator.DocumentUpdated(ctx, doc, prev); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error) {
	if ownerID == "" {
		return nil, &domain.ValidationError{Message: "ownerID is required"}
	}
	return s.docs.ListByOwner(ctx, ownerID)
}

func (s *documentService) ListDocumentsByLastOpened(ctx context.Context, ownerID string) ([]models.Document, error) {
	docs, err := s.ListDocuments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].LastOpened > docs[j].LastOpened
	})
	return docs, nil
}

func (s *documentService) UpdateDocument(ctx context.Context, id string, req *services.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := doc.Clone()
	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ValidationError{Message: "name cannot be cleared"}
		}
		doc.Name = *req.Name
	}
	if req.Text != nil {
		doc.Text = *req.Text
	}
	if req.LastOpened != nil {
		doc.LastOpened = *req.LastOpened
	}
	if req.Tags != nil {
		doc.Tags = append([]string{}, (*req.Tags)...)
	}

	if err := s.docs.Put(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.replicator.DocumentUpdated(ctx, doc, prev); err != nil {
		s.events.Emit(ctx, analytics.EventDocumentUpdateFailed, doc.OwnerID, map[string]any{
			"documentId": doc.ID,
		})
		return nil, err
	}

	s.events.Emit(ctx, analytics.EventDocumentUpdated, doc.OwnerID, map[string]any{
		"documentId": doc.ID,
	})
	return doc, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}

	// Cascade: every referenced meta row, then the document itself.
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}

	s.replicator.DeleteBestEffort(ctx, repositories.TableDocuments, id)
	for _, folder := range doc.Folders {
		for _, res := range folder.Resources {
			s.replicator.DeleteBestEffort(ctx, repositories.TableResourceMeta, res.ID)
		}
	}

	s.events.Emit(ctx, analytics.EventDocumentDeleted, doc.OwnerID, map[string]any{
		"documentId":    doc.ID,
		"resourceCount": doc.ResourceCount(),
	})
	return nil
}

func (s *documentService) AddFolder(ctx context.Context, documentID, folderName string) (*models.Document, error) {
	if folderName == "" {
		return nil, &domain.ValidationError{Message: "folderName is required"}
	}

	doc, err := s.getExisting(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, exists := doc.Folders[folderName]; exists {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("folder %q already exists", folderName)}
	}

	prev := doc.Clone()
	doc.Folders[folderName] = models.Folder{Name: folderName, Resources: []models.ResourceCompressed{}}
	return s.putAndMirror(ctx, doc, prev)
}

func (s *documentService) RenameFolder(ctx context.Context, documentID, oldName, newName string) (*models.Document, error) {
	if oldName == "" || newName == "" {
		return nil, &domain.ValidationError{Message: "both folder names are required"}
	}
	if oldName == models.GeneralFolder {
		return nil, &domain.ValidationError{Message: "the General folder cannot be renamed"}
	}

	doc, err := s.getExisting(ctx, documentID)
	if err != nil {
		return nil, err
	}
	folder, exists := doc.Folders[oldName]
	if !exists {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("folder %q does not exist", oldName)}
	}
	if _, exists := doc.Folders[newName]; exists {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("folder %q already exists", newName)}
	}

	prev := doc.Clone()
	// The map key and the embedded name move together.
	delete(doc.Folders, oldName)
	folder.Name = newName
	doc.Folders[newName] = folder
	return s.putAndMirror(ctx, doc, prev)
}

func (s *documentService) DeleteFolder(ctx context.Context, documentID, folderName string) (*models.Document, error) {
	if folderName == "" {
		return nil, &domain.ValidationError{Message: "folderName is required"}
	}
	if folderName == models.GeneralFolder {
		return nil, &domain.ValidationError{Message: "the General folder cannot be deleted"}
	}

	doc, err := s.getExisting(ctx, documentID)
	if err != nil {
		return nil, err
	}
	folder, exists := doc.Folders[folderName]
	if !exists {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("folder %q does not exist", folderName)}
	}

	// Folder delete cascades to its meta rows before the document shrinks,
	// so a crash leaves extra meta rows rather than dangling projections.
	for _, res := range folder.Resources {
		if err := s.metas.Delete(ctx, res.ID); err != nil {
			return nil, &domain.StorageError{
				Message: fmt.Sprintf("delete resource meta %s", res.ID),
				Err:     err,
			}
		}
		s.replicator.DeleteBestEffort(ctx, repositories.TableResourceMeta, res.ID)
	}

	prev := doc.Clone()
	delete(doc.Folders, folderName)
	return s.putAndMirror(ctx, doc, prev)
}

func (s *documentService) AddTag(ctx context.Context, documentID, tag string) (*models.Document, error) {
	if tag == "" {
		return nil, &domain.ValidationError{Message: "tag is required"}
	}

	doc, err := s.getExisting(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for _, t := range doc.Tags {
		if t == tag {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("tag %q already exists", tag),
				ResourceType: "tag",
				ResourceID:   tag,
			}
		}
	}

	prev := doc.Clone()
	doc.Tags = append(doc.Tags, tag)
	updated, err := s.putAndMirror(ctx, doc, prev)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, analytics.EventTagsUpdated, doc.OwnerID, map[string]any{
		"documentId": doc.ID,
		"tagCount":   len(doc.Tags),
	})
	return updated, nil
}

func (s *documentService) RemoveTag(ctx context.Context, documentID, tag string) (*models.Document, error) {
	doc, err := s.getExisting(ctx, documentID)
	if err != nil {
		return nil, err
	}

	found := false
	remaining := make([]string, 0, len(doc.Tags))
	for _, t := range doc.Tags {
		if t == tag {
			found = true
			continue
		}
		remaining = append(remaining, t)
	}
	if !found {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("tag %q not found", tag)}
	}

	prev := doc.Clone()
	doc.Tags = remaining
	updated, err := s.putAndMirror(ctx, doc, prev)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, analytics.EventTagsUpdated, doc.OwnerID, map[string]any{
		"documentId": doc.ID,
		"tagCount":   len(doc.Tags),
	})
	return updated, nil
}

func (s *documentService) TouchLastOpened(ctx context.Context, id string) error {
	doc, err := s.getExisting(ctx, id)
	if err != nil {
		return err
	}

	prev := doc.Clone()
	doc.LastOpened = models.Now()
	_, err = s.putAndMirror(ctx, doc, prev)
	return err
}

func (s *documentService) RepairPendingDeletes(ctx context.Context) ([]string, error) {
	pending, err := s.docs.FindPendingDeletes(ctx)
	if err != nil {
		return nil, err
	}

	repaired := make([]string, 0, len(pending))
	for _, doc := range pending {
		// Re-driving the cascade is safe: meta deletes already applied are
		// no-ops the second time around.
		if err := s.docs.Delete(ctx, doc.ID); err != nil {
			s.logger.Error("repair of pending delete failed", "documentId", doc.ID, "error", err)
			continue
		}
		s.replicator.DeleteBestEffort(ctx, repositories.TableDocuments, doc.ID)
		for _, folder := range doc.Folders {
			for _, res := range folder.Resources {
				s.replicator.DeleteBestEffort(ctx, repositories.TableResourceMeta, res.ID)
			}
		}
		repaired = append(repaired, doc.ID)
	}
	return repaired, nil
}

// getExisting loads a document, converting the repository's (nil, nil)
// missing-row convention into a NotFoundError.
func (s *documentService) getExisting(ctx context.Context, id string) (*models.Document, error) {
	if id == "" {
		return nil, &domain.ValidationError{Message: "document id is required"}
	}
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	return doc, nil
}

// putAndMirror persists the mutated document and replicates it with
// pre-image compensation.
func (s *documentService) putAndMirror(ctx context.Context, doc, prev *models.Document) (*models.Document, error) {
	if err := s.docs.Put(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.replicator.DocumentUpdated(ctx, doc, prev); err != nil {
		return nil, err
	}
	return doc, nil
}
