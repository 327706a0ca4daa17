package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"path"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"curiocity/internal/analytics"
	"curiocity/internal/domain"
	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
	"curiocity/internal/domain/services"
	"curiocity/internal/extract"
)

type resourceService struct {
	docs             repositories.DocumentRepository
	metas            repositories.ResourceMetaRepository
	resources        repositories.ResourceRepository
	blob             repositories.BlobStore // nil when blob storage is disabled
	extractor        extract.Extractor      // nil when extraction is disabled
	maxMarkdownBytes int
	replicator       *Replicator
	events           analytics.Emitter
	logger           *slog.Logger
}

// NewResourceService creates the resource service. blob and extractor may
// be nil when the corresponding features are disabled.
func NewResourceService(
	docs repositories.DocumentRepository,
	metas repositories.ResourceMetaRepository,
	resources repositories.ResourceRepository,
	blob repositories.BlobStore,
	extractor extract.Extractor,
	maxMarkdownBytes int,
	replicator *Replicator,
	events analytics.Emitter,
	logger *slog.Logger,
) services.ResourceService {
	return &resourceService{
		docs:             docs,
		metas:            metas,
		resources:        resources,
		blob:             blob,
		extractor:        extractor,
		maxMarkdownBytes: maxMarkdownBytes,
		replicator:       replicator,
		events:           events,
		logger:           logger,
	}
}

func (s *resourceService) Upload(ctx context.Context, req *services.UploadResourceRequest) (*services.UploadResourceResult, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.FolderName, validation.Required),
		validation.Field(&req.Name, validation.Required),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if len(req.Content) == 0 && req.URL == "" {
		return nil, &domain.ValidationError{Message: "either content or url is required"}
	}

	doc, err := s.getDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}

	// Links are hashed by their location so the same URL dedupes like the
	// same bytes would.
	var hash string
	if len(req.Content) > 0 {
		hash = hashBytes(req.Content)
	} else {
		hash = hashBytes([]byte(req.URL))
	}

	fileType := req.FileType
	if fileType == "" {
		if req.URL != "" && len(req.Content) == 0 {
			fileType = InferFileType(req.URL)
		} else {
			fileType = InferFileType(req.Name)
		}
	}

	existing, err := s.resources.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	deduped := existing != nil

	var blobResult *repositories.PutResult
	if !deduped {
		res := &models.Resource{ID: hash, URL: req.URL}

		if len(req.Content) > 0 {
			if s.blob != nil {
				blobResult, err = s.blob.Put(ctx, hash, req.Content, contentTypeFor(req.Name))
				if err != nil {
					return nil, &domain.StorageError{Message: "blob upload failed", Err: err}
				}
				res.URL = blobResult.URL
			} else if res.URL == "" {
				res.URL = "blob://" + hash
			}
			res.Markdown = s.extractMarkdown(ctx, req.Content, req.Name)
		} else {
			res.Markdown = extract.SentinelUnsupported
		}

		if err := s.resources.Put(ctx, res); err != nil {
			return nil, err
		}
		s.replicator.PutBestEffort(ctx, repositories.TableResources, res)
	}

	// Every upload gets its own meta row, even when the bytes deduped.
	now := models.Now()
	meta := &models.ResourceMeta{
		ID:         uuid.NewString(),
		Hash:       hash,
		DocumentID: req.DocumentID,
		Name:       req.Name,
		FileType:   fileType,
		Notes:      req.Notes,
		Summary:    req.Summary,
		Tags:       req.Tags,
		DateAdded:  now,
		LastOpened: now,
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if err := s.metas.Put(ctx, meta); err != nil {
		return nil, err
	}
	s.replicator.PutBestEffort(ctx, repositories.TableResourceMeta, meta)

	folder, exists := doc.Folders[req.FolderName]
	if !exists {
		folder = models.Folder{Name: req.FolderName, Resources: []models.ResourceCompressed{}}
	}
	folder.Resources = append(folder.Resources, meta.Compressed())
	doc.Folders[req.FolderName] = folder

	if err := s.docs.Put(ctx, doc); err != nil {
		return nil, err
	}
	s.replicator.PutBestEffort(ctx, repositories.TableDocuments, doc)

	s.events.Emit(ctx, analytics.EventResourceUploaded, doc.OwnerID, map[string]any{
		"documentId": doc.ID,
		"resourceId": meta.ID,
		"fileType":   fileType,
		"deduped":    deduped,
	})

	return &services.UploadResourceResult{
		Meta:     meta,
		Document: doc,
		Blob:     blobResult,
		Deduped:  deduped,
	}, nil
}

func (s *resourceService) GetResource(ctx context.Context, hash string) (*models.Resource, error) {
	if hash == "" {
		return nil, &domain.ValidationError{Message: "resource hash is required"}
	}
	res, err := s.resources.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("resource %s not found", hash)}
	}
	return res, nil
}

func (s *resourceService) GetMeta(ctx context.Context, id string) (*models.ResourceMeta, error) {
	return s.getMeta(ctx, id)
}

func (s *resourceService) UpdateMeta(ctx context.Context, id string, req *services.UpdateResourceMetaRequest) (*models.ResourceMeta, error) {
	meta, err := s.getMeta(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := *meta
	if req.Name != nil {
		if *req.Name == "" {
			return nil, &domain.ValidationError{Message: "name cannot be cleared"}
		}
		meta.Name = *req.Name
	}
	if req.Notes != nil {
		meta.Notes = *req.Notes
	}
	if req.Summary != nil {
		meta.Summary = *req.Summary
	}
	if req.Tags != nil {
		meta.Tags = append([]string{}, (*req.Tags)...)
	}

	if err := s.metas.Put(ctx, meta); err != nil {
		return nil, err
	}
	if err := s.replicator.MetaUpdated(ctx, meta, &prev); err != nil {
		return nil, err
	}

	// A name patch also has to reach the folder projection.
	if req.Name != nil && prev.Name != meta.Name {
		s.syncProjectionName(ctx, meta)
	}
	return meta, nil
}

func (s *resourceService) Rename(ctx context.Context, id, newName string) error {
	if newName == "" {
		return &domain.ValidationError{Message: "name is required"}
	}

	meta, err := s.getMeta(ctx, id)
	if err != nil {
		return err
	}

	prev := *meta
	meta.Name = newName
	if err := s.metas.Put(ctx, meta); err != nil {
		return err
	}
	if err := s.replicator.MetaUpdated(ctx, meta, &prev); err != nil {
		return err
	}

	s.syncProjectionName(ctx, meta)
	return nil
}

// syncProjectionName pushes the canonical name into the owning document's
// folder projection. A missing document or projection is an inconsistency
// worth logging, not an error: the canonical row already renamed.
func (s *resourceService) syncProjectionName(ctx context.Context, meta *models.ResourceMeta) {
	doc, err := s.docs.Get(ctx, meta.DocumentID)
	if err != nil || doc == nil {
		s.logger.Warn("rename could not load owning document",
			"resourceId", meta.ID, "documentId", meta.DocumentID, "error", err)
		return
	}

	prev := doc.Clone()
	found := false
	for name, folder := range doc.Folders {
		for i := range folder.Resources {
			if folder.Resources[i].ID == meta.ID {
				folder.Resources[i].Name = meta.Name
				doc.Folders[name] = folder
				found = true
			}
		}
	}
	if !found {
		s.logger.Warn("renamed resource has no folder projection",
			"resourceId", meta.ID, "documentId", meta.DocumentID)
		return
	}

	if err := s.docs.Put(ctx, doc); err != nil {
		s.logger.Warn("projection rename failed", "resourceId", meta.ID, "error", err)
		return
	}
	if err := s.replicator.DocumentUpdated(ctx, doc, prev); err != nil {
		s.logger.Warn("projection rename mirror failed", "resourceId", meta.ID, "error", err)
	}
}

func (s *resourceService) Move(ctx context.Context, req *services.MoveResourceRequest) error {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.ResourceID, validation.Required),
		validation.Field(&req.SourceFolderName, validation.Required),
		validation.Field(&req.TargetFolderName, validation.Required),
	); err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}

	doc, err := s.getDocument(ctx, req.DocumentID)
	if err != nil {
		return err
	}
	source, ok := doc.Folders[req.SourceFolderName]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %q not found", req.SourceFolderName)}
	}
	target, ok := doc.Folders[req.TargetFolderName]
	if !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("folder %q not found", req.TargetFolderName)}
	}

	idx := -1
	for i, res := range source.Resources {
		if res.ID == req.ResourceID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &domain.NotFoundError{
			Message: fmt.Sprintf("resource %s not in folder %q", req.ResourceID, req.SourceFolderName),
		}
	}
	// Same-folder moves are a no-op, but only after the checks above: a
	// bad folder or resource id still errors.
	if req.SourceFolderName == req.TargetFolderName {
		return nil
	}

	prev := doc.Clone()
	moved := source.Resources[idx]
	source.Resources = append(source.Resources[:idx], source.Resources[idx+1:]...)
	if target.Resources == nil {
		target.Resources = []models.ResourceCompressed{}
	}
	target.Resources = append(target.Resources, moved)
	doc.Folders[req.SourceFolderName] = source
	doc.Folders[req.TargetFolderName] = target

	if err := s.docs.Put(ctx, doc); err != nil {
		return err
	}
	return s.replicator.DocumentUpdated(ctx, doc, prev)
}

func (s *resourceService) Delete(ctx context.Context, id string) error {
	meta, err := s.getMeta(ctx, id)
	if err != nil {
		return err
	}
	doc, err := s.getDocument(ctx, meta.DocumentID)
	if err != nil {
		return err
	}

	prev := doc.Clone()
	detached := false
	for name, folder := range doc.Folders {
		kept := folder.Resources[:0]
		for _, res := range folder.Resources {
			if res.ID == id {
				detached = true
				continue
			}
			kept = append(kept, res)
		}
		folder.Resources = kept
		doc.Folders[name] = folder
	}
	if !detached {
		return &domain.NotFoundError{
			Message: fmt.Sprintf("resource %s not referenced by document %s", id, doc.ID),
		}
	}

	// Detach the projection before the canonical row goes: a crash in
	// between leaves an orphan meta row, never a dangling projection.
	if err := s.docs.Put(ctx, doc); err != nil {
		return err
	}
	if err := s.replicator.DocumentUpdated(ctx, doc, prev); err != nil {
		return err
	}

	if err := s.metas.Delete(ctx, id); err != nil {
		return err
	}
	s.replicator.DeleteBestEffort(ctx, repositories.TableResourceMeta, id)

	s.events.Emit(ctx, analytics.EventResourceDeleted, doc.OwnerID, map[string]any{
		"documentId": doc.ID,
		"resourceId": id,
	})
	return nil
}

func (s *resourceService) GetNotes(ctx context.Context, id string) (string, error) {
	meta, err := s.getMeta(ctx, id)
	if err != nil {
		return "", err
	}
	return meta.Notes, nil
}

func (s *resourceService) SetNotes(ctx context.Context, id, notes string) error {
	return s.patchNotes(ctx, id, notes)
}

func (s *resourceService) ClearNotes(ctx context.Context, id string) error {
	return s.patchNotes(ctx, id, "")
}

func (s *resourceService) patchNotes(ctx context.Context, id, notes string) error {
	meta, err := s.getMeta(ctx, id)
	if err != nil {
		return err
	}

	prev := *meta
	meta.Notes = notes
	if err := s.metas.Put(ctx, meta); err != nil {
		return err
	}
	return s.replicator.MetaUpdated(ctx, meta, &prev)
}

func (s *resourceService) TouchLastOpened(ctx context.Context, id, folderName string) error {
	meta, err := s.getMeta(ctx, id)
	if err != nil {
		return err
	}

	now := models.Now()
	prev := *meta
	meta.LastOpened = now
	if err := s.metas.Put(ctx, meta); err != nil {
		return err
	}
	if err := s.replicator.MetaUpdated(ctx, meta, &prev); err != nil {
		return err
	}

	doc, err := s.docs.Get(ctx, meta.DocumentID)
	if err != nil || doc == nil {
		s.logger.Warn("touch could not load owning document",
			"resourceId", id, "documentId", meta.DocumentID, "error", err)
		return nil
	}

	folder, ok := doc.Folders[folderName]
	if !ok {
		s.logger.Warn("touch folder not found", "resourceId", id, "folder", folderName)
		return nil
	}

	prevDoc := doc.Clone()
	found := false
	for i := range folder.Resources {
		if folder.Resources[i].ID == id {
			folder.Resources[i].LastOpened = now
			found = true
			break
		}
	}
	if !found {
		s.logger.Warn("touch projection not found", "resourceId", id, "folder", folderName)
		return nil
	}
	doc.Folders[folderName] = folder

	if err := s.docs.Put(ctx, doc); err != nil {
		return err
	}
	return s.replicator.DocumentUpdated(ctx, doc, prevDoc)
}

func (s *resourceService) getDocument(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("document %s not found", id)}
	}
	return doc, nil
}

func (s *resourceService) getMeta(ctx context.Context, id string) (*models.ResourceMeta, error) {
	if id == "" {
		return nil, &domain.ValidationError{Message: "resource id is required"}
	}
	meta, err := s.metas.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("resource meta %s not found", id)}
	}
	return meta, nil
}

func (s *resourceService) extractMarkdown(ctx context.Context, content []byte, name string) string {
	if s.extractor == nil {
		return extract.SentinelDisabled
	}
	markdown, err := s.extractor.Extract(ctx, content, contentTypeFor(name))
	if err != nil {
		s.logger.Warn("text extraction failed", "name", name, "error", err)
		return extract.SentinelUnsupported
	}
	return extract.Truncate(markdown, s.maxMarkdownBytes)
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
