package services

import (
	"context"

	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
)

// ResourceService owns Resource (content-addressed blob metadata) and
// ResourceMeta (per-document-folder entry).
type ResourceService interface {
	// Upload stores the bytes (deduplicated by content hash), creates a
	// fresh meta row, and appends its projection to the target folder,
	// creating the folder if the document does not have it yet.
	Upload(ctx context.Context, req *UploadResourceRequest) (*UploadResourceResult, error)

	// GetResource returns the content-addressed row for a hash.
	GetResource(ctx context.Context, hash string) (*models.Resource, error)

	// GetMeta returns the canonical meta row.
	GetMeta(ctx context.Context, id string) (*models.ResourceMeta, error)

	// UpdateMeta applies a typed partial update to the canonical row.
	UpdateMeta(ctx context.Context, id string, req *UpdateResourceMetaRequest) (*models.ResourceMeta, error)

	// Rename updates the canonical row's name and every folder projection
	// referencing it. A projection that cannot be found is logged, not an
	// error.
	Rename(ctx context.Context, id, newName string) error

	// Move splices the projection out of the source folder and appends it
	// to the target folder of the same document.
	Move(ctx context.Context, req *MoveResourceRequest) error

	// Delete detaches the projection from its owning document's folders
	// (absence is an inconsistency, not a no-op), then deletes the
	// canonical row.
	Delete(ctx context.Context, id string) error

	// Notes accessors for the canonical row.
	GetNotes(ctx context.Context, id string) (string, error)
	SetNotes(ctx context.Context, id, notes string) error
	ClearNotes(ctx context.Context, id string) error

	// TouchLastOpened updates lastOpened on the canonical row and on the
	// projection inside the named folder.
	TouchLastOpened(ctx context.Context, id, folderName string) error
}

// UploadResourceRequest carries one upload. Content holds the raw bytes
// for file resources; link resources supply URL instead and are hashed by
// their location.
type UploadResourceRequest struct {
	DocumentID string   `json:"documentId"`
	FolderName string   `json:"folderName"`
	Name       string   `json:"name"`
	Content    []byte   `json:"content,omitempty"`
	URL        string   `json:"url,omitempty"`
	FileType   string   `json:"fileType,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// UploadResourceResult reports the created meta, the updated document, and
// the per-backend blob write flags (partial blob failure is not an error).
type UploadResourceResult struct {
	Meta     *models.ResourceMeta    `json:"meta"`
	Document *models.Document        `json:"document"`
	Blob     *repositories.PutResult `json:"blob,omitempty"`
	Deduped  bool                    `json:"deduped"`
}

// UpdateResourceMetaRequest is the whitelisted patch for a meta row. nil
// leaves a field alone; a pointer to the zero value clears it.
type UpdateResourceMetaRequest struct {
	Name    *string   `json:"name,omitempty"`
	Notes   *string   `json:"notes,omitempty"`
	Summary *string   `json:"summary,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// MoveResourceRequest moves one resource projection between folders.
type MoveResourceRequest struct {
	DocumentID       string `json:"documentId"`
	ResourceID       string `json:"resourceId"`
	SourceFolderName string `json:"sourceFolderName"`
	TargetFolderName string `json:"targetFolderName"`
}
