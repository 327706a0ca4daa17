package services

import (
	"context"

	"curiocity/internal/domain/models"
)

// DocumentService owns the Document entity and its embedded folder map.
type DocumentService interface {
	// CreateDocument creates a document seeded with the General folder.
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*models.Document, error)

	// GetDocument retrieves a document; touch additionally updates lastOpened.
	GetDocument(ctx context.Context, id string, touch bool) (*models.Document, error)

	// ListDocuments returns every document owned by ownerID.
	ListDocuments(ctx context.Context, ownerID string) ([]models.Document, error)

	// ListDocumentsByLastOpened returns the owner's documents most
	// recently opened first.
	ListDocumentsByLastOpened(ctx context.Context, ownerID string) ([]models.Document, error)

	// UpdateDocument applies a typed partial update. Folder contents are
	// not reachable through this path.
	UpdateDocument(ctx context.Context, id string, req *UpdateDocumentRequest) (*models.Document, error)

	// DeleteDocument cascade-deletes the document and every resource-meta
	// row its folders reference. Resource (hash) rows are left alone.
	DeleteDocument(ctx context.Context, id string) error

	// AddFolder inserts an empty folder; duplicate names conflict.
	AddFolder(ctx context.Context, documentID, folderName string) (*models.Document, error)

	// RenameFolder moves the folder map entry and its embedded name
	// together. The General folder cannot be renamed.
	RenameFolder(ctx context.Context, documentID, oldName, newName string) (*models.Document, error)

	// DeleteFolder deletes every resource-meta the folder references, then
	// drops the folder. The General folder cannot be deleted.
	DeleteFolder(ctx context.Context, documentID, folderName string) (*models.Document, error)

	// AddTag appends a tag; duplicates conflict.
	AddTag(ctx context.Context, documentID, tag string) (*models.Document, error)

	// RemoveTag removes a tag; absence is NotFound. Survivors keep their
	// relative order.
	RemoveTag(ctx context.Context, documentID, tag string) (*models.Document, error)

	// TouchLastOpened updates only the lastOpened timestamp.
	TouchLastOpened(ctx context.Context, id string) error

	// RepairPendingDeletes re-drives cascades that were interrupted
	// mid-walk, returning the ids it finished.
	RepairPendingDeletes(ctx context.Context) ([]string, error)
}

// CreateDocumentRequest represents a document creation request.
type CreateDocumentRequest struct {
	Name      string `json:"name"`
	OwnerID   string `json:"ownerID"`
	Text      string `json:"text,omitempty"`
	DateAdded string `json:"dateAdded,omitempty"`
}

// UpdateDocumentRequest is the whitelisted patch for a document. nil
// leaves a field alone; a pointer to the zero value clears it. The folder
// map is deliberately absent.
type UpdateDocumentRequest struct {
	Name       *string   `json:"name,omitempty"`
	Text       *string   `json:"text,omitempty"`
	LastOpened *string   `json:"lastOpened,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
}
