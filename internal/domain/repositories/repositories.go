package repositories

import (
	"context"
	"time"

	"curiocity/internal/domain/models"
)

// Table names used by the mirror's table-keyed operations.
const (
	TableDocuments    = "Documents"
	TableResources    = "Resources"
	TableResourceMeta = "ResourceMeta"
)

// DocumentRepository is the primary store's document table.
//
// Get on a missing id returns (nil, nil), never an error. Put is a
// conditional upsert: a document is written only if the stored version
// still matches the version it was read at (Version 0 means "create"),
// and the version is incremented on success; a mismatch returns a
// conflict. Delete cascades over the embedded folder tree, removing every
// referenced resource-meta row before the document row itself.
type DocumentRepository interface {
	Get(ctx context.Context, id string) (*models.Document, error)
	Put(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error)

	// MarkDeletePending persists the pre-cascade marker.
	MarkDeletePending(ctx context.Context, id string, at string) error
	// FindPendingDeletes returns documents whose cascade was started but
	// never finished, for the repair sweep.
	FindPendingDeletes(ctx context.Context) ([]models.Document, error)
}

// ResourceMetaRepository is the primary store's resource-metadata table.
// Puts are plain upserts; only the document row is contended.
type ResourceMetaRepository interface {
	Get(ctx context.Context, id string) (*models.ResourceMeta, error)
	Put(ctx context.Context, meta *models.ResourceMeta) error
	Delete(ctx context.Context, id string) error
}

// ResourceRepository is the primary store's content-addressed blob
// metadata table, keyed by hash. Rows are written once and never updated.
type ResourceRepository interface {
	Get(ctx context.Context, hash string) (*models.Resource, error)
	Put(ctx context.Context, res *models.Resource) error
	Delete(ctx context.Context, hash string) error
}

// MirrorStore is the optional relational mirror, written best-effort
// alongside the primary. It never participates in cascade deletes; a
// schema gate rejects records missing required fields before any write.
type MirrorStore interface {
	Put(ctx context.Context, table string, record any) error
	Delete(ctx context.Context, table, id string) error
}

// PresignOp selects the operation a presigned URL grants.
type PresignOp string

const (
	PresignGet PresignOp = "get"
	PresignPut PresignOp = "put"
)

// PutResult reports the outcome of a dual-backend blob write. The write
// succeeded if at least one backend accepted it; partial failure is
// surfaced through the flags, not as an error.
type PutResult struct {
	URL          string `json:"url"`
	GCSSuccess   bool   `json:"gcsSuccess"`
	DriveSuccess bool   `json:"driveSuccess"`
}

// BlobStore holds uploaded file bytes in object storage, keyed by content
// hash, fronted by time-limited signed URLs.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (*PutResult, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Presign(ctx context.Context, key string, op PresignOp, ttl time.Duration) (*PutResult, error)
}
