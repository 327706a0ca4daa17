// Package analytics emits best-effort product events. Failures are
// logged, never surfaced to the request that produced them.
package analytics

import "context"

// Event names, matching the original product funnel.
const (
	EventDocumentCreated      = "document_created"
	EventDocumentUpdated      = "document_updated"
	EventDocumentUpdateFailed = "document_update_failed"
	EventDocumentDeleted      = "document_deleted"
	EventTagsUpdated          = "tags_updated"
	EventResourceUploaded     = "resource_uploaded"
	EventResourceDeleted      = "resource_deleted"
)

// Emitter delivers one event for one distinct user.
type Emitter interface {
	Emit(ctx context.Context, event, distinctID string, props map[string]any)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Emit(ctx context.Context, event, distinctID string, props map[string]any) {}
