package service

import (
	"context"
	"fmt"
	"log/slog"

	"curiocity/internal/domain"
	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
)

// Replicator is the dual-write coordinator shared by the document and
// resource services. When the mirror is configured, update-shaped writes
// follow: primary first; mirror second; on mirror failure the pre-image
// is re-written to the primary so the two stores never observably diverge
// past the failed request. This is best-effort with synchronous
// compensation, not two-phase commit: a crash between the two writes
// leaves divergence the compensation cannot see.
//
// Create- and delete-shaped writes stay asymmetric: mirror failure is
// logged but nothing is unwound.
type Replicator struct {
	mirror repositories.MirrorStore // nil when the mirror is disabled
	docs   repositories.DocumentRepository
	metas  repositories.ResourceMetaRepository
	logger *slog.Logger
}

// NewReplicator creates the coordinator. mirror may be nil.
func NewReplicator(
	mirror repositories.MirrorStore,
	docs repositories.DocumentRepository,
	metas repositories.ResourceMetaRepository,
	logger *slog.Logger,
) *Replicator {
	return &Replicator{
		mirror: mirror,
		docs:   docs,
		metas:  metas,
		logger: logger,
	}
}

// Enabled reports whether a mirror is configured.
func (r *Replicator) Enabled() bool { return r.mirror != nil }

// DocumentUpdated mirrors an already-persisted document update. prev is
// the pre-image; on mirror failure it is written back to the primary and
// a storage error is returned.
func (r *Replicator) DocumentUpdated(ctx context.Context, updated, prev *models.Document) error {
	if r.mirror == nil {
		return nil
	}

	if err := r.mirror.Put(ctx, repositories.TableDocuments, updated); err != nil {
		r.logger.Error("mirror write failed, compensating primary",
			"table", repositories.TableDocuments, "id", updated.ID, "error", err)
		r.compensateDocument(ctx, updated, prev)
		return &domain.StorageError{
			Message: fmt.Sprintf("mirror write for document %s failed", updated.ID),
			Err:     err,
		}
	}
	return nil
}

// compensateDocument restores the pre-image over the just-written update.
// The restore rides the version the update landed at, so it cannot lose
// to the update itself. Compensation failure is logged and swallowed: the
// caller is already returning the mirror error.
func (r *Replicator) compensateDocument(ctx context.Context, updated, prev *models.Document) {
	restore := prev.Clone()
	restore.Version = updated.Version
	if err := r.docs.Put(ctx, restore); err != nil {
		r.logger.Error("primary compensation failed, stores diverged",
			"table", repositories.TableDocuments, "id", prev.ID, "error", err)
	}
}

// MetaUpdated mirrors an already-persisted resource-meta update with the
// same compensation shape.
func (r *Replicator) MetaUpdated(ctx context.Context, updated, prev *models.ResourceMeta) error {
	if r.mirror == nil {
		return nil
	}

	if err := r.mirror.Put(ctx, repositories.TableResourceMeta, updated); err != nil {
		r.logger.Error("mirror write failed, compensating primary",
			"table", repositories.TableResourceMeta, "id", updated.ID, "error", err)
		if cerr := r.metas.Put(ctx, prev); cerr != nil {
			r.logger.Error("primary compensation failed, stores diverged",
				"table", repositories.TableResourceMeta, "id", prev.ID, "error", cerr)
		}
		return &domain.StorageError{
			Message: fmt.Sprintf("mirror write for resource meta %s failed", updated.ID),
			Err:     err,
		}
	}
	return nil
}

// PutBestEffort mirrors a create-shaped write; failure is logged only.
func (r *Replicator) PutBestEffort(ctx context.Context, table string, record any) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.Put(ctx, table, record); err != nil {
		r.logger.Error("mirror write failed", "table", table, "error", err)
	}
}

// DeleteBestEffort mirrors a delete; failure is logged only. A primary
// delete cannot be rolled back into existence, so there is nothing to
// compensate.
func (r *Replicator) DeleteBestEffort(ctx context.Context, table, id string) {
	if r.mirror == nil {
		return
	}
	if err := r.mirror.Delete(ctx, table, id); err != nil {
		r.logger.Error("mirror delete failed", "table", table, "id", id, "error", err)
	}
}
