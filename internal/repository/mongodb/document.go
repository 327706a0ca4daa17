package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"curiocity/internal/domain"
	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDocumentRepository implements the DocumentRepository interface.
type MongoDocumentRepository struct {
	db     *mongo.Database
	tables *TableNames
	logger *slog.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repositories.DocumentRepository {
	return &MongoDocumentRepository{
		db:     config.DB,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *MongoDocumentRepository) documents() *mongo.Collection {
	return r.db.Collection(r.tables.Documents)
}

// Get returns (nil, nil) for a missing id, never an error.
func (r *MongoDocumentRepository) Get(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	err := r.documents().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// Put writes the document conditionally on the version it was read at.
// Version 0 inserts; anything else replaces the matching (id, version) row.
// A concurrent writer that got there first surfaces as a conflict.
func (r *MongoDocumentRepository) Put(ctx context.Context, doc *models.Document) error {
	if doc.Version == 0 {
		doc.Version = 1
		if _, err := r.documents().InsertOne(ctx, doc); err != nil {
			doc.Version = 0
			if mongo.IsDuplicateKeyError(err) {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("document %s already exists", doc.ID),
					ResourceType: "document",
					ResourceID:   doc.ID,
				}
			}
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	}

	readVersion := doc.Version
	doc.Version = readVersion + 1
	res, err := r.documents().ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": readVersion}, doc)
	if err != nil {
		doc.Version = readVersion
		return fmt.Errorf("replace document: %w", err)
	}
	if res.MatchedCount == 0 {
		doc.Version = readVersion
		return &domain.ConflictError{
			Message:      fmt.Sprintf("document %s was modified concurrently", doc.ID),
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}
	return nil
}

// Delete cascades: the document's folders are walked and every referenced
// resource-meta row is deleted before the document row itself. The walk is
// not transactional; the deletePending marker written up front is what the
// repair sweep keys on if we crash partway.
func (r *MongoDocumentRepository) Delete(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	if err := r.MarkDeletePending(ctx, id, models.Now()); err != nil {
		return err
	}

	metas := r.db.Collection(r.tables.ResourceMeta)
	for folderName, folder := range doc.Folders {
		for _, res := range folder.Resources {
			if _, err := metas.DeleteOne(ctx, bson.M{"_id": res.ID}); err != nil {
				r.logger.Error("cascade delete failed",
					"table", r.tables.ResourceMeta,
					"document_id", id,
					"folder", folderName,
					"resource_id", res.ID,
					"error", err,
				)
				return fmt.Errorf("cascade delete resource meta %s: %w", res.ID, err)
			}
		}
	}

	if _, err := r.documents().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		r.logger.Error("document delete failed", "table", r.tables.Documents, "id", id, "error", err)
		return fmt.Errorf("delete document: %w", err)
	}

	r.logger.Info("document deleted", "table", r.tables.Documents, "id", id)
	return nil
}

// ListByOwner scans the document table for one owner's documents.
func (r *MongoDocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	cursor, err := r.documents().Find(ctx, bson.M{"ownerID": ownerID})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return docs, nil
}

// MarkDeletePending persists the pre-cascade marker. The write is
// unconditional: a delete wins over any concurrent edit.
func (r *MongoDocumentRepository) MarkDeletePending(ctx context.Context, id string, at string) error {
	_, err := r.documents().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"deletePending": at}},
	)
	if err != nil {
		return fmt.Errorf("mark delete pending: %w", err)
	}
	return nil
}

// FindPendingDeletes returns documents whose cascade never finished.
func (r *MongoDocumentRepository) FindPendingDeletes(ctx context.Context) ([]models.Document, error) {
	cursor, err := r.documents().Find(ctx, bson.M{"deletePending": bson.M{"$gt": ""}})
	if err != nil {
		return nil, fmt.Errorf("find pending deletes: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode pending deletes: %w", err)
	}
	return docs, nil
}
