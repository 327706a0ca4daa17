package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoResourceMetaRepository implements the ResourceMetaRepository interface.
type MongoResourceMetaRepository struct {
	db     *mongo.Database
	tables *TableNames
	logger *slog.Logger
}

// NewResourceMetaRepository creates a new resource-meta repository
func NewResourceMetaRepository(config *RepositoryConfig) repositories.ResourceMetaRepository {
	return &MongoResourceMetaRepository{
		db:     config.DB,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *MongoResourceMetaRepository) metas() *mongo.Collection {
	return r.db.Collection(r.tables.ResourceMeta)
}

// Get returns (nil, nil) for a missing id.
func (r *MongoResourceMetaRepository) Get(ctx context.Context, id string) (*models.ResourceMeta, error) {
	var meta models.ResourceMeta
	err := r.metas().FindOne(ctx, bson.M{"_id": id}).Decode(&meta)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resource meta: %w", err)
	}
	return &meta, nil
}

// Put is an unconditional upsert. Meta rows are only ever written by their
// owning request path; the contended row is the document, not the meta.
func (r *MongoResourceMetaRepository) Put(ctx context.Context, meta *models.ResourceMeta) error {
	_, err := r.metas().ReplaceOne(ctx,
		bson.M{"_id": meta.ID},
		meta,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put resource meta: %w", err)
	}
	return nil
}

// Delete removes the canonical row. Deleting a missing id is not an error.
func (r *MongoResourceMetaRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.metas().DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		r.logger.Error("resource meta delete failed", "table", r.tables.ResourceMeta, "id", id, "error", err)
		return fmt.Errorf("delete resource meta: %w", err)
	}
	return nil
}

// MongoResourceRepository implements the ResourceRepository interface over
// the content-addressed resource table.
type MongoResourceRepository struct {
	db     *mongo.Database
	tables *TableNames
	logger *slog.Logger
}

// NewResourceRepository creates a new resource repository
func NewResourceRepository(config *RepositoryConfig) repositories.ResourceRepository {
	return &MongoResourceRepository{
		db:     config.DB,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func (r *MongoResourceRepository) resources() *mongo.Collection {
	return r.db.Collection(r.tables.Resources)
}

// Get returns (nil, nil) for an unseen hash.
func (r *MongoResourceRepository) Get(ctx context.Context, hash string) (*models.Resource, error) {
	var res models.Resource
	err := r.resources().FindOne(ctx, bson.M{"_id": hash}).Decode(&res)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return &res, nil
}

// Put upserts by hash. Identical bytes land on the same row, which makes
// dedup structural rather than checked.
func (r *MongoResourceRepository) Put(ctx context.Context, res *models.Resource) error {
	_, err := r.resources().ReplaceOne(ctx,
		bson.M{"_id": res.ID},
		res,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("put resource: %w", err)
	}
	return nil
}

// Delete is explicit cleanup only; no code path cascades into it.
func (r *MongoResourceRepository) Delete(ctx context.Context, hash string) error {
	if _, err := r.resources().DeleteOne(ctx, bson.M{"_id": hash}); err != nil {
		r.logger.Error("resource delete failed", "table", r.tables.Resources, "id", hash, "error", err)
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}
