package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	DB     *mongo.Database
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds the environment-prefixed collection names
type TableNames struct {
	Documents    string
	Resources    string
	ResourceMeta string
}

// NewTableNames creates collection names from the configured table names.
func NewTableNames(documents, resources, resourceMeta string) *TableNames {
	return &TableNames{
		Documents:    documents,
		Resources:    resources,
		ResourceMeta: resourceMeta,
	}
}

// Connect creates a mongo client, verifies the connection, and returns the
// database handle. The caller owns the client's lifecycle.
func Connect(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client, client.Database(database), nil
}
