package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"curiocity/internal/domain/models"
	"curiocity/internal/domain/repositories"
)

// TableNames holds the environment-prefixed mirror table names.
type TableNames struct {
	Documents    string
	Resources    string
	ResourceMeta string
}

// NewTableNames creates mirror table names with the given prefix.
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Documents:    fmt.Sprintf("%sdocuments", prefix),
		Resources:    fmt.Sprintf("%sresources", prefix),
		ResourceMeta: fmt.Sprintf("%sresourcemeta", prefix),
	}
}

// PgMirrorStore implements the MirrorStore interface over the relational
// mirror. Writes are shaped as id-keyed upserts; nested structures
// (folders, tags) are stored as JSONB, mirroring how the original kept
// them as serialized JSON columns.
type PgMirrorStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewMirrorStore creates a new mirror store.
func NewMirrorStore(pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) repositories.MirrorStore {
	return &PgMirrorStore{
		pool:   pool,
		tables: tables,
		logger: logger,
	}
}

// Put validates the record against the table's schema gate, then upserts.
// The mirror never cascades; folder contents travel inside the document
// row's JSONB column.
func (s *PgMirrorStore) Put(ctx context.Context, table string, record any) error {
	if err := ValidateRecord(table, record); err != nil {
		s.logger.Error("mirror schema validation failed", "table", table, "error", err)
		return fmt.Errorf("mirror validation for %s: %w", table, err)
	}

	switch table {
	case repositories.TableDocuments:
		return s.putDocument(ctx, record.(*models.Document))
	case repositories.TableResources:
		return s.putResource(ctx, record.(*models.Resource))
	case repositories.TableResourceMeta:
		return s.putResourceMeta(ctx, record.(*models.ResourceMeta))
	default:
		return fmt.Errorf("unknown table: %s", table)
	}
}

func (s *PgMirrorStore) putDocument(ctx context.Context, doc *models.Document) error {
	folders, err := json.Marshal(doc.Folders)
	if err != nil {
		return fmt.Errorf("encode folders: %w", err)
	}
	tags, err := json.Marshal(doc.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, name, text, folders, date_added, last_opened, tags, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			text = EXCLUDED.text,
			folders = EXCLUDED.folders,
			date_added = EXCLUDED.date_added,
			last_opened = EXCLUDED.last_opened,
			tags = EXCLUDED.tags,
			version = EXCLUDED.version
	`, s.tables.Documents)

	_, err = s.pool.Exec(ctx, query,
		doc.ID, doc.OwnerID, doc.Name, doc.Text, folders, doc.DateAdded, doc.LastOpened, tags, doc.Version)
	if err != nil {
		return fmt.Errorf("mirror put document: %w", err)
	}
	return nil
}

func (s *PgMirrorStore) putResource(ctx context.Context, res *models.Resource) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, markdown, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			markdown = EXCLUDED.markdown,
			url = EXCLUDED.url
	`, s.tables.Resources)

	if _, err := s.pool.Exec(ctx, query, res.ID, res.Markdown, res.URL); err != nil {
		return fmt.Errorf("mirror put resource: %w", err)
	}
	return nil
}

func (s *PgMirrorStore) putResourceMeta(ctx context.Context, meta *models.ResourceMeta) error {
	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, hash, document_id, name, file_type, notes, summary, tags, date_added, last_opened)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			hash = EXCLUDED.hash,
			document_id = EXCLUDED.document_id,
			name = EXCLUDED.name,
			file_type = EXCLUDED.file_type,
			notes = EXCLUDED.notes,
			summary = EXCLUDED.summary,
			tags = EXCLUDED.tags,
			date_added = EXCLUDED.date_added,
			last_opened = EXCLUDED.last_opened
	`, s.tables.ResourceMeta)

	_, err = s.pool.Exec(ctx, query,
		meta.ID, meta.Hash, meta.DocumentID, meta.Name, meta.FileType,
		meta.Notes, meta.Summary, tags, meta.DateAdded, meta.LastOpened)
	if err != nil {
		return fmt.Errorf("mirror put resource meta: %w", err)
	}
	return nil
}

// Delete removes the mirror row for an id. Missing rows are fine: the
// mirror may legitimately lag the primary.
func (s *PgMirrorStore) Delete(ctx context.Context, table, id string) error {
	name, err := s.tableName(table)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, name)
	if _, err := s.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("mirror delete from %s: %w", table, err)
	}
	return nil
}

func (s *PgMirrorStore) tableName(table string) (string, error) {
	switch table {
	case repositories.TableDocuments:
		return s.tables.Documents, nil
	case repositories.TableResources:
		return s.tables.Resources, nil
	case repositories.TableResourceMeta:
		return s.tables.ResourceMeta, nil
	default:
		return "", fmt.Errorf("unknown table: %s", table)
	}
}
