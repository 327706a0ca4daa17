package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"curiocity/internal/domain/repositories"
)

// ErrPresignUnsupported is reported by backends that cannot mint
// time-limited URLs; the dual store falls through to the other backend.
var ErrPresignUnsupported = errors.New("presigned urls not supported by this backend")

// DriveBackend stores blobs as private files inside one Drive folder,
// looked up by name (the content-hash key).
type DriveBackend struct {
	service  *drive.Service
	folderID string
}

// NewDriveBackend creates the Drive backend from service-account JSON.
func NewDriveBackend(ctx context.Context, folderID, credentialsJSON string) (*DriveBackend, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveFileScope)}
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &DriveBackend{service: srv, folderID: folderID}, nil
}

func (b *DriveBackend) Name() string { return "drive" }

func (b *DriveBackend) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	meta := &drive.File{
		Name:    key,
		Parents: []string{b.folderID},
	}

	f, err := b.service.Files.Create(meta).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create drive file %s: %w", key, err)
	}

	return fmt.Sprintf("https://drive.google.com/uc?id=%s", f.Id), nil
}

func (b *DriveBackend) Get(ctx context.Context, key string) ([]byte, error) {
	id, err := b.findByName(ctx, key)
	if err != nil {
		return nil, err
	}

	resp, err := b.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download drive file %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read drive file %s: %w", key, err)
	}
	return data, nil
}

func (b *DriveBackend) Delete(ctx context.Context, key string) error {
	id, err := b.findByName(ctx, key)
	if err != nil {
		return err
	}

	if err := b.service.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete drive file %s: %w", key, err)
	}
	return nil
}

// Presign is unsupported: Drive grants access through its own sharing
// model, not signed URLs.
func (b *DriveBackend) Presign(ctx context.Context, key string, op repositories.PresignOp, ttl time.Duration) (string, error) {
	return "", ErrPresignUnsupported
}

func (b *DriveBackend) findByName(ctx context.Context, key string) (string, error) {
	list, err := b.service.Files.List().
		Q(fmt.Sprintf("name = '%s' and '%s' in parents and trashed = false", key, b.folderID)).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("find drive file %s: %w", key, err)
	}
	if len(list.Files) == 0 {
		return "", fmt.Errorf("drive file %s not found", key)
	}
	return list.Files[0].Id, nil
}
