package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"curiocity/internal/domain/repositories"
)

// BlobStore is an in-memory BlobStore double.
type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewBlobStore creates an empty blob double.
func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (*repositories.PutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return &repositories.PutResult{
		URL:          "memory://" + key,
		GCSSuccess:   true,
		DriveSuccess: true,
	}, nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return append([]byte(nil), data...), nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *BlobStore) Presign(ctx context.Context, key string, op repositories.PresignOp, ttl time.Duration) (*repositories.PutResult, error) {
	return &repositories.PutResult{
		URL:          fmt.Sprintf("memory://%s?op=%s&ttl=%d", key, op, int(ttl.Seconds())),
		GCSSuccess:   true,
		DriveSuccess: true,
	}, nil
}
