package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"curiocity/internal/domain/repositories"
)

// Backend is one concrete object-storage service.
type Backend interface {
	Name() string
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Presign(ctx context.Context, key string, op repositories.PresignOp, ttl time.Duration) (string, error)
}

// DualStore writes to a primary backend and, when configured, a secondary
// one. Writes fan out concurrently and the first successful URL wins; the
// operation succeeds if at least one backend accepted it, with partial
// failure reported through the result flags rather than as an error.
type DualStore struct {
	primary   Backend
	secondary Backend // may be nil
	logger    *slog.Logger
}

// NewDualStore creates the dual store. secondary may be nil.
func NewDualStore(primary, secondary Backend, logger *slog.Logger) repositories.BlobStore {
	return &DualStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger,
	}
}

type putOutcome struct {
	url string
	err error
}

// Put uploads to both backends. Flags default to true so that a
// single-backend deployment reports clean success for the absent one,
// matching how the original surfaced its per-store flags.
func (s *DualStore) Put(ctx context.Context, key string, data []byte, contentType string) (*repositories.PutResult, error) {
	result := &repositories.PutResult{GCSSuccess: true, DriveSuccess: true}

	primaryCh := make(chan putOutcome, 1)
	go func() {
		url, err := s.primary.Put(ctx, key, data, contentType)
		primaryCh <- putOutcome{url: url, err: err}
	}()

	var secondaryCh chan putOutcome
	if s.secondary != nil {
		secondaryCh = make(chan putOutcome, 1)
		go func() {
			url, err := s.secondary.Put(ctx, key, data, contentType)
			secondaryCh <- putOutcome{url: url, err: err}
		}()
	}

	primary := <-primaryCh
	if primary.err != nil {
		s.logger.Error("blob put failed", "backend", s.primary.Name(), "key", key, "error", primary.err)
		result.GCSSuccess = false
	} else {
		result.URL = primary.url
	}

	if secondaryCh != nil {
		secondary := <-secondaryCh
		if secondary.err != nil {
			s.logger.Error("blob put failed", "backend", s.secondary.Name(), "key", key, "error", secondary.err)
			result.DriveSuccess = false
		} else if result.URL == "" {
			result.URL = secondary.url
		}
	}

	if !result.GCSSuccess && (s.secondary == nil || !result.DriveSuccess) {
		return nil, fmt.Errorf("blob put %s: all backends failed", key)
	}
	return result, nil
}

// Get reads from the primary, falling back to the secondary.
func (s *DualStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.primary.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if s.secondary == nil {
		return nil, err
	}

	s.logger.Warn("blob get falling back", "backend", s.primary.Name(), "key", key, "error", err)
	data, ferr := s.secondary.Get(ctx, key)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return data, nil
}

// Delete removes the blob from every configured backend.
func (s *DualStore) Delete(ctx context.Context, key string) error {
	err := s.primary.Delete(ctx, key)
	if s.secondary != nil {
		if serr := s.secondary.Delete(ctx, key); serr != nil {
			err = errors.Join(err, serr)
		}
	}
	return err
}

// Presign asks the primary first, then the secondary; backends without
// signing support just flip their flag.
func (s *DualStore) Presign(ctx context.Context, key string, op repositories.PresignOp, ttl time.Duration) (*repositories.PutResult, error) {
	result := &repositories.PutResult{GCSSuccess: true, DriveSuccess: true}

	url, err := s.primary.Presign(ctx, key, op, ttl)
	if err != nil {
		s.logger.Error("presign failed", "backend", s.primary.Name(), "key", key, "error", err)
		result.GCSSuccess = false
	} else {
		result.URL = url
	}

	if s.secondary != nil {
		surl, serr := s.secondary.Presign(ctx, key, op, ttl)
		if serr != nil {
			if !errors.Is(serr, ErrPresignUnsupported) {
				s.logger.Error("presign failed", "backend", s.secondary.Name(), "key", key, "error", serr)
			}
			result.DriveSuccess = false
		} else if result.URL == "" {
			result.URL = surl
		}
	}

	if result.URL == "" {
		return nil, fmt.Errorf("presign %s: no backend produced a url", key)
	}
	return result, nil
}
