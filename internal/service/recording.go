package service

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
)

// RecordingService exposes recording metadata and clip deletion
type RecordingService struct {
	repo repository.RecordingRepositoryInterface
}

// NewRecordingService creates a recording service
func NewRecordingService(repo repository.RecordingRepositoryInterface) *RecordingService {
	return &RecordingService{repo: repo}
}

// Get returns one recording's metadata
func (s *RecordingService) Get(ctx context.Context, id int64) (*domain.Recording, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns a tenant's recordings
func (s *RecordingService) ListByUser(ctx context.Context, userID int64) ([]domain.Recording, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes the clip file and its metadata row. A file already gone
// from disk does not block the metadata delete.
func (s *RecordingService) Delete(ctx context.Context, id int64) error {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := os.Remove(rec.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.ErrInternal.WithError(err)
	}

	return s.repo.Delete(ctx, id)
}
