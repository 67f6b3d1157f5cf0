package service

import (
	"context"
	"encoding/base64"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
	"github.com/saturnino-fabrica-de-software/vigia/internal/identify"
	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
)

// Invalidator drops a tenant's cached match index so enrollment changes
// take effect on the next frame.
type Invalidator interface {
	Invalidate(userID int64)
}

// CreatePersonRequest is the manual enrollment input
type CreatePersonRequest struct {
	UserID      int64            `json:"user_id"`
	DisplayName string           `json:"display_name"`
	Tags        []string         `json:"tags"`
	RiskLevel   domain.RiskLevel `json:"risk_level"`
	Images      []string         `json:"images"`
}

// PersonService implements enrollment and person management
type PersonService struct {
	repo      repository.PersonRepositoryInterface
	extractor extractor.Extractor
	index     Invalidator
}

// NewPersonService creates a person service
func NewPersonService(repo repository.PersonRepositoryInterface, ext extractor.Extractor, index Invalidator) *PersonService {
	return &PersonService{
		repo:      repo,
		extractor: ext,
		index:     index,
	}
}

// Create enrolls a person from uploaded photos. Every image must contain at
// least one face; all detected faces become MANUAL_UPLOAD embeddings.
func (s *PersonService) Create(ctx context.Context, req CreatePersonRequest) (*domain.Person, error) {
	if req.UserID == 0 {
		return nil, domain.ErrValidationFailed
	}

	images := make([][]byte, 0, len(req.Images))
	for _, img := range req.Images {
		raw, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		images = append(images, raw)
	}

	embeddings, err := s.extractAll(ctx, images)
	if err != nil {
		return nil, err
	}

	person := &domain.Person{
		UserID:      req.UserID,
		DisplayName: req.DisplayName,
		Tags:        req.Tags,
		RiskLevel:   req.RiskLevel,
		Metadata:    map[string]interface{}{"seenCount": 0},
		Manual:      embeddings,
	}

	if _, err := s.repo.Create(ctx, person); err != nil {
		return nil, err
	}

	s.index.Invalidate(req.UserID)
	return person, nil
}

// AddFaces appends manual embeddings to an existing person
func (s *PersonService) AddFaces(ctx context.Context, personID int64, images [][]byte) (*domain.Person, error) {
	person, err := s.repo.Get(ctx, personID)
	if err != nil {
		return nil, err
	}

	embeddings, err := s.extractAll(ctx, images)
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	if err := s.repo.AddEmbeddings(ctx, personID, embeddings); err != nil {
		return nil, err
	}

	s.index.Invalidate(person.UserID)
	return s.repo.Get(ctx, personID)
}

// Get returns one person with embeddings
func (s *PersonService) Get(ctx context.Context, id int64) (*domain.Person, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns a tenant's persons
func (s *PersonService) ListByUser(ctx context.Context, userID int64) ([]domain.Person, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update replaces a person's mutable attributes
func (s *PersonService) Update(ctx context.Context, id int64, person *domain.Person) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Update(ctx, id, person); err != nil {
		return err
	}
	s.index.Invalidate(current.UserID)
	return nil
}

// UpdateField writes one field, dotted metadata paths included
func (s *PersonService) UpdateField(ctx context.Context, id int64, field string, value any) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateField(ctx, id, field, value); err != nil {
		return err
	}
	s.index.Invalidate(current.UserID)
	return nil
}

// Delete removes a person and their embeddings
func (s *PersonService) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.index.Invalidate(current.UserID)
	return nil
}

// extractAll turns every detected face across the images into a
// MANUAL_UPLOAD embedding.
func (s *PersonService) extractAll(ctx context.Context, images [][]byte) ([]domain.FaceEmbedding, error) {
	var out []domain.FaceEmbedding
	for _, raw := range images {
		faces, err := s.extractor.ExtractFaces(ctx, raw)
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		if len(faces) == 0 {
			return nil, domain.ErrNoFaceDetected
		}

		for _, face := range faces {
			out = append(out, domain.FaceEmbedding{
				Embedding:    identify.Normalize(face.Embedding),
				Source:       domain.SourceManualUpload,
				QualityScore: face.QualityScore,
				Pose:         face.Pose,
				Metadata: map[string]interface{}{
					"pose_bucket": string(identify.BucketPose(face.Pose)),
					"confidence":  face.Confidence,
				},
			})
		}
	}
	return out, nil
}
