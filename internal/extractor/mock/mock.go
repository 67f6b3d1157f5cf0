package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
)

const embeddingDimension = 512

// Provider implements extractor.Extractor for tests and local development.
// Embeddings are derived from the image hash, so the same bytes always
// produce the same vector.
type Provider struct{}

// New creates a mock provider
func New() *Provider {
	return &Provider{}
}

// ExtractFaces returns one deterministic observation per image. Inputs too
// small to be a real image are rejected.
func (p *Provider) ExtractFaces(ctx context.Context, image []byte) ([]extractor.FaceObservation, error) {
	if len(image) < 1000 {
		return nil, domain.ErrInvalidImage
	}

	yaw := 0.0
	return []extractor.FaceObservation{
		{
			Embedding:    generateEmbedding(image),
			BoundingBox:  extractor.BoundingBox{X: 10, Y: 10, Width: 100, Height: 100},
			Confidence:   0.99,
			QualityScore: 0.95,
			Pose:         &domain.Pose{Yaw: &yaw},
		},
	}, nil
}

// generateEmbedding expands the image hash into a unit-length vector
func generateEmbedding(image []byte) []float32 {
	hash := sha256.Sum256(image)

	embedding := make([]float32, embeddingDimension)
	var norm float64
	for i := range embedding {
		b := hash[i%len(hash)]
		v := float64(int(b)+i%7) / 255.0
		embedding[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}

var _ extractor.Extractor = (*Provider)(nil)
