package extractor

import (
	"context"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// Extractor turns an encoded image into face observations. Implementations
// wrap an external model service or a deterministic stand-in for tests.
type Extractor interface {
	// ExtractFaces returns one observation per detected face. An image with
	// no faces yields an empty slice, not an error.
	ExtractFaces(ctx context.Context, image []byte) ([]FaceObservation, error)
}

// BoundingBox is the detected face area in pixel coordinates
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FaceObservation is one detected face with its embedding vector
type FaceObservation struct {
	Embedding    []float32
	BoundingBox  BoundingBox
	Confidence   float64
	QualityScore float64
	Pose         *domain.Pose
}
