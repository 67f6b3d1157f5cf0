package deepface

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
)

const (
	// minFaceArea is the minimum face area (in pixels²) for reliable detection
	minFaceArea = 2500
	// maxFaceArea is used for quality scaling
	maxFaceArea = 250000
)

// Provider implements extractor.Extractor over the DeepFace API
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{client: NewClient(config)}
}

// ExtractFaces returns an observation per face detected in the image
func (p *Provider) ExtractFaces(ctx context.Context, image []byte) ([]extractor.FaceObservation, error) {
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		return nil, fmt.Errorf("extract faces: %w", err)
	}

	faces := make([]extractor.FaceObservation, 0, len(resp.Results))
	for _, result := range resp.Results {
		area := float64(result.FacialArea.W * result.FacialArea.H)

		confidence := result.Confidence
		if confidence == 0 {
			// Older service versions omit face_confidence; estimate from
			// face size since larger faces detect more reliably.
			confidence = scaleByArea(area, 0.7, 0.29)
		}

		obs := extractor.FaceObservation{
			Embedding: result.Embedding,
			BoundingBox: extractor.BoundingBox{
				X:      result.FacialArea.X,
				Y:      result.FacialArea.Y,
				Width:  result.FacialArea.W,
				Height: result.FacialArea.H,
			},
			Confidence:   confidence,
			QualityScore: scaleByArea(area, 0.6, 0.35),
		}
		if result.Pose != nil {
			obs.Pose = &domain.Pose{
				Yaw:   result.Pose.Yaw,
				Pitch: result.Pose.Pitch,
				Roll:  result.Pose.Roll,
			}
		}
		faces = append(faces, obs)
	}

	return faces, nil
}

func scaleByArea(area, base, span float64) float64 {
	if area < minFaceArea {
		return base * 0.6
	}
	normalized := math.Min(1.0, (area-minFaceArea)/(maxFaceArea-minFaceArea))
	return base + normalized*span
}

var _ extractor.Extractor = (*Provider)(nil)
