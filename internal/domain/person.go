package domain

import (
	"time"
)

// RiskLevel classifies an enrolled person and drives notification policy
type RiskLevel string

const (
	RiskNormal    RiskLevel = "NORMAL"
	RiskDangerous RiskLevel = "DANGEROUS"
	RiskHigh      RiskLevel = "HIGH"
	RiskUnknown   RiskLevel = "UNKNOWN"
)

// FaceSource indicates where an embedding record came from
type FaceSource string

const (
	SourceCamera       FaceSource = "CAMERA"
	SourceManualUpload FaceSource = "MANUAL_UPLOAD"
	SourceArchive      FaceSource = "ARCHIVE"
)

// AutoEmbeddingLimit bounds the tail of camera-sourced embeddings kept per
// person. Manual uploads are retained without bound.
const AutoEmbeddingLimit = 50

// Pose holds face orientation angles in degrees
type Pose struct {
	Yaw   *float64 `json:"yaw,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
	Roll  *float64 `json:"roll,omitempty"`
}

// FaceEmbedding is a persisted embedding record belonging to one person
type FaceEmbedding struct {
	ID           int64                  `json:"id"`
	PersonID     int64                  `json:"-"`
	Embedding    []float32              `json:"-"`
	Source       FaceSource             `json:"source"`
	CameraID     *int64                 `json:"camera_id,omitempty"`
	QualityScore float64                `json:"quality_score"`
	Pose         *Pose                  `json:"pose,omitempty"`
	Thumbnail    *string                `json:"thumbnail,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Person is an enrolled identity owned by one tenant (user)
type Person struct {
	ID          int64                  `json:"id"`
	UserID      int64                  `json:"user_id"`
	DisplayName string                 `json:"display_name"`
	Tags        []string               `json:"tags"`
	RiskLevel   RiskLevel              `json:"risk_level"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Manual      []FaceEmbedding        `json:"-"`
	Auto        []FaceEmbedding        `json:"-"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Embeddings returns the manual and auto partitions merged, manual first
func (p *Person) Embeddings() []FaceEmbedding {
	out := make([]FaceEmbedding, 0, len(p.Manual)+len(p.Auto))
	out = append(out, p.Manual...)
	out = append(out, p.Auto...)
	return out
}

// SeenCount reads metadata.seenCount, tolerating the numeric types the JSON
// round-trip may produce
func (p *Person) SeenCount() int {
	if p.Metadata == nil {
		return 0
	}
	switch v := p.Metadata["seenCount"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
