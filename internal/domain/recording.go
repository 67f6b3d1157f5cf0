package domain

import (
	"time"
)

// RecordingStatus tracks the lifecycle of a saved clip
type RecordingStatus string

const (
	RecordingReady      RecordingStatus = "READY"
	RecordingProcessing RecordingStatus = "PROCESSING"
	RecordingFailed     RecordingStatus = "FAILED"
	RecordingDeleted    RecordingStatus = "DELETED"
)

// Recording is the metadata for one closed motion-triggered clip
type Recording struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	CameraID      int64           `json:"camera_id"`
	FilePath      string          `json:"file_path"`
	ContentType   string          `json:"content_type"`
	FileSize      *int64          `json:"file_size,omitempty"`
	DurationMs    float64         `json:"duration_ms"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	Status        RecordingStatus `json:"status"`
	MovementScore int             `json:"movement_score"`
	CreatedAt     time.Time       `json:"created_at"`
}
