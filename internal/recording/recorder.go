package recording

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// state of the per-camera recording machine
type state int

const (
	stateIdle state = iota
	stateRecording
)

// Recorder is the motion-triggered recording state machine for one camera.
// Frame timestamps come from the messages themselves, so replayed frames
// produce the same clips as live ones.
type Recorder struct {
	cameraID int64
	userID   int64

	scorer     MotionScorer
	newSegment WriterFactory
	idleGrace  time.Duration
	logger     *slog.Logger

	state        state
	segment      SegmentWriter
	eventStart   float64
	lastMotionTs float64
	frameCount   int
}

// NewRecorder creates an idle recorder
func NewRecorder(cameraID, userID int64, scorer MotionScorer, factory WriterFactory, idleGrace time.Duration, logger *slog.Logger) *Recorder {
	return &Recorder{
		cameraID:   cameraID,
		userID:     userID,
		scorer:     scorer,
		newSegment: factory,
		idleGrace:  idleGrace,
		logger:     logger,
	}
}

// HandleFrame advances the state machine by one frame. ts is the capture
// timestamp in Unix seconds. A non-nil Recording is returned exactly when a
// segment closes; the caller persists it.
func (r *Recorder) HandleFrame(frame gocv.Mat, ts, fps float64, width, height int) (*domain.Recording, error) {
	score := r.scorer.Score(frame)
	motion := score > MotionScoreThreshold

	switch r.state {
	case stateIdle:
		if !motion {
			return nil, nil
		}
		return nil, r.openSegment(frame, ts, fps, width, height)

	case stateRecording:
		if motion {
			if err := r.segment.Write(frame); err != nil {
				return nil, err
			}
			r.lastMotionTs = ts
			r.frameCount++
			return nil, nil
		}

		// Short gaps keep the timeline continuous with the last frame.
		if ts-r.lastMotionTs <= r.idleGrace.Seconds() {
			return nil, r.segment.RepeatLast()
		}
		return r.closeSegment(ts)
	}
	return nil, nil
}

func (r *Recorder) openSegment(frame gocv.Mat, ts, fps float64, width, height int) error {
	start := unixToTime(ts)
	segment, err := r.newSegment(start, fps, width, height)
	if err != nil {
		return fmt.Errorf("open segment: %w", err)
	}
	if err := segment.Write(frame); err != nil {
		segment.Close()
		return err
	}

	r.segment = segment
	r.eventStart = ts
	r.lastMotionTs = ts
	r.frameCount = 1
	r.state = stateRecording

	r.logger.Info("recording started",
		"camera_id", r.cameraID, "path", segment.Path())
	return nil
}

func (r *Recorder) closeSegment(ts float64) (*domain.Recording, error) {
	path := r.segment.Path()
	size, err := r.segment.Close()
	if err != nil {
		r.reset()
		return nil, err
	}

	started := unixToTime(r.eventStart)
	ended := unixToTime(ts)
	rec := &domain.Recording{
		UserID:        r.userID,
		CameraID:      r.cameraID,
		FilePath:      path,
		ContentType:   ContentType,
		FileSize:      &size,
		DurationMs:    (ts - r.eventStart) * 1000,
		StartedAt:     &started,
		EndedAt:       &ended,
		Status:        domain.RecordingReady,
		MovementScore: r.frameCount,
	}

	r.logger.Info("recording closed",
		"camera_id", r.cameraID, "path", path,
		"duration_ms", rec.DurationMs, "movement_score", rec.MovementScore)

	r.reset()
	return rec, nil
}

func (r *Recorder) reset() {
	r.segment = nil
	r.eventStart = 0
	r.lastMotionTs = 0
	r.frameCount = 0
	r.state = stateIdle
}

// Abandon drops an open segment without producing a recording. Called at
// consumer shutdown; the partial file stays on disk with no metadata row.
func (r *Recorder) Abandon() {
	if r.state != stateRecording {
		return
	}
	r.logger.Warn("abandoning open segment",
		"camera_id", r.cameraID, "path", r.segment.Path())
	_, _ = r.segment.Close()
	r.reset()
}

func unixToTime(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}
