package identify

import (
	"context"
	"log/slog"
	"time"

	"github.com/saturnino-fabrica-de-software/vigia/internal/alert"
	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
)

const (
	// UnknownAlertThreshold fires the frequent-unknown alert when a person
	// still marked UNKNOWN reaches this many sightings.
	UnknownAlertThreshold = 15

	// FrequentNormalThreshold marks a NORMAL person as a frequent visitor
	// once their sightings exceed it.
	FrequentNormalThreshold = 20
)

// FaceTask is one detected face queued for identification
type FaceTask struct {
	UserID      int64
	CameraID    int64
	Timestamp   float64
	Observation extractor.FaceObservation
	Thumbnail   *string
}

// Engine matches face observations against the tenant's enrolled persons,
// auto-enrolling the ones nobody recognizes.
type Engine struct {
	repo     repository.PersonRepositoryInterface
	index    *Index
	notifier alert.Notifier
	logger   *slog.Logger
}

// NewEngine creates an identification engine
func NewEngine(repo repository.PersonRepositoryInterface, index *Index, notifier alert.Notifier, logger *slog.Logger) *Engine {
	return &Engine{
		repo:     repo,
		index:    index,
		notifier: notifier,
		logger:   logger,
	}
}

// ProcessFace runs one face through match-or-enroll. Matches update the
// sighting count and fold the embedding into the person's record; misses
// enroll a fresh UNKNOWN person.
func (e *Engine) ProcessFace(ctx context.Context, task FaceTask) error {
	emb := Normalize(task.Observation.Embedding)

	match, err := e.index.Match(ctx, task.UserID, emb)
	if err != nil {
		return err
	}

	if match == nil {
		return e.enrollUnknown(ctx, task, emb)
	}
	return e.recordSighting(ctx, task, emb, match)
}

func (e *Engine) enrollUnknown(ctx context.Context, task FaceTask, emb []float32) error {
	person := &domain.Person{
		UserID:      task.UserID,
		DisplayName: "unknown",
		RiskLevel:   domain.RiskUnknown,
		Metadata:    map[string]interface{}{"seenCount": 1},
		Auto:        []domain.FaceEmbedding{e.buildEmbedding(task, emb)},
	}

	id, err := e.repo.Create(ctx, person)
	if err != nil {
		return err
	}

	e.index.Update(task.UserID, id, emb)
	e.logger.Info("enrolled unknown person",
		"user_id", task.UserID, "camera_id", task.CameraID, "person_id", id)
	return nil
}

func (e *Engine) recordSighting(ctx context.Context, task FaceTask, emb []float32, match *Match) error {
	person, err := e.repo.Get(ctx, match.PersonID)
	if err != nil {
		return err
	}

	seen := person.SeenCount() + 1
	if err := e.repo.UpdateField(ctx, person.ID, "metadata.seenCount", seen); err != nil {
		return err
	}

	record := e.buildEmbedding(task, emb)
	record.Metadata["distance"] = match.Distance
	if err := e.repo.AddEmbedding(ctx, person.ID, &record); err != nil {
		return err
	}
	e.index.Update(task.UserID, person.ID, emb)

	e.logger.Debug("person sighted",
		"user_id", task.UserID, "camera_id", task.CameraID,
		"person_id", person.ID, "distance", match.Distance, "seen_count", seen)

	e.notify(ctx, task, person, seen)
	return nil
}

// notify applies the alert policy for a matched sighting
func (e *Engine) notify(ctx context.Context, task FaceTask, person *domain.Person, seen int) {
	ev := alert.Event{
		UserID:    task.UserID,
		CameraID:  task.CameraID,
		PersonID:  person.ID,
		RiskLevel: person.RiskLevel,
		SeenCount: seen,
		Timestamp: time.Now().UTC(),
	}

	switch person.RiskLevel {
	case domain.RiskHigh, domain.RiskDangerous:
		e.notifier.HighRisk(ctx, ev)
	case domain.RiskNormal:
		if seen > FrequentNormalThreshold {
			e.notifier.FrequentNormal(ctx, ev)
		}
	case domain.RiskUnknown:
		if seen == UnknownAlertThreshold {
			e.notifier.FrequentUnknown(ctx, ev)
		}
	}
}

func (e *Engine) buildEmbedding(task FaceTask, emb []float32) domain.FaceEmbedding {
	cameraID := task.CameraID
	return domain.FaceEmbedding{
		Embedding:    emb,
		Source:       domain.SourceCamera,
		CameraID:     &cameraID,
		QualityScore: task.Observation.QualityScore,
		Pose:         task.Observation.Pose,
		Thumbnail:    task.Thumbnail,
		Metadata: map[string]interface{}{
			"pose_bucket": string(BucketPose(task.Observation.Pose)),
			"confidence":  task.Observation.Confidence,
			"timestamp":   task.Timestamp,
		},
	}
}
