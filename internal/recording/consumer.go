package recording

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/vigia/internal/broker"
	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
)

// QueueName returns the archive queue for a camera. The queue is durable;
// clips should survive a consumer restart.
func QueueName(cameraID int64) string {
	return fmt.Sprintf("video-archive.%d", cameraID)
}

// NewConsumer builds the frame consumer driving one camera's recorder.
// When the consumer exits, any open segment is abandoned and the scorer
// released.
func NewConsumer(conn *broker.Connection, cameraID int64, recorder *Recorder, scorer MotionScorer, repo repository.RecordingRepositoryInterface, logger *slog.Logger) *broker.Consumer {
	handler := newFrameHandler(recorder, repo, logger)

	c := broker.NewConsumer(conn, broker.ConsumerOptions{
		Queue:      QueueName(cameraID),
		RoutingKey: broker.RoutingKey(cameraID),
		Durable:    true,
		Prefetch:   1,
	}, handler, logger)

	go func() {
		<-c.Done()
		recorder.Abandon()
		scorer.Close()
	}()

	return c
}

func newFrameHandler(recorder *Recorder, repo repository.RecordingRepositoryInterface, logger *slog.Logger) broker.Handler {
	return func(ctx context.Context, d amqp.Delivery) error {
		// Malformed payloads are dropped, not redelivered.
		var msg domain.FrameMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			logger.Warn("dropping malformed frame message", "error", err)
			return nil
		}

		raw, err := base64.StdEncoding.DecodeString(msg.Frame)
		if err != nil {
			logger.Warn("dropping undecodable frame payload",
				"camera_id", msg.CameraID, "error", err)
			return nil
		}

		frame, err := gocv.IMDecode(raw, gocv.IMReadColor)
		if err != nil {
			logger.Warn("dropping undecodable frame image",
				"camera_id", msg.CameraID, "error", err)
			return nil
		}
		defer frame.Close()
		if frame.Empty() {
			logger.Warn("dropping empty frame", "camera_id", msg.CameraID)
			return nil
		}

		rec, err := recorder.HandleFrame(frame, msg.Timestamp, msg.FPS, msg.Width, msg.Height)
		if err != nil {
			return err
		}
		if rec == nil {
			return nil
		}

		if _, err := repo.Create(ctx, rec); err != nil {
			logger.Error("persist recording failed",
				"camera_id", rec.CameraID, "path", rec.FilePath, "error", err)
			return err
		}
		return nil
	}
}
