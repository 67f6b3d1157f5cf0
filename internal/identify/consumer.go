package identify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/saturnino-fabrica-de-software/vigia/internal/broker"
	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
)

// ConsumerConfig holds the thumbnail parameters applied to detected faces
type ConsumerConfig struct {
	ThumbnailWidth  int
	ThumbnailHeight int
	JpegQuality     int
}

// QueueName returns the identification queue for a camera
func QueueName(cameraID int64) string {
	return fmt.Sprintf("vision.face.detected.%d", cameraID)
}

// NewConsumer builds the frame consumer feeding the identification
// dispatcher for one camera. The queue is transient; identification has no
// value for frames captured while the worker was down.
func NewConsumer(conn *broker.Connection, cameraID int64, ext extractor.Extractor, dispatcher *Dispatcher, cfg ConsumerConfig, logger *slog.Logger) *broker.Consumer {
	handler := newFrameHandler(ext, dispatcher, cfg, logger)

	return broker.NewConsumer(conn, broker.ConsumerOptions{
		Queue:      QueueName(cameraID),
		RoutingKey: broker.RoutingKey(cameraID),
		Durable:    false,
		Prefetch:   1,
	}, handler, logger)
}

func newFrameHandler(ext extractor.Extractor, dispatcher *Dispatcher, cfg ConsumerConfig, logger *slog.Logger) broker.Handler {
	return func(ctx context.Context, d amqp.Delivery) error {
		// Malformed payloads are dropped, not redelivered.
		var msg domain.FrameMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			logger.Warn("dropping malformed frame message", "error", err)
			return nil
		}

		frame, err := base64.StdEncoding.DecodeString(msg.Frame)
		if err != nil {
			logger.Warn("dropping undecodable frame payload",
				"camera_id", msg.CameraID, "error", err)
			return nil
		}

		// Extraction failures degrade to zero faces.
		faces, err := ext.ExtractFaces(ctx, frame)
		if err != nil {
			logger.Error("face extraction failed",
				"camera_id", msg.CameraID, "error", err)
			return nil
		}
		if len(faces) == 0 {
			return nil
		}

		for _, face := range faces {
			task := FaceTask{
				UserID:      msg.UserID,
				CameraID:    msg.CameraID,
				Timestamp:   msg.Timestamp,
				Observation: face,
				Thumbnail:   makeThumbnail(frame, face.BoundingBox, cfg),
			}
			dispatcher.Enqueue(task)
		}

		logger.Debug("frame processed",
			"camera_id", msg.CameraID, "faces", len(faces))
		return nil
	}
}
