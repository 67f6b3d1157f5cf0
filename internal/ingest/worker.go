package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/vigia/internal/broker"
	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// FramePublisher is the slice of the broker publisher the worker needs
type FramePublisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload any) error
}

// Config tunes one ingestion worker
type Config struct {
	CameraID       int64
	UserID         int64
	Locator        string
	JpegQuality    int
	ReconnectDelay time.Duration
}

// Worker captures frames from one camera and publishes them to the frame
// exchange. Capture failures trigger reconnects with constant backoff; the
// worker only gives up when told to stop.
type Worker struct {
	cfg       Config
	openSrc   SourceFactory
	publisher FramePublisher
	logger    *slog.Logger

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	alive    atomic.Bool
}

// NewWorker creates an ingestion worker
func NewWorker(cfg Config, factory SourceFactory, publisher FramePublisher, logger *slog.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		openSrc:   factory,
		publisher: publisher,
		logger:    logger.With("camera_id", cfg.CameraID),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start opens the capture and launches the publish loop
func (w *Worker) Start() error {
	source, err := w.connect()
	if err != nil {
		return err
	}

	w.alive.Store(true)
	go w.loop(source)
	w.logger.Info("ingestion started", "locator", w.cfg.Locator)
	return nil
}

func (w *Worker) connect() (FrameSource, error) {
	var source FrameSource
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(w.cfg.ReconnectDelay), 5)
	err := backoff.Retry(func() error {
		var openErr error
		source, openErr = w.openSrc(w.cfg.Locator)
		if openErr != nil {
			w.logger.Warn("capture open failed, retrying", "error", openErr)
		}
		return openErr
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("connect camera %d: %w", w.cfg.CameraID, err)
	}
	return source, nil
}

// reconnect retries the capture source until it opens or the worker is told
// to stop. Only a stop makes a running worker give up on its camera.
func (w *Worker) reconnect() FrameSource {
	for {
		select {
		case <-w.stopCh:
			return nil
		case <-time.After(w.cfg.ReconnectDelay):
		}

		source, err := w.openSrc(w.cfg.Locator)
		if err != nil {
			w.logger.Warn("capture open failed, retrying", "error", err)
			continue
		}
		return source
	}
}

func (w *Worker) loop(source FrameSource) {
	defer func() {
		w.alive.Store(false)
		if source != nil {
			source.Close()
		}
		close(w.done)
	}()

	ctx := context.Background()
	frame := gocv.NewMat()
	defer frame.Close()

	routingKey := broker.RoutingKey(w.cfg.CameraID)

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if !source.Read(&frame) || frame.Empty() {
			w.logger.Warn("frame read failed, reconnecting")
			source.Close()
			source = w.reconnect()
			if source == nil {
				return
			}
			continue
		}

		msg, err := buildFrameMessage(w.cfg, frame, time.Now())
		if err != nil {
			w.logger.Error("encode frame failed", "error", err)
			continue
		}
		msg.FPS = source.FPS()

		if err := w.publisher.PublishJSON(ctx, routingKey, msg); err != nil {
			w.logger.Error("publish frame failed", "error", err)
		}
	}
}

// buildFrameMessage encodes the frame as JPEG and assembles the wire payload
func buildFrameMessage(cfg Config, frame gocv.Mat, now time.Time) (*domain.FrameMessage, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, cfg.JpegQuality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return &domain.FrameMessage{
		CameraID:  cfg.CameraID,
		UserID:    cfg.UserID,
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
		Frame:     base64.StdEncoding.EncodeToString(buf.GetBytes()),
		Width:     frame.Cols(),
		Height:    frame.Rows(),
	}, nil
}

// Stop signals the loop to exit
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Done is closed once the loop has exited
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// IsAlive reports whether the publish loop is running
func (w *Worker) IsAlive() bool {
	return w.alive.Load()
}
