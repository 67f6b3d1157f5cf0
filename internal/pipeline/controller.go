package pipeline

import (
	"errors"
	"log/slog"

	"github.com/saturnino-fabrica-de-software/vigia/internal/broker"
	"github.com/saturnino-fabrica-de-software/vigia/internal/config"
	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/extractor"
	"github.com/saturnino-fabrica-de-software/vigia/internal/identify"
	"github.com/saturnino-fabrica-de-software/vigia/internal/ingest"
	"github.com/saturnino-fabrica-de-software/vigia/internal/lifecycle"
	"github.com/saturnino-fabrica-de-software/vigia/internal/recording"
	"github.com/saturnino-fabrica-de-software/vigia/internal/repository"
)

// Status reports the three per-camera workers
type Status struct {
	Ingestion      lifecycle.Status `json:"ingestion"`
	Identification lifecycle.Status `json:"identification"`
	Recording      lifecycle.Status `json:"recording"`
}

// Controller owns the three lifecycle managers and builds the per-camera
// workers they supervise. One instance serves the whole process.
type Controller struct {
	cfg        *config.Config
	conn       *broker.Connection
	ext        extractor.Extractor
	dispatcher *identify.Dispatcher
	recRepo    repository.RecordingRepositoryInterface
	logger     *slog.Logger

	ingestMgr    *lifecycle.Manager
	identifyMgr  *lifecycle.Manager
	recordingMgr *lifecycle.Manager
}

// NewController creates a controller with one manager per pipeline stage
func NewController(cfg *config.Config, conn *broker.Connection, ext extractor.Extractor, dispatcher *identify.Dispatcher, recRepo repository.RecordingRepositoryInterface, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:          cfg,
		conn:         conn,
		ext:          ext,
		dispatcher:   dispatcher,
		recRepo:      recRepo,
		logger:       logger,
		ingestMgr:    lifecycle.NewManager(cfg.StopGracePeriod, config.ComponentLogger(logger, "ingest-manager")),
		identifyMgr:  lifecycle.NewManager(cfg.StopGracePeriod, config.ComponentLogger(logger, "identify-manager")),
		recordingMgr: lifecycle.NewManager(cfg.StopGracePeriod, config.ComponentLogger(logger, "recording-manager")),
	}
}

// Start brings up ingestion, identification and recording for one camera.
// Anything already started is rolled back when a later stage fails.
func (c *Controller) Start(cameraID, userID int64, locator string) error {
	if c.ingestMgr.Status(cameraID) == lifecycle.StatusRunning {
		return domain.ErrCameraAlreadyRunning
	}

	if err := c.identifyMgr.Start(cameraID, c.identifyFactory(userID)); err != nil {
		return err
	}
	if err := c.recordingMgr.Start(cameraID, c.recordingFactory(userID)); err != nil {
		_ = c.identifyMgr.Stop(cameraID)
		return err
	}
	// Consumers first, producer last, so the first frames land on bound queues.
	if err := c.ingestMgr.Start(cameraID, c.ingestFactory(userID, locator)); err != nil {
		_ = c.identifyMgr.Stop(cameraID)
		_ = c.recordingMgr.Stop(cameraID)
		return err
	}
	return nil
}

// Stop tears down all three workers for one camera
func (c *Controller) Stop(cameraID int64) error {
	return errors.Join(
		c.ingestMgr.Stop(cameraID),
		c.identifyMgr.Stop(cameraID),
		c.recordingMgr.Stop(cameraID),
	)
}

// Restart stops and starts a camera's pipelines
func (c *Controller) Restart(cameraID, userID int64, locator string) error {
	if err := c.Stop(cameraID); err != nil && !errors.Is(err, lifecycle.ErrStopTimeout) {
		return err
	}
	return c.Start(cameraID, userID, locator)
}

// Status reports each stage's worker state for one camera
func (c *Controller) Status(cameraID int64) Status {
	return Status{
		Ingestion:      c.ingestMgr.Status(cameraID),
		Identification: c.identifyMgr.Status(cameraID),
		Recording:      c.recordingMgr.Status(cameraID),
	}
}

// StopAll stops every camera on every stage
func (c *Controller) StopAll() error {
	return errors.Join(
		c.ingestMgr.StopAll(),
		c.identifyMgr.StopAll(),
		c.recordingMgr.StopAll(),
	)
}

func (c *Controller) ingestFactory(userID int64, locator string) lifecycle.Factory {
	return func(cameraID int64) (lifecycle.Worker, error) {
		publisher, err := broker.NewPublisher(c.conn)
		if err != nil {
			return nil, err
		}
		return ingest.NewWorker(ingest.Config{
			CameraID:       cameraID,
			UserID:         userID,
			Locator:        locator,
			JpegQuality:    c.cfg.JpegQuality,
			ReconnectDelay: c.cfg.ReconnectDelay,
		}, ingest.OpenCaptureSource, publisher, config.ComponentLogger(c.logger, "ingest")), nil
	}
}

func (c *Controller) identifyFactory(userID int64) lifecycle.Factory {
	return func(cameraID int64) (lifecycle.Worker, error) {
		return identify.NewConsumer(c.conn, cameraID, c.ext, c.dispatcher, identify.ConsumerConfig{
			ThumbnailWidth:  c.cfg.ThumbnailWidth,
			ThumbnailHeight: c.cfg.ThumbnailHeight,
			JpegQuality:     c.cfg.JpegQuality,
		}, config.ComponentLogger(c.logger, "identify")), nil
	}
}

func (c *Controller) recordingFactory(userID int64) lifecycle.Factory {
	return func(cameraID int64) (lifecycle.Worker, error) {
		logger := config.ComponentLogger(c.logger, "recording")
		scorer := recording.NewDetector()
		recorder := recording.NewRecorder(cameraID, userID, scorer,
			recording.NewWriterFactory(c.cfg.StorageBasePath, cameraID),
			c.cfg.IdleGracePeriod, logger)
		return recording.NewConsumer(c.conn, cameraID, recorder, scorer, c.recRepo, logger), nil
	}
}
