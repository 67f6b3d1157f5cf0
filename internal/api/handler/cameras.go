package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/pipeline"
)

// PipelineController drives per-camera worker lifecycles
type PipelineController interface {
	Start(cameraID, userID int64, locator string) error
	Stop(cameraID int64) error
	Restart(cameraID, userID int64, locator string) error
	Status(cameraID int64) pipeline.Status
	StopAll() error
}

// CameraHandler exposes camera pipeline control
type CameraHandler struct {
	controller PipelineController
}

// NewCameraHandler creates a camera handler
func NewCameraHandler(controller PipelineController) *CameraHandler {
	return &CameraHandler{controller: controller}
}

// StartCameraRequest is the body for start and restart
type StartCameraRequest struct {
	UserID  int64  `json:"user_id"`
	Locator string `json:"locator"`
}

func (r *StartCameraRequest) validate() error {
	if r.UserID == 0 || r.Locator == "" {
		return domain.ErrValidationFailed
	}
	return nil
}

// Start brings up the three pipelines for a camera
func (h *CameraHandler) Start(c *fiber.Ctx) error {
	cameraID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req StartCameraRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.controller.Start(cameraID, req.UserID, req.Locator); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.controller.Status(cameraID))
}

// Stop tears down a camera's pipelines
func (h *CameraHandler) Stop(c *fiber.Ctx) error {
	cameraID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.controller.Stop(cameraID); err != nil {
		return err
	}
	return c.JSON(h.controller.Status(cameraID))
}

// Restart bounces a camera's pipelines
func (h *CameraHandler) Restart(c *fiber.Ctx) error {
	cameraID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req StartCameraRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	if err := h.controller.Restart(cameraID, req.UserID, req.Locator); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.controller.Status(cameraID))
}

// StopAll tears down every running camera
func (h *CameraHandler) StopAll(c *fiber.Ctx) error {
	if err := h.controller.StopAll(); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Status reports each pipeline stage for a camera
func (h *CameraHandler) Status(c *fiber.Ctx) error {
	cameraID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	return c.JSON(h.controller.Status(cameraID))
}

// parseID reads a positive int64 route parameter
func parseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrBadRequest
	}
	return id, nil
}
