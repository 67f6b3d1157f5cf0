package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

// RecordingService is the slice of the recording service the handler needs
type RecordingService interface {
	Get(ctx context.Context, id int64) (*domain.Recording, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Recording, error)
	Delete(ctx context.Context, id int64) error
}

// RecordingHandler exposes recording metadata
type RecordingHandler struct {
	service RecordingService
}

// NewRecordingHandler creates a recording handler
func NewRecordingHandler(svc RecordingService) *RecordingHandler {
	return &RecordingHandler{service: svc}
}

// Get returns one recording's metadata
func (h *RecordingHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	rec, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(rec)
}

// List returns a tenant's recordings
func (h *RecordingHandler) List(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id"))
	if userID <= 0 {
		return domain.ErrValidationFailed
	}

	recs, err := h.service.ListByUser(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"recordings": recs, "count": len(recs)})
}

// Download streams the clip file
func (h *RecordingHandler) Download(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	rec, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, rec.ContentType)
	return c.SendFile(rec.FilePath)
}

// Delete removes the clip and its metadata
func (h *RecordingHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
