package handler

import (
	"context"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/service"
)

const maxImageSize = 10 * 1024 * 1024 // 10MB

var validImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// PersonService is the slice of the person service the handler needs
type PersonService interface {
	Create(ctx context.Context, req service.CreatePersonRequest) (*domain.Person, error)
	AddFaces(ctx context.Context, personID int64, images [][]byte) (*domain.Person, error)
	Get(ctx context.Context, id int64) (*domain.Person, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Person, error)
	Update(ctx context.Context, id int64, person *domain.Person) error
	UpdateField(ctx context.Context, id int64, field string, value any) error
	Delete(ctx context.Context, id int64) error
}

// PersonHandler handles enrollment and person management requests
type PersonHandler struct {
	service PersonService
}

// NewPersonHandler creates a person handler
func NewPersonHandler(svc PersonService) *PersonHandler {
	return &PersonHandler{service: svc}
}

// PersonResponse is the wire shape for a person
type PersonResponse struct {
	*domain.Person
	SeenCount   int `json:"seen_count"`
	ManualFaces int `json:"manual_faces"`
	AutoFaces   int `json:"auto_faces"`
}

func toPersonResponse(p *domain.Person) PersonResponse {
	return PersonResponse{
		Person:      p,
		SeenCount:   p.SeenCount(),
		ManualFaces: len(p.Manual),
		AutoFaces:   len(p.Auto),
	}
}

// Create enrolls a person from uploaded photos
func (h *PersonHandler) Create(c *fiber.Ctx) error {
	var req service.CreatePersonRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	person, err := h.service.Create(c.Context(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toPersonResponse(person))
}

// Get returns one person
func (h *PersonHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	person, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(toPersonResponse(person))
}

// List returns a tenant's persons; the tenant comes from the query string
func (h *PersonHandler) List(c *fiber.Ctx) error {
	userID := int64(c.QueryInt("user_id"))
	if userID <= 0 {
		return domain.ErrValidationFailed
	}

	persons, err := h.service.ListByUser(c.Context(), userID)
	if err != nil {
		return err
	}

	out := make([]PersonResponse, len(persons))
	for i := range persons {
		out[i] = toPersonResponse(&persons[i])
	}
	return c.JSON(fiber.Map{"persons": out, "count": len(out)})
}

// UpdatePersonRequest carries the mutable person attributes
type UpdatePersonRequest struct {
	DisplayName string                 `json:"display_name"`
	Tags        []string               `json:"tags"`
	RiskLevel   domain.RiskLevel       `json:"risk_level"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// Update replaces a person's attributes
func (h *PersonHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req UpdatePersonRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	err = h.service.Update(c.Context(), id, &domain.Person{
		DisplayName: req.DisplayName,
		Tags:        req.Tags,
		RiskLevel:   req.RiskLevel,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return err
	}

	person, err := h.service.Get(c.Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(toPersonResponse(person))
}

// UpdateFieldRequest writes one field, dotted metadata paths included
type UpdateFieldRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// UpdateField patches a single person field
func (h *PersonHandler) UpdateField(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateFieldRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}
	if req.Field == "" {
		return domain.ErrValidationFailed
	}

	if err := h.service.UpdateField(c.Context(), id, req.Field, req.Value); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddFaces appends manual embeddings to a person. Photos arrive as a
// multipart form under the "images" field.
func (h *PersonHandler) AddFaces(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	images, err := readImageFiles(c)
	if err != nil {
		return err
	}

	person, err := h.service.AddFaces(c.Context(), id, images)
	if err != nil {
		return err
	}
	return c.JSON(toPersonResponse(person))
}

// readImageFiles extracts and validates every uploaded image from the form
func readImageFiles(c *fiber.Ctx) ([][]byte, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, domain.ErrValidationFailed.WithError(err)
	}

	files := form.File["images"]
	if len(files) == 0 {
		return nil, domain.ErrValidationFailed
	}

	images := make([][]byte, 0, len(files))
	for _, file := range files {
		if file.Size == 0 || file.Size > maxImageSize {
			return nil, domain.ErrInvalidImage.WithError(nil)
		}
		if !validImageTypes[file.Header.Get("Content-Type")] {
			return nil, domain.ErrInvalidImage.WithError(nil)
		}

		f, err := file.Open()
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		raw, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, domain.ErrInvalidImage.WithError(err)
		}
		images = append(images, raw)
	}
	return images, nil
}

// Delete removes a person
func (h *PersonHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
