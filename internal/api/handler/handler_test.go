package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/vigia/internal/api"
	"github.com/saturnino-fabrica-de-software/vigia/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
	"github.com/saturnino-fabrica-de-software/vigia/internal/lifecycle"
	"github.com/saturnino-fabrica-de-software/vigia/internal/pipeline"
	"github.com/saturnino-fabrica-de-software/vigia/internal/service"
)

type fakeController struct {
	running  map[int64]bool
	startErr error
}

func newFakeController() *fakeController {
	return &fakeController{running: make(map[int64]bool)}
}

func (f *fakeController) Start(cameraID, userID int64, locator string) error {
	if f.startErr != nil {
		return f.startErr
	}
	if f.running[cameraID] {
		return domain.ErrCameraAlreadyRunning
	}
	f.running[cameraID] = true
	return nil
}

func (f *fakeController) Stop(cameraID int64) error {
	delete(f.running, cameraID)
	return nil
}

func (f *fakeController) Restart(cameraID, userID int64, locator string) error {
	f.running[cameraID] = true
	return nil
}

func (f *fakeController) StopAll() error {
	f.running = make(map[int64]bool)
	return nil
}

func (f *fakeController) Status(cameraID int64) pipeline.Status {
	st := lifecycle.StatusNotStarted
	if f.running[cameraID] {
		st = lifecycle.StatusRunning
	}
	return pipeline.Status{Ingestion: st, Identification: st, Recording: st}
}

type fakePersonService struct {
	persons map[int64]*domain.Person
}

func (f *fakePersonService) Create(ctx context.Context, req service.CreatePersonRequest) (*domain.Person, error) {
	if req.UserID == 0 {
		return nil, domain.ErrValidationFailed
	}
	p := &domain.Person{ID: 101, UserID: req.UserID, DisplayName: req.DisplayName, RiskLevel: req.RiskLevel}
	f.persons[p.ID] = p
	return p, nil
}

func (f *fakePersonService) AddFaces(ctx context.Context, personID int64, images [][]byte) (*domain.Person, error) {
	p, ok := f.persons[personID]
	if !ok {
		return nil, domain.ErrPersonNotFound
	}
	return p, nil
}

func (f *fakePersonService) Get(ctx context.Context, id int64) (*domain.Person, error) {
	p, ok := f.persons[id]
	if !ok {
		return nil, domain.ErrPersonNotFound
	}
	return p, nil
}

func (f *fakePersonService) ListByUser(ctx context.Context, userID int64) ([]domain.Person, error) {
	var out []domain.Person
	for _, p := range f.persons {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePersonService) Update(ctx context.Context, id int64, person *domain.Person) error {
	if _, ok := f.persons[id]; !ok {
		return domain.ErrPersonNotFound
	}
	person.ID = id
	f.persons[id] = person
	return nil
}

func (f *fakePersonService) UpdateField(ctx context.Context, id int64, field string, value any) error {
	if _, ok := f.persons[id]; !ok {
		return domain.ErrPersonNotFound
	}
	return nil
}

func (f *fakePersonService) Delete(ctx context.Context, id int64) error {
	if _, ok := f.persons[id]; !ok {
		return domain.ErrPersonNotFound
	}
	delete(f.persons, id)
	return nil
}

type fakeRecordingService struct {
	recs map[int64]*domain.Recording
}

func (f *fakeRecordingService) Get(ctx context.Context, id int64) (*domain.Recording, error) {
	r, ok := f.recs[id]
	if !ok {
		return nil, domain.ErrRecordingNotFound
	}
	return r, nil
}

func (f *fakeRecordingService) ListByUser(ctx context.Context, userID int64) ([]domain.Recording, error) {
	var out []domain.Recording
	for _, r := range f.recs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRecordingService) Delete(ctx context.Context, id int64) error {
	if _, ok := f.recs[id]; !ok {
		return domain.ErrRecordingNotFound
	}
	delete(f.recs, id)
	return nil
}

func newTestApp(ctrl handler.PipelineController, persons handler.PersonService, recs handler.RecordingService) *api.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := api.NewRouter(logger, &api.Dependencies{
		Controller: ctrl,
		Persons:    persons,
		Recordings: recs,
	})
	r.Setup()
	return r
}

func jsonRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestCameraHandler_StartLifecycle(t *testing.T) {
	ctrl := newFakeController()
	r := newTestApp(ctrl, &fakePersonService{persons: map[int64]*domain.Person{}}, &fakeRecordingService{recs: map[int64]*domain.Recording{}})

	body := handler.StartCameraRequest{UserID: 42, Locator: "rtsp://cam/1"}

	resp, err := r.App().Test(jsonRequest(http.MethodPost, "/v1/cameras/3/start", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var status pipeline.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, lifecycle.StatusRunning, status.Ingestion)

	// A second start conflicts.
	resp, err = r.App().Test(jsonRequest(http.MethodPost, "/v1/cameras/3/start", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = r.App().Test(jsonRequest(http.MethodPost, "/v1/cameras/3/stop", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCameraHandler_Validation(t *testing.T) {
	r := newTestApp(newFakeController(), &fakePersonService{persons: map[int64]*domain.Person{}}, &fakeRecordingService{recs: map[int64]*domain.Recording{}})

	// Missing locator.
	resp, err := r.App().Test(jsonRequest(http.MethodPost, "/v1/cameras/3/start", handler.StartCameraRequest{UserID: 42}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	// Bad camera id.
	resp, err = r.App().Test(jsonRequest(http.MethodPost, "/v1/cameras/nope/start", handler.StartCameraRequest{UserID: 42, Locator: "0"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPersonHandler_CreateAndGet(t *testing.T) {
	persons := &fakePersonService{persons: map[int64]*domain.Person{}}
	r := newTestApp(newFakeController(), persons, &fakeRecordingService{recs: map[int64]*domain.Recording{}})

	resp, err := r.App().Test(jsonRequest(http.MethodPost, "/v1/persons/", service.CreatePersonRequest{
		UserID:      42,
		DisplayName: "Alice",
		RiskLevel:   domain.RiskNormal,
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var created handler.PersonResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Alice", created.DisplayName)

	resp, err = r.App().Test(httptest.NewRequest(http.MethodGet, "/v1/persons/101", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest(http.MethodGet, "/v1/persons/999", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPersonHandler_UpdateField(t *testing.T) {
	persons := &fakePersonService{persons: map[int64]*domain.Person{
		101: {ID: 101, UserID: 42},
	}}
	r := newTestApp(newFakeController(), persons, &fakeRecordingService{recs: map[int64]*domain.Recording{}})

	resp, err := r.App().Test(jsonRequest(http.MethodPatch, "/v1/persons/101", handler.UpdateFieldRequest{
		Field: "metadata.note",
		Value: "gate A",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Missing field name.
	resp, err = r.App().Test(jsonRequest(http.MethodPatch, "/v1/persons/101", handler.UpdateFieldRequest{Value: 1}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func multipartImages(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, name))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestPersonHandler_AddFaces(t *testing.T) {
	persons := &fakePersonService{persons: map[int64]*domain.Person{
		101: {ID: 101, UserID: 42},
	}}
	r := newTestApp(newFakeController(), persons, &fakeRecordingService{recs: map[int64]*domain.Recording{}})

	body, contentType := multipartImages(t, "front.jpg", "side.jpg")
	req := httptest.NewRequest(http.MethodPost, "/v1/persons/101/faces", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := r.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// A form without images rejects.
	body, contentType = multipartImages(t)
	req = httptest.NewRequest(http.MethodPost, "/v1/persons/101/faces", body)
	req.Header.Set("Content-Type", contentType)

	resp, err = r.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestCameraHandler_StopAll(t *testing.T) {
	ctrl := newFakeController()
	r := newTestApp(ctrl, &fakePersonService{persons: map[int64]*domain.Person{}}, &fakeRecordingService{recs: map[int64]*domain.Recording{}})

	body := handler.StartCameraRequest{UserID: 42, Locator: "rtsp://cam/1"}
	resp, err := r.App().Test(jsonRequest(http.MethodPost, "/v1/cameras/3/start", body))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest(http.MethodPost, "/v1/cameras/stop-all", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest(http.MethodGet, "/v1/cameras/3/status", nil))
	require.NoError(t, err)
	var status pipeline.Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, lifecycle.StatusNotStarted, status.Ingestion)
}

func TestRecordingHandler_ListAndDelete(t *testing.T) {
	recs := &fakeRecordingService{recs: map[int64]*domain.Recording{
		7: {ID: 7, UserID: 42, FilePath: "recordings/3/clip.mp4"},
	}}
	r := newTestApp(newFakeController(), &fakePersonService{persons: map[int64]*domain.Person{}}, recs)

	resp, err := r.App().Test(httptest.NewRequest(http.MethodGet, "/v1/recordings/?user_id=42", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)

	// user_id is required.
	resp, err = r.App().Test(httptest.NewRequest(http.MethodGet, "/v1/recordings/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest(http.MethodDelete, "/v1/recordings/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = r.App().Test(httptest.NewRequest(http.MethodDelete, "/v1/recordings/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
