package api

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/saturnino-fabrica-de-software/vigia/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/vigia/internal/api/middleware"
)

// Dependencies collects everything the routes need
type Dependencies struct {
	DB         handler.Pinger
	Controller handler.PipelineController
	Persons    handler.PersonService
	Recordings handler.RecordingService
}

// Router owns the fiber app and its route wiring
type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

// NewRouter creates the app with the global middleware stack
func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Vigia API",
		BodyLimit:    32 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

// Setup registers middleware and routes
func (r *Router) Setup() {
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	healthHandler := handler.NewHealthHandler(r.deps.DB)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	v1 := r.app.Group("/v1")

	cameraHandler := handler.NewCameraHandler(r.deps.Controller)
	cameras := v1.Group("/cameras")
	cameras.Post("/stop-all", cameraHandler.StopAll)
	cameras.Post("/:id/start", cameraHandler.Start)
	cameras.Post("/:id/stop", cameraHandler.Stop)
	cameras.Post("/:id/restart", cameraHandler.Restart)
	cameras.Get("/:id/status", cameraHandler.Status)

	personHandler := handler.NewPersonHandler(r.deps.Persons)
	persons := v1.Group("/persons")
	persons.Post("/", personHandler.Create)
	persons.Get("/", personHandler.List)
	persons.Get("/:id", personHandler.Get)
	persons.Put("/:id", personHandler.Update)
	persons.Patch("/:id", personHandler.UpdateField)
	persons.Post("/:id/faces", personHandler.AddFaces)
	persons.Delete("/:id", personHandler.Delete)

	recordingHandler := handler.NewRecordingHandler(r.deps.Recordings)
	recordings := v1.Group("/recordings")
	recordings.Get("/", recordingHandler.List)
	recordings.Get("/:id", recordingHandler.Get)
	recordings.Get("/:id/download", recordingHandler.Download)
	recordings.Delete("/:id", recordingHandler.Delete)
}

// App exposes the fiber app for tests
func (r *Router) App() *fiber.App {
	return r.app
}

// Listen starts serving on the given port
func (r *Router) Listen(port int) error {
	return r.app.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown drains in-flight requests and stops the listener
func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
