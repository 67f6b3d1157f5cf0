package lifecycle

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrStopTimeout reports a worker that did not confirm exit within the grace
// period. The manager forgets the worker either way.
var ErrStopTimeout = errors.New("worker did not stop within grace period")

// Status describes what the manager knows about a camera's worker
type Status string

const (
	StatusNotStarted Status = "NOT_STARTED"
	StatusRunning    Status = "RUNNING"
	StatusStopped    Status = "STOPPED"
)

// Worker is a supervised background task bound to one camera
type Worker interface {
	Start() error
	Stop()
	Done() <-chan struct{}
	IsAlive() bool
}

// Factory builds a worker for a camera on demand
type Factory func(cameraID int64) (Worker, error)

// Manager supervises at most one worker per camera. Each pipeline stage owns
// its own manager instance.
type Manager struct {
	mu          sync.Mutex
	workers     map[int64]Worker
	gracePeriod time.Duration
	logger      *slog.Logger
}

// NewManager creates a manager with the given stop grace period
func NewManager(gracePeriod time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		workers:     make(map[int64]Worker),
		gracePeriod: gracePeriod,
		logger:      logger,
	}
}

// Start builds and starts a worker for the camera. Starting a camera that
// already has a live worker is a no-op.
func (m *Manager) Start(cameraID int64, factory Factory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w, ok := m.workers[cameraID]; ok && w.IsAlive() {
		m.logger.Info("worker already running", "camera_id", cameraID)
		return nil
	}

	w, err := factory(cameraID)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	m.workers[cameraID] = w
	m.logger.Info("worker started", "camera_id", cameraID)
	return nil
}

// Stop signals the camera's worker and waits up to the grace period for it
// to confirm exit. Unknown cameras are a no-op. Returns ErrStopTimeout when
// the worker does not confirm in time; it is forgotten regardless.
func (m *Manager) Stop(cameraID int64) error {
	m.mu.Lock()
	w, ok := m.workers[cameraID]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	delete(m.workers, cameraID)
	m.mu.Unlock()

	w.Stop()

	select {
	case <-w.Done():
		m.logger.Info("worker stopped", "camera_id", cameraID)
		return nil
	case <-time.After(m.gracePeriod):
		m.logger.Warn("worker stop timed out", "camera_id", cameraID)
		return ErrStopTimeout
	}
}

// Restart stops the camera's worker if present, then starts a fresh one
func (m *Manager) Restart(cameraID int64, factory Factory) error {
	if err := m.Stop(cameraID); err != nil && !errors.Is(err, ErrStopTimeout) {
		return err
	}
	return m.Start(cameraID, factory)
}

// Status reports the camera's worker state. A stopped camera reads
// NOT_STARTED because Stop removes the entry; STOPPED marks a stale entry
// whose worker died on its own.
func (m *Manager) Status(cameraID int64) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workers[cameraID]
	if !ok {
		return StatusNotStarted
	}
	if w.IsAlive() {
		return StatusRunning
	}
	return StatusStopped
}

// Running lists the cameras with a registered worker
func (m *Manager) Running() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.workers))
	for id := range m.workers {
		ids = append(ids, id)
	}
	return ids
}

// StopAll stops every worker, collecting timeouts into one error
func (m *Manager) StopAll() error {
	var errs []error
	for _, id := range m.Running() {
		if err := m.Stop(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
