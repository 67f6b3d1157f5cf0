package identify

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher serializes face tasks through the engine on one goroutine.
// The queue is bounded; when identification falls behind, new faces are
// dropped rather than stalling frame consumption.
type Dispatcher struct {
	engine *Engine
	tasks  chan FaceTask
	logger *slog.Logger

	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher with the given queue capacity
func NewDispatcher(engine *Engine, queueLen int, logger *slog.Logger) *Dispatcher {
	if queueLen <= 0 {
		queueLen = 64
	}
	return &Dispatcher{
		engine: engine,
		tasks:  make(chan FaceTask, queueLen),
		logger: logger,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start launches the worker goroutine
func (d *Dispatcher) Start() {
	go d.loop()
}

func (d *Dispatcher) loop() {
	defer close(d.done)

	ctx := context.Background()
	for {
		select {
		case <-d.stopCh:
			return
		case task := <-d.tasks:
			if err := d.engine.ProcessFace(ctx, task); err != nil {
				d.logger.Error("face processing failed",
					"user_id", task.UserID, "camera_id", task.CameraID, "error", err)
			}
		}
	}
}

// Enqueue queues a face for identification. Returns false when the queue
// is full and the task was dropped.
func (d *Dispatcher) Enqueue(task FaceTask) bool {
	select {
	case d.tasks <- task:
		return true
	default:
		d.logger.Warn("identification queue full, dropping face",
			"user_id", task.UserID, "camera_id", task.CameraID)
		return false
	}
}

// Stop signals the worker to exit and waits for it
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
	})
	<-d.done
}
