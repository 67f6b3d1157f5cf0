package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name    string
		locator string
		want    interface{}
	}{
		{name: "device index", locator: "0", want: 0},
		{name: "larger device index", locator: "12", want: 12},
		{name: "rtsp url", locator: "rtsp://cam.local/stream", want: "rtsp://cam.local/stream"},
		{name: "file path", locator: "/video/sample.mp4", want: "/video/sample.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLocator(tt.locator))
		})
	}
}

type deadSource struct{}

func (deadSource) Read(dst *gocv.Mat) bool { return false }
func (deadSource) FPS() float64            { return 30 }
func (deadSource) Close() error            { return nil }

type nopPublisher struct {
	calls atomic.Int32
}

func (p *nopPublisher) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	p.calls.Add(1)
	return nil
}

func testWorkerConfig() Config {
	return Config{
		CameraID:       3,
		UserID:         42,
		Locator:        "0",
		JpegQuality:    80,
		ReconnectDelay: time.Millisecond,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_StartFailsWhenCameraUnreachable(t *testing.T) {
	attempts := 0
	factory := func(locator string) (FrameSource, error) {
		attempts++
		return nil, errors.New("no such device")
	}

	w := NewWorker(testWorkerConfig(), factory, &nopPublisher{}, discardLogger())
	err := w.Start()
	require.Error(t, err)
	assert.False(t, w.IsAlive())
	assert.Equal(t, 6, attempts, "initial try plus five retries")
}

func TestWorker_RetriesReconnectUntilStopped(t *testing.T) {
	var opened atomic.Int32
	factory := func(locator string) (FrameSource, error) {
		if opened.Add(1) == 1 {
			return deadSource{}, nil
		}
		return nil, errors.New("camera gone")
	}

	w := NewWorker(testWorkerConfig(), factory, &nopPublisher{}, discardLogger())
	require.NoError(t, w.Start())

	// Losing the camera must not kill the worker; it keeps reopening.
	require.Eventually(t, func() bool { return opened.Load() > 3 },
		2*time.Second, 5*time.Millisecond)
	assert.True(t, w.IsAlive())

	w.Stop()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not confirm stop")
	}
	assert.False(t, w.IsAlive())
}

func TestWorker_StopSignalsLoop(t *testing.T) {
	factory := func(locator string) (FrameSource, error) {
		return deadSource{}, nil
	}

	w := NewWorker(testWorkerConfig(), factory, &nopPublisher{}, discardLogger())
	require.NoError(t, w.Start())
	assert.True(t, w.IsAlive())

	w.Stop()
	w.Stop() // idempotent

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not confirm stop")
	}
	assert.False(t, w.IsAlive())
}
