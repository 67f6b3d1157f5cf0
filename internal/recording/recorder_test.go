package recording

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/saturnino-fabrica-de-software/vigia/internal/domain"
)

type scriptedScorer struct {
	scores []float64
	calls  int
	closed bool
}

func (s *scriptedScorer) Score(frame gocv.Mat) float64 {
	if s.calls >= len(s.scores) {
		return 0
	}
	score := s.scores[s.calls]
	s.calls++
	return score
}

func (s *scriptedScorer) Close() { s.closed = true }

type fakeSegment struct {
	path    string
	writes  int
	repeats int
	closed  bool
	size    int64
}

func (f *fakeSegment) Write(frame gocv.Mat) error { f.writes++; return nil }
func (f *fakeSegment) RepeatLast() error          { f.repeats++; return nil }
func (f *fakeSegment) Path() string               { return f.path }
func (f *fakeSegment) Close() (int64, error)      { f.closed = true; return f.size, nil }

type fakeFactory struct {
	segments []*fakeSegment
}

func (f *fakeFactory) make(start time.Time, fps float64, width, height int) (SegmentWriter, error) {
	seg := &fakeSegment{path: "recordings/3/seg.mp4", size: 4096}
	f.segments = append(f.segments, seg)
	return seg, nil
}

func newTestRecorder(scorer MotionScorer, factory *fakeFactory, grace time.Duration) *Recorder {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecorder(3, 42, scorer, factory.make, grace, logger)
}

// scores builds a score script: n frames of motion followed by m without
func scores(motion, still int) []float64 {
	out := make([]float64, 0, motion+still)
	for i := 0; i < motion; i++ {
		out = append(out, 0.5)
	}
	for i := 0; i < still; i++ {
		out = append(out, 0.0)
	}
	return out
}

func TestRecorder_IdleWithoutMotionStaysIdle(t *testing.T) {
	factory := &fakeFactory{}
	r := newTestRecorder(&scriptedScorer{scores: scores(0, 5)}, factory, 30*time.Second)

	for i := 0; i < 5; i++ {
		rec, err := r.HandleFrame(gocv.Mat{}, float64(i), 1, 640, 480)
		require.NoError(t, err)
		assert.Nil(t, rec)
	}
	assert.Empty(t, factory.segments)
}

func TestRecorder_MotionScenario(t *testing.T) {
	// Frames 0-9 with motion, then stillness at one frame per second.
	factory := &fakeFactory{}
	r := newTestRecorder(&scriptedScorer{scores: scores(10, 40)}, factory, 30*time.Second)

	var got *domain.Recording
	var closedAt float64
	for i := 0; i < 50; i++ {
		ts := float64(i)
		rec, err := r.HandleFrame(gocv.Mat{}, ts, 1, 640, 480)
		require.NoError(t, err)
		if rec != nil {
			require.Nil(t, got, "only one event may be produced")
			got = rec
			closedAt = ts
		}
	}

	require.NotNil(t, got)
	require.Len(t, factory.segments, 1)
	seg := factory.segments[0]

	// Last motion at t=9; at t=39 the 30s grace has elapsed exactly and the
	// segment stays open, so t=40 closes it.
	assert.Equal(t, 40.0, closedAt)
	assert.True(t, seg.closed)
	assert.Equal(t, 10, seg.writes)
	assert.Equal(t, 30, seg.repeats)

	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, int64(3), got.CameraID)
	assert.Equal(t, 10, got.MovementScore)
	assert.InDelta(t, 40000.0, got.DurationMs, 1e-9)
	assert.Equal(t, ContentType, got.ContentType)
	assert.Equal(t, domain.RecordingReady, got.Status)
	require.NotNil(t, got.FileSize)
	assert.Equal(t, int64(4096), *got.FileSize)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.EndedAt)
	assert.InDelta(t, 40.0, got.EndedAt.Sub(*got.StartedAt).Seconds(), 1e-6)
}

func TestRecorder_GraceBoundary(t *testing.T) {
	t.Run("exactly at the grace period stays open", func(t *testing.T) {
		factory := &fakeFactory{}
		r := newTestRecorder(&scriptedScorer{scores: scores(1, 1)}, factory, 30*time.Second)

		_, err := r.HandleFrame(gocv.Mat{}, 0, 1, 640, 480)
		require.NoError(t, err)

		rec, err := r.HandleFrame(gocv.Mat{}, 30, 1, 640, 480)
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.False(t, factory.segments[0].closed)
		assert.Equal(t, 1, factory.segments[0].repeats)
	})

	t.Run("past the grace period closes", func(t *testing.T) {
		factory := &fakeFactory{}
		r := newTestRecorder(&scriptedScorer{scores: scores(1, 1)}, factory, 30*time.Second)

		_, err := r.HandleFrame(gocv.Mat{}, 0, 1, 640, 480)
		require.NoError(t, err)

		rec, err := r.HandleFrame(gocv.Mat{}, 31, 1, 640, 480)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.True(t, factory.segments[0].closed)
		assert.Equal(t, 1, rec.MovementScore)
	})
}

func TestRecorder_NewEventAfterClose(t *testing.T) {
	factory := &fakeFactory{}
	script := append(scores(2, 0), append([]float64{0}, scores(3, 0)...)...)
	r := newTestRecorder(&scriptedScorer{scores: script}, factory, 1*time.Second)

	// Motion at t=0,1; stillness at t=3 exceeds the 1s grace and closes.
	_, err := r.HandleFrame(gocv.Mat{}, 0, 1, 640, 480)
	require.NoError(t, err)
	_, err = r.HandleFrame(gocv.Mat{}, 1, 1, 640, 480)
	require.NoError(t, err)
	rec, err := r.HandleFrame(gocv.Mat{}, 3, 1, 640, 480)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// Fresh motion opens a second segment with reset counters.
	for i := 4; i < 7; i++ {
		rec, err = r.HandleFrame(gocv.Mat{}, float64(i), 1, 640, 480)
		require.NoError(t, err)
		assert.Nil(t, rec)
	}

	require.Len(t, factory.segments, 2)
	assert.Equal(t, 3, factory.segments[1].writes)
	assert.False(t, factory.segments[1].closed)
}

func TestRecorder_AbandonDropsOpenSegment(t *testing.T) {
	factory := &fakeFactory{}
	r := newTestRecorder(&scriptedScorer{scores: scores(2, 0)}, factory, 30*time.Second)

	_, err := r.HandleFrame(gocv.Mat{}, 0, 1, 640, 480)
	require.NoError(t, err)

	r.Abandon()
	assert.True(t, factory.segments[0].closed)

	// A second abandon is a no-op.
	r.Abandon()
	require.Len(t, factory.segments, 1)
}
