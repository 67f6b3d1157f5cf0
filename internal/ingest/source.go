package ingest

import (
	"fmt"
	"strconv"

	"gocv.io/x/gocv"
)

// FrameSource abstracts a camera capture handle
type FrameSource interface {
	Read(dst *gocv.Mat) bool
	FPS() float64
	Close() error
}

// SourceFactory opens a capture for a camera locator
type SourceFactory func(locator string) (FrameSource, error)

// ParseLocator turns a camera locator into the value the capture layer
// expects: a bare integer selects a local device, anything else is treated
// as a stream URL.
func ParseLocator(locator string) interface{} {
	if idx, err := strconv.Atoi(locator); err == nil {
		return idx
	}
	return locator
}

// OpenCaptureSource is the production SourceFactory over a video capture
// device or stream.
func OpenCaptureSource(locator string) (FrameSource, error) {
	cap, err := gocv.OpenVideoCapture(ParseLocator(locator))
	if err != nil {
		return nil, fmt.Errorf("open capture %q: %w", locator, err)
	}
	return &captureSource{cap: cap}, nil
}

type captureSource struct {
	cap *gocv.VideoCapture
}

func (s *captureSource) Read(dst *gocv.Mat) bool {
	return s.cap.Read(dst)
}

func (s *captureSource) FPS() float64 {
	fps := s.cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30
	}
	return fps
}

func (s *captureSource) Close() error {
	return s.cap.Close()
}
