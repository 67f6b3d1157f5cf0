package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gocv.io/x/gocv"
)

// ContentType is the container type every segment is written as
const ContentType = "video/mp4"

// SegmentWriter writes one open video segment. RepeatLast re-writes the
// most recent frame to keep the timeline continuous across motion gaps.
type SegmentWriter interface {
	Write(frame gocv.Mat) error
	RepeatLast() error
	Path() string
	Close() (size int64, err error)
}

// WriterFactory opens a fresh segment for a recording event
type WriterFactory func(start time.Time, fps float64, width, height int) (SegmentWriter, error)

// NewWriterFactory returns a factory writing mp4 segments under
// <basePath>/<cameraID>/YYYY/MM/DD/HHMMSS_event.mp4.
func NewWriterFactory(basePath string, cameraID int64) WriterFactory {
	return func(start time.Time, fps float64, width, height int) (SegmentWriter, error) {
		dir := filepath.Join(basePath, strconv.FormatInt(cameraID, 10), start.Format("2006/01/02"))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create segment directory: %w", err)
		}

		path := filepath.Join(dir, start.Format("150405")+"_event.mp4")
		if fps <= 0 {
			fps = 1
		}

		vw, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
		if err != nil {
			return nil, fmt.Errorf("open segment %s: %w", path, err)
		}
		return &videoSegment{writer: vw, path: path}, nil
	}
}

type videoSegment struct {
	writer  *gocv.VideoWriter
	path    string
	last    gocv.Mat
	hasLast bool
}

func (s *videoSegment) Write(frame gocv.Mat) error {
	if err := s.writer.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if s.hasLast {
		s.last.Close()
	}
	s.last = frame.Clone()
	s.hasLast = true
	return nil
}

func (s *videoSegment) RepeatLast() error {
	if !s.hasLast {
		return nil
	}
	if err := s.writer.Write(s.last); err != nil {
		return fmt.Errorf("repeat frame: %w", err)
	}
	return nil
}

func (s *videoSegment) Path() string {
	return s.path
}

func (s *videoSegment) Close() (int64, error) {
	if s.hasLast {
		s.last.Close()
		s.hasLast = false
	}
	if err := s.writer.Close(); err != nil {
		return 0, fmt.Errorf("close segment: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("stat segment: %w", err)
	}
	return info.Size(), nil
}
