// Package capture reads frames from video files and camera devices using
// GoCV (OpenCV) and decides which of them get sampled.
package capture

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

// FallbackFPS is assumed when the source does not report a frame rate.
const FallbackFPS = 30.0

// ErrSourceClosed is returned when reading from a source that is not open.
var ErrSourceClosed = errors.New("source is not open")

// Source defines the interface for frame sources. ReadFrame returns io.EOF
// once the stream is exhausted. The caller closes every returned Mat.
type Source interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	FPS() float64
}

// videoSource reads from a file path, stream URL or camera device.
type videoSource struct {
	target  any
	name    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     float64
}

// NewSource creates a Source for name. A name that parses as an integer is
// treated as a camera device id; anything else is passed to OpenCV as a
// file path or stream URL.
func NewSource(name string) Source {
	var target any = name
	if id, err := strconv.Atoi(name); err == nil {
		target = id
	}
	return &videoSource{
		target: target,
		name:   name,
	}
}

// Open opens the underlying capture and reads its frame rate.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(s.target)
	if err != nil {
		return fmt.Errorf("open video %q: %w", s.name, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open video %q: capture not opened", s.name)
	}

	s.fps = capture.Get(gocv.VideoCaptureFPS)
	if s.fps <= 0 || math.IsNaN(s.fps) {
		s.fps = FallbackFPS
	}
	s.capture = capture
	s.running = true

	return nil
}

// Close releases the capture. Closing a source that is not open is a no-op.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		s.running = false
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	s.running = false

	return err
}

// ReadFrame reads the next frame. A failed or empty read is the end of
// the stream.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || s.capture == nil {
		return nil, ErrSourceClosed
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}

	return &mat, nil
}

// FPS returns the source frame rate, or zero before Open.
func (s *videoSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fps
}
