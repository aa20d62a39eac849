package capture

import (
	"errors"
	"io"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-built frames for testing
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	fps     float64
	openErr error
	mu      sync.Mutex
	running bool
}

func NewMockSource(frames []*gocv.Mat, fps float64) *MockSource {
	return &MockSource{
		frames: frames,
		fps:    fps,
	}
}

// SetOpenError makes the next Open fail with err
func (s *MockSource) SetOpenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.running = true
	s.index = 0
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceClosed
	}
	if s.index >= len(s.frames) {
		return nil, io.EOF
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockSource) FPS() float64 { return s.fps }

// IsOpen reports whether Open succeeded and Close has not been called
func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ErrMockUnavailable is a convenience error for simulating a missing source
var ErrMockUnavailable = errors.New("mock source unavailable")
