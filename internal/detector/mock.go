package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	sequence [][]Detection
	errs     map[int]error
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{errs: make(map[int]error)}
}

// SetDetections makes every Detect call return detections.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = [][]Detection{detections}
}

// SetSequence makes call i return sequence[i % len(sequence)].
func (m *MockDetector) SetSequence(sequence [][]Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = sequence
}

// SetError sets the error that will be returned by every Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetErrorAt makes only the call with the given zero-based index fail.
func (m *MockDetector) SetErrorAt(call int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[call] = err
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.calls
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if err, ok := m.errs[call]; ok {
		return nil, err
	}
	if len(m.sequence) == 0 {
		return []Detection{}, nil
	}

	src := m.sequence[call%len(m.sequence)]
	out := make([]Detection, len(src))
	copy(out, src)
	return out, nil
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// Det is a shorthand for building a Detection with a fixed box in tests.
func Det(category string, confidence float64) Detection {
	return Detection{
		Category:   category,
		Confidence: confidence,
		Box:        image.Rect(10, 20, 110, 220),
	}
}
