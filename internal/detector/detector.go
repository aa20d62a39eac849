// Package detector provides object detection interfaces, the COCO label
// vocabulary and gocv-based implementations.
package detector

import (
	"image"

	"gocv.io/x/gocv"
)

// Detection is one object found in a frame.
type Detection struct {
	Category   string
	Confidence float64
	Box        image.Rectangle
}

// Detector defines the interface for object detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the objects that survived
	// thresholding and non-maximum suppression. Returns an empty slice if
	// nothing was found. The frame is not modified.
	Detect(frame *gocv.Mat) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for object detection.
type Config struct {
	// ConfThreshold is the minimum class score for a box to be kept (0.0-1.0).
	ConfThreshold float64

	// NMSThreshold is the IoU threshold for non-maximum suppression.
	NMSThreshold float64

	// InputSize is the square network input size in pixels.
	InputSize int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
		InputSize:     416,
	}
}
