package detector

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Annotation drawing settings
const (
	boxThickness  = 4
	textThickness = 3
	textScale     = 1.0
	textOffset    = 10
)

// Annotate draws a box and a "<label> <confidence>" caption for every
// detection onto frame in place.
func Annotate(frame *gocv.Mat, detections []Detection) {
	for _, d := range detections {
		c := ClassColor(d.Category)
		gocv.Rectangle(frame, d.Box, c, boxThickness)

		label := fmt.Sprintf("%s %.3f", d.Category, d.Confidence)
		gocv.PutText(frame, label, image.Pt(d.Box.Min.X, d.Box.Min.Y-textOffset),
			gocv.FontHersheySimplex, textScale, c, textThickness)
	}
}

// ClassColor returns a stable color for a category so that the same class
// is drawn the same way across frames.
func ClassColor(category string) color.RGBA {
	h := fnv.New32a()
	h.Write([]byte(category))
	v := h.Sum32()
	return color.RGBA{
		R: uint8(v),
		G: uint8(v >> 8),
		B: uint8(v >> 16),
		A: 255,
	}
}
