// Package testdata builds synthetic video frames for tests.
package testdata

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Default synthetic frame size
const (
	FrameWidth  = 160
	FrameHeight = 120
)

// Frame returns a solid frame whose brightness depends on i, with a white
// square drawn at a position that also moves with i. The caller closes it.
func Frame(i int) *gocv.Mat {
	shade := float64((i * 37) % 200)
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(shade, shade/2, 255-shade, 0), FrameHeight, FrameWidth, gocv.MatTypeCV8UC3)

	x := (i * 7) % (FrameWidth - 20)
	gocv.Rectangle(&mat, image.Rect(x, 40, x+20, 60), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	return &mat
}

// Sequence returns n frames built with Frame.
func Sequence(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = Frame(i)
	}
	return frames
}

// JPEG encodes Frame(i) and returns the bytes.
func JPEG(i int) ([]byte, error) {
	mat := Frame(i)
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// CloseAll releases every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
