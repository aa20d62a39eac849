package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// yoloScale maps 8-bit pixels into [0, 1].
const yoloScale = 1.0 / 255.0

// YOLODetector runs a Darknet YOLO model through the OpenCV DNN module.
type YOLODetector struct {
	config  Config
	net     gocv.Net
	outputs []string
	mu      sync.Mutex
}

// NewYOLODetector loads weights and network config from disk.
func NewYOLODetector(weightsPath, configPath string, config Config) (*YOLODetector, error) {
	net := gocv.ReadNet(weightsPath, configPath)
	if net.Empty() {
		return nil, fmt.Errorf("load yolo model from %s", weightsPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set dnn backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set dnn target: %w", err)
	}

	if config.InputSize <= 0 {
		config.InputSize = DefaultConfig().InputSize
	}

	return &YOLODetector{
		config:  config,
		net:     net,
		outputs: outputLayerNames(&net),
	}, nil
}

func outputLayerNames(net *gocv.Net) []string {
	names := net.GetLayerNames()
	var outputs []string
	for _, id := range net.GetUnconnectedOutLayers() {
		// Layer ids are 1-based.
		outputs = append(outputs, names[id-1])
	}
	return outputs
}

// Detect runs one forward pass and applies thresholding and NMS.
func (d *YOLODetector) Detect(frame *gocv.Mat) ([]Detection, error) {
	if frame == nil || frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := image.Pt(d.config.InputSize, d.config.InputSize)
	blob := gocv.BlobFromImage(*frame, yoloScale, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outs := d.net.ForwardLayers(d.outputs)
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	width, height := frame.Cols(), frame.Rows()
	var (
		boxes   []image.Rectangle
		scores  []float32
		classes []int
	)

	for _, out := range outs {
		for row := 0; row < out.Rows(); row++ {
			classID, score := bestClass(&out, row)
			if float64(score) <= d.config.ConfThreshold {
				continue
			}

			cx := float64(out.GetFloatAt(row, 0)) * float64(width)
			cy := float64(out.GetFloatAt(row, 1)) * float64(height)
			w := float64(out.GetFloatAt(row, 2)) * float64(width)
			h := float64(out.GetFloatAt(row, 3)) * float64(height)
			x := int(cx - w/2)
			y := int(cy - h/2)

			boxes = append(boxes, image.Rect(x, y, x+int(w), y+int(h)))
			scores = append(scores, score)
			classes = append(classes, classID)
		}
	}

	if len(boxes) == 0 {
		return []Detection{}, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(d.config.ConfThreshold), float32(d.config.NMSThreshold))

	detections := make([]Detection, 0, len(keep))
	for _, i := range keep {
		detections = append(detections, Detection{
			Category:   ClassName(classes[i]),
			Confidence: float64(scores[i]),
			Box:        boxes[i],
		})
	}
	return detections, nil
}

// bestClass returns the argmax over the class scores of one output row.
// Columns 0-3 are the box and column 4 the objectness score.
func bestClass(out *gocv.Mat, row int) (int, float32) {
	best := -1
	var bestScore float32
	for col := 5; col < out.Cols(); col++ {
		if s := out.GetFloatAt(row, col); best == -1 || s > bestScore {
			best = col - 5
			bestScore = s
		}
	}
	return best, bestScore
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
