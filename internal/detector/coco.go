package detector

// COCOClasses is the 80-class COCO label set, indexed by class id.
var COCOClasses = [...]string{
	"person", "bicycle", "car", "motorbike", "aeroplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"sofa", "pottedplant", "bed", "diningtable", "toilet", "tvmonitor", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

var cocoIndex = func() map[string]int {
	m := make(map[string]int, len(COCOClasses))
	for i, name := range COCOClasses {
		m[name] = i
	}
	return m
}()

// IsCOCOClass reports whether name is one of the COCO labels.
func IsCOCOClass(name string) bool {
	_, ok := cocoIndex[name]
	return ok
}

// ClassIndex returns the class id for name, or -1.
func ClassIndex(name string) int {
	if i, ok := cocoIndex[name]; ok {
		return i
	}
	return -1
}

// ClassName returns the label for a class id, or "unknown".
func ClassName(id int) string {
	if id < 0 || id >= len(COCOClasses) {
		return "unknown"
	}
	return COCOClasses[id]
}
