package tracker

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-12

func TestTracker_Update(t *testing.T) {
	tests := []struct {
		name        string
		confidences []float64
		wantCount   int
		wantAvg     float64
	}{
		{
			name:        "single detection",
			confidences: []float64{0.8},
			wantCount:   1,
			wantAvg:     0.8,
		},
		{
			name:        "two detections",
			confidences: []float64{0.9, 0.7},
			wantCount:   2,
			wantAvg:     0.8,
		},
		{
			name:        "identical detections",
			confidences: []float64{0.6, 0.6, 0.6, 0.6},
			wantCount:   4,
			wantAvg:     0.6,
		},
		{
			name:        "wide spread",
			confidences: []float64{0.51, 0.99, 0.75, 0.62, 0.88},
			wantCount:   5,
			wantAvg:     (0.51 + 0.99 + 0.75 + 0.62 + 0.88) / 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(0)
			for _, c := range tt.confidences {
				tr.Update("car", c)
			}

			assert.Equal(t, tt.wantCount, tr.Count("car"))
			avg, ok := tr.AverageConfidence("car")
			require.True(t, ok)
			assert.InDelta(t, tt.wantAvg, avg, epsilon)
		})
	}
}

func TestTracker_Update_MeanIsOrderIndependent(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 200; trial++ {
		n := 1 + r.IntN(40)
		confs := make([]float64, n)
		var sum float64
		for i := range confs {
			confs[i] = 0.01 + r.Float64()*0.99
			sum += confs[i]
		}
		mean := sum / float64(n)

		forward := New(0)
		for _, c := range confs {
			forward.Update("person", c)
		}

		shuffled := make([]float64, n)
		copy(shuffled, confs)
		r.Shuffle(n, func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		backward := New(0)
		for _, c := range shuffled {
			backward.Update("person", c)
		}

		fAvg, _ := forward.AverageConfidence("person")
		bAvg, _ := backward.AverageConfidence("person")
		if math.Abs(fAvg-mean) > 1e-9 {
			t.Fatalf("trial %d: forward avg %v, mean %v", trial, fAvg, mean)
		}
		if math.Abs(bAvg-mean) > 1e-9 {
			t.Fatalf("trial %d: shuffled avg %v, mean %v", trial, bAvg, mean)
		}
	}
}

func TestTracker_AverageConfidence_Missing(t *testing.T) {
	tr := New(0)
	tr.Update("dog", 0.7)

	_, ok := tr.AverageConfidence("cat")
	assert.False(t, ok, "undetected category must not have an average")
	assert.False(t, tr.Contains("cat"))
	assert.True(t, tr.Contains("dog"))
	assert.Equal(t, []string{"dog"}, tr.Categories())
}

func TestTracker_AddFrameID(t *testing.T) {
	tr := New(3)
	assert.False(t, tr.HasFrames())

	tr.AddFrameID("b")
	tr.AddFrameID("a")
	tr.AddFrameID("b")

	assert.True(t, tr.HasFrames())
	assert.Equal(t, []string{"b", "a", "b"}, tr.FrameIDs())

	ids := tr.FrameIDs()
	ids[0] = "mutated"
	assert.Equal(t, "b", tr.FrameIDs()[0], "FrameIDs must return a copy")
}

func TestTracker_Clone(t *testing.T) {
	tr := New(7)
	tr.Update("car", 0.9)
	tr.AddFrameID("f1")

	c := tr.Clone()
	c.Update("car", 0.1)
	c.AddFrameID("f2")

	assert.Equal(t, 1, tr.Count("car"))
	assert.Equal(t, []string{"f1"}, tr.FrameIDs())
	assert.Equal(t, 7, c.Index)
	assert.Equal(t, 2, c.Count("car"))
}

func TestTracker_String(t *testing.T) {
	empty := New(0)
	assert.Contains(t, empty.String(), "No objects detected")

	tr := New(0)
	tr.Update("traffic light", 0.75)
	tr.Update("car", 0.5)
	tr.AddFrameID("20240101_120000_abcd1234")

	s := tr.String()
	assert.Contains(t, s, "traffic light")
	assert.Contains(t, s, "0.750")
	assert.Contains(t, s, "20240101_120000_abcd1234")
	assert.Less(t, strings.Index(s, "car"), strings.Index(s, "traffic light"), "categories are sorted")
}
