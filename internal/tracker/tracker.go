// Package tracker accumulates per-frame object detection statistics and
// defines the ordering used to rank frames for a category.
package tracker

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Tracker accumulates object counts and running-average confidences for a
// single sampled frame, along with the storage ids assigned to that frame.
//
// Counts and confidences are written only while the frame's detection pass
// runs. Frame ids may be appended later by an upload worker, so they are
// guarded by a mutex.
type Tracker struct {
	// Index is the source frame index this tracker was built from.
	Index int

	counts map[string]int
	avg    map[string]float64

	mu       sync.RWMutex
	frameIDs []string
}

// New creates an empty Tracker for the given source frame index.
func New(index int) *Tracker {
	return &Tracker{
		Index:  index,
		counts: make(map[string]int),
		avg:    make(map[string]float64),
	}
}

// Update records one detection of category with the given confidence.
// The average is maintained with the incremental mean
// avg' = avg*(n-1)/n + conf/n where n is the count after incrementing.
func (t *Tracker) Update(category string, confidence float64) {
	t.counts[category]++
	n := float64(t.counts[category])
	t.avg[category] = t.avg[category]*((n-1)/n) + confidence/n
}

// AddFrameID appends a storage id for this frame. Duplicates are not checked.
func (t *Tracker) AddFrameID(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frameIDs = append(t.frameIDs, id)
}

// FrameIDs returns a copy of the frame ids in append order.
func (t *Tracker) FrameIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, len(t.frameIDs))
	copy(ids, t.frameIDs)
	return ids
}

// HasFrames reports whether at least one frame id has been recorded.
func (t *Tracker) HasFrames() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.frameIDs) > 0
}

// firstFrameID returns the earliest frame id, if any.
func (t *Tracker) firstFrameID() (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.frameIDs) == 0 {
		return "", false
	}
	return t.frameIDs[0], true
}

// Count returns how many times category was detected in this frame.
func (t *Tracker) Count(category string) int {
	return t.counts[category]
}

// AverageConfidence returns the mean confidence for category and whether
// the category was detected at all.
func (t *Tracker) AverageConfidence(category string) (float64, bool) {
	if t.counts[category] == 0 {
		return 0, false
	}
	return t.avg[category], true
}

// Contains reports whether category was detected in this frame.
func (t *Tracker) Contains(category string) bool {
	return t.counts[category] > 0
}

// Categories returns the detected categories in sorted order.
func (t *Tracker) Categories() []string {
	cats := make([]string, 0, len(t.counts))
	for c, n := range t.counts {
		if n > 0 {
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)
	return cats
}

// Counts returns a copy of the per-category counts.
func (t *Tracker) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for c, n := range t.counts {
		out[c] = n
	}
	return out
}

// Clone returns a deep copy that shares no state with t.
func (t *Tracker) Clone() *Tracker {
	c := New(t.Index)
	for k, v := range t.counts {
		c.counts[k] = v
	}
	for k, v := range t.avg {
		c.avg[k] = v
	}
	c.frameIDs = t.FrameIDs()
	return c
}

// CloneAll deep-copies a tracker list.
func CloneAll(trackers []*Tracker) []*Tracker {
	out := make([]*Tracker, len(trackers))
	for i, t := range trackers {
		out[i] = t.Clone()
	}
	return out
}

// String renders a detection summary table.
func (t *Tracker) String() string {
	var b strings.Builder
	b.WriteString("=== Object Detection Summary ===\n")

	cats := t.Categories()
	if len(cats) == 0 {
		b.WriteString("No objects detected\n")
	} else {
		width := len("Object")
		for _, c := range cats {
			if len(c) > width {
				width = len(c)
			}
		}
		fmt.Fprintf(&b, "%-*s | Count | Avg Confidence\n", width, "Object")
		b.WriteString(strings.Repeat("-", width+25))
		b.WriteString("\n")
		for _, c := range cats {
			fmt.Fprintf(&b, "%-*s | %5d | %.3f\n", width, c, t.counts[c], t.avg[c])
		}
	}

	ids := t.FrameIDs()
	if len(ids) > 0 {
		b.WriteString("Frame IDs: ")
		b.WriteString(strings.Join(ids, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
