package tracker

import (
	"container/heap"
	"fmt"
)

// Compare orders two trackers for the given category. It returns a negative
// value when a ranks ahead of b, positive when b ranks ahead, zero when the
// two are indistinguishable.
//
// Higher average confidence for category ranks first; a missing category
// counts as 0. Ties go to the tracker that has frame ids, then to the one
// whose first frame id is lexicographically smaller.
func Compare(a, b *Tracker, category string) int {
	ac := a.avg[category]
	bc := b.avg[category]
	if a.counts[category] == 0 {
		ac = 0
	}
	if b.counts[category] == 0 {
		bc = 0
	}

	switch {
	case ac > bc:
		return -1
	case ac < bc:
		return 1
	}

	aID, aOK := a.firstFrameID()
	bID, bOK := b.firstFrameID()
	switch {
	case aOK && !bOK:
		return -1
	case !aOK && bOK:
		return 1
	case !aOK && !bOK:
		return 0
	case aID < bID:
		return -1
	case aID > bID:
		return 1
	}
	return 0
}

// Ranked pairs a tracker with the category it is being ranked by. The
// category lives on the key, never on the shared tracker.
type Ranked struct {
	*Tracker
	Category string
}

// Target returns a ranking key for t keyed on category.
func (t *Tracker) Target(category string) Ranked {
	return Ranked{Tracker: t, Category: category}
}

// Compare orders r against other. Both keys must target the same non-empty
// category; anything else panics.
func (r Ranked) Compare(other Ranked) int {
	if r.Category == "" || other.Category == "" {
		panic("tracker: compare with unset target category")
	}
	if r.Category != other.Category {
		panic(fmt.Sprintf("tracker: compare across target categories %q and %q", r.Category, other.Category))
	}
	return Compare(r.Tracker, other.Tracker, r.Category)
}

// Queue is a max-priority queue of trackers ranked for one category.
type Queue struct {
	items rankedHeap
}

// NewQueue builds a queue over trackers for category. The trackers are not
// modified.
func NewQueue(trackers []*Tracker, category string) *Queue {
	items := make(rankedHeap, 0, len(trackers))
	for _, t := range trackers {
		items = append(items, t.Target(category))
	}
	heap.Init(&items)
	return &Queue{items: items}
}

// Len returns the number of trackers left in the queue.
func (q *Queue) Len() int {
	return q.items.Len()
}

// Pop removes and returns the best-ranked tracker, or nil if empty.
func (q *Queue) Pop() *Tracker {
	if q.items.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.items).(Ranked).Tracker
}

type rankedHeap []Ranked

func (h rankedHeap) Len() int           { return len(h) }
func (h rankedHeap) Less(i, j int) bool { return h[i].Compare(h[j]) < 0 }
func (h rankedHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankedHeap) Push(x any) {
	*h = append(*h, x.(Ranked))
}

func (h *rankedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
