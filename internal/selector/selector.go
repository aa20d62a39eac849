// Package selector chooses representative frame ids from a tracker list,
// either the top K for one category or one frame per requested category.
package selector

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/glance/internal/tracker"
)

// NoRelevantObject is the sentinel category produced by the question
// classifier when the question is visual but names nothing detectable.
const NoRelevantObject = "no relevant object found"

// Rand is the randomness source used for "any unused frame" picks.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Selector picks frame ids from tracker snapshots. It never mutates the
// trackers it is given and is safe for concurrent use.
type Selector struct {
	rngMu  sync.Mutex
	rng    Rand
	logger *zap.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand sets the randomness source for fallback picks. Calls into r are
// serialized by the Selector.
func WithRand(r Rand) Option {
	return func(s *Selector) {
		s.rng = r
	}
}

// WithLogger sets the logger used to report unresolved categories.
func WithLogger(l *zap.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Selector. Without WithRand it uses a time-seeded PCG source.
func New(opts ...Option) *Selector {
	s := &Selector{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(time.Now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

// SelectTopK returns up to k frame ids for category, best-ranked tracker
// first. Ids of one tracker are flattened in append order without
// deduplication. Trackers that never saw the category rank last and
// contribute nothing.
func (s *Selector) SelectTopK(trackers []*tracker.Tracker, category string, k int) []string {
	if k <= 0 || len(trackers) == 0 {
		return []string{}
	}

	q := tracker.NewQueue(trackers, category)
	ids := make([]string, 0, k)
	for q.Len() > 0 && len(ids) < k {
		t := q.Pop()
		if !t.Contains(category) {
			continue
		}
		ids = append(ids, t.FrameIDs()...)
	}

	if len(ids) > k {
		ids = ids[:k]
	}
	return ids
}

// SelectForCategories picks at most one frame id per requested category,
// processing categories in order and stopping after maxFrames of them.
// No frame id is returned twice.
//
// For an ordinary category the tracker with the strictly highest average
// confidence among those that saw it and still have unused ids wins; its
// first unused id is taken. The sentinel category, and any category nothing
// can serve, gets a random unused id from any tracker.
func (s *Selector) SelectForCategories(trackers []*tracker.Tracker, categories []string, maxFrames int) []string {
	if maxFrames <= 0 || len(trackers) == 0 {
		return []string{}
	}

	ids := make([][]string, len(trackers))
	for i, t := range trackers {
		ids[i] = t.FrameIDs()
	}

	used := make(map[string]bool)
	selected := make([]string, 0, maxFrames)

	for i, category := range categories {
		if i >= maxFrames {
			break
		}

		var id string
		var ok bool
		if category == NoRelevantObject {
			id, ok = s.pickAny(ids, used)
		} else {
			id, ok = pickBest(trackers, ids, used, category)
			if !ok {
				s.logger.Warn("category unresolved, falling back to any unused frame",
					zap.String("category", category))
				id, ok = s.pickAny(ids, used)
			}
		}

		if !ok {
			s.logger.Debug("no unused frames left", zap.String("category", category))
			continue
		}
		used[id] = true
		selected = append(selected, id)
	}

	return selected
}

// pickBest returns the first unused id of the tracker with the strictly
// highest confidence for category.
func pickBest(trackers []*tracker.Tracker, ids [][]string, used map[string]bool, category string) (string, bool) {
	best := -1
	var bestConf float64
	var bestID string

	for i, t := range trackers {
		conf, ok := t.AverageConfidence(category)
		if !ok {
			continue
		}
		id, ok := firstUnused(ids[i], used)
		if !ok {
			continue
		}
		if best == -1 || conf > bestConf {
			best = i
			bestConf = conf
			bestID = id
		}
	}

	return bestID, best != -1
}

// pickAny returns the first unused id of a uniformly chosen tracker that
// still has unused ids.
func (s *Selector) pickAny(ids [][]string, used map[string]bool) (string, bool) {
	var eligible []string
	for _, frameIDs := range ids {
		if id, ok := firstUnused(frameIDs, used); ok {
			eligible = append(eligible, id)
		}
	}
	if len(eligible) == 0 {
		return "", false
	}
	return eligible[s.intN(len(eligible))], true
}

func (s *Selector) intN(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(n)
}

func firstUnused(ids []string, used map[string]bool) (string, bool) {
	for _, id := range ids {
		if !used[id] {
			return id, true
		}
	}
	return "", false
}

// IsOnlySentinel reports whether categories is empty or contains nothing
// but the sentinel.
func IsOnlySentinel(categories []string) bool {
	for _, c := range categories {
		if c != NoRelevantObject {
			return false
		}
	}
	return true
}
