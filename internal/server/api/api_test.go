package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/glance/internal/app"
	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

type fakeAsker struct {
	res      *app.Result
	err      error
	question string
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (*app.Result, error) {
	f.question = question
	return f.res, f.err
}

type fakeRequerier struct {
	byCategory map[string][]string
	categories []string
	lastK      int
	lastMax    int
	lastCats   []string
}

func (f *fakeRequerier) Requery(category string, k int) []string {
	f.lastK = k
	ids := f.byCategory[category]
	if len(ids) > k {
		ids = ids[:k]
	}
	if ids == nil {
		return []string{}
	}
	return ids
}

func (f *fakeRequerier) RequeryCategories(categories []string, maxFrames int) []string {
	f.lastCats = categories
	f.lastMax = maxFrames
	var ids []string
	for _, c := range categories {
		if len(ids) == maxFrames {
			break
		}
		if got := f.byCategory[c]; len(got) > 0 {
			ids = append(ids, got[0])
		}
	}
	return ids
}

func (f *fakeRequerier) DetectedCategories() []string {
	return f.categories
}

func TestAskHandler(t *testing.T) {
	answered := &app.Result{
		RunID:            "run-1",
		Question:         "what color is the car?",
		NeedsVisual:      true,
		Categories:       []string{"car"},
		SelectedFrameIDs: []string{"f1"},
		Answer:           "It is red.",
		Status:           app.StatusAnswered,
	}

	tests := []struct {
		name       string
		method     string
		body       string
		asker      *fakeAsker
		wantStatus int
		wantAnswer string
		wantError  string
	}{
		{
			name:       "answers question",
			method:     http.MethodPost,
			body:       `{"question": "  what color is the car? "}`,
			asker:      &fakeAsker{res: answered},
			wantStatus: http.StatusOK,
			wantAnswer: "It is red.",
		},
		{
			name:       "rejects empty question",
			method:     http.MethodPost,
			body:       `{"question": "   "}`,
			asker:      &fakeAsker{res: answered},
			wantStatus: http.StatusBadRequest,
			wantError:  "Question is required",
		},
		{
			name:       "rejects invalid JSON",
			method:     http.MethodPost,
			body:       `{not json`,
			asker:      &fakeAsker{res: answered},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON",
		},
		{
			name:       "canceled request",
			method:     http.MethodPost,
			body:       `{"question": "what is this?"}`,
			asker:      &fakeAsker{res: answered, err: context.Canceled},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  app.TextCanceled,
		},
		{
			name:       "unexpected error",
			method:     http.MethodPost,
			body:       `{"question": "what is this?"}`,
			asker:      &fakeAsker{err: errors.New("boom")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to answer question",
		},
		{
			name:       "only POST",
			method:     http.MethodGet,
			asker:      &fakeAsker{res: answered},
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAskHandler(tt.asker, nil)
			req := httptest.NewRequest(tt.method, "/api/ask", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}

			if tt.wantAnswer != "" {
				var res app.Result
				if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if res.Answer != tt.wantAnswer {
					t.Errorf("expected answer %q, got %q", tt.wantAnswer, res.Answer)
				}
				if res.Status != app.StatusAnswered {
					t.Errorf("expected status %q, got %q", app.StatusAnswered, res.Status)
				}
				if tt.asker.question != "what color is the car?" {
					t.Errorf("question not trimmed: %q", tt.asker.question)
				}
			}

			if tt.wantError != "" {
				var res errorResponse
				if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
					t.Fatalf("failed to decode response: %v", err)
				}
				if res.Error != tt.wantError {
					t.Errorf("expected error %q, got %q", tt.wantError, res.Error)
				}
			}
		})
	}
}

func TestRequeryHandler(t *testing.T) {
	fake := &fakeRequerier{
		byCategory: map[string][]string{
			"car":       {"f2", "f1", "f3"},
			"dog":       {"f4"},
			"tvmonitor": {"f5"},
		},
		categories: []string{"car", "dog"},
	}
	handler := NewRequeryHandler(fake, 2)

	t.Run("lists detected categories", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/requery", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var res categoriesResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if diff := cmp.Diff([]string{"car", "dog"}, res.Categories); diff != "" {
			t.Errorf("categories mismatch (-want +got):\n%s", diff)
		}
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantIDs    []string
	}{
		{
			name:       "top k of one category",
			body:       `{"category": "car", "k": 3}`,
			wantStatus: http.StatusOK,
			wantIDs:    []string{"f2", "f1", "f3"},
		},
		{
			name:       "default k",
			body:       `{"category": "car"}`,
			wantStatus: http.StatusOK,
			wantIDs:    []string{"f2", "f1"},
		},
		{
			name:       "unknown category",
			body:       `{"category": "giraffe", "k": 3}`,
			wantStatus: http.StatusOK,
			wantIDs:    []string{},
		},
		{
			name:       "one frame per category",
			body:       `{"categories": ["dog", "car"], "max_frames": 3}`,
			wantStatus: http.StatusOK,
			wantIDs:    []string{"f4", "f2"},
		},
		{
			name:       "plural category maps to detector label",
			body:       `{"category": "Cars", "k": 1}`,
			wantStatus: http.StatusOK,
			wantIDs:    []string{"f2"},
		},
		{
			name:       "common names map to detector labels",
			body:       `{"categories": ["tv", "dogs", " "], "max_frames": 3}`,
			wantStatus: http.StatusOK,
			wantIDs:    []string{"f5", "f4"},
		},
		{
			name:       "negative k",
			body:       `{"category": "car", "k": -1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "both forms",
			body:       `{"category": "car", "categories": ["dog"]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "neither form",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/requery", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantIDs == nil {
				return
			}

			var res requeryResponse
			if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.wantIDs, res.FrameIDs); diff != "" {
				t.Errorf("frame ids mismatch (-want +got):\n%s", diff)
			}
		})
	}

	t.Run("only GET and POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/requery", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestFramesHandler(t *testing.T) {
	frames := framestore.NewMemoryStore()
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x01, 0x02}
	id, err := frames.Store(context.Background(), jpeg)
	if err != nil {
		t.Fatalf("failed to store frame: %v", err)
	}
	handler := NewFramesHandler(frames)

	t.Run("serves stored frame", func(t *testing.T) {
		for _, path := range []string{"/api/frames/" + id, "/api/frames/" + id + ".jpg"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
				t.Errorf("expected Content-Type image/jpeg, got %s", ct)
			}
			if !bytes.Equal(rec.Body.Bytes(), jpeg) {
				t.Errorf("body mismatch")
			}
		}
	})

	t.Run("unknown frame", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/frames/20240101_000000_deadbeef", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/frames/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("only GET", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/frames/"+id, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func createRun(t *testing.T, s *store.Store, id string, started time.Time, frameIDs ...string) {
	t.Helper()
	run := &store.Run{
		ID:         id,
		Question:   "what is " + id + "?",
		Categories: []string{"car"},
		FrameIDs:   frameIDs,
		Answer:     "an answer",
		Status:     string(app.StatusAnswered),
		StartedAt:  started,
		FinishedAt: started.Add(time.Second),
	}
	if err := s.Runs().Create(context.Background(), run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
}

func TestRunsHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	createRun(t, s, "older", base, "f1")
	createRun(t, s, "newer", base.Add(time.Minute), "f2", "f3")

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var res listRunsResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(res.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(res.Runs))
	}
	if res.Runs[0].ID != "newer" {
		t.Errorf("expected newest run first, got %s", res.Runs[0].ID)
	}
	if diff := cmp.Diff([]string{"f2", "f3"}, res.Runs[0].FrameIDs); diff != "" {
		t.Errorf("frame ids mismatch (-want +got):\n%s", diff)
	}

	t.Run("limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var res listRunsResponse
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(res.Runs) != 1 {
			t.Errorf("expected 1 run, got %d", len(res.Runs))
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestRunsHandler_EmptyList(t *testing.T) {
	handler := NewRunsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Body.String(); got != "{\"runs\":[]}\n" {
		t.Errorf("expected empty list, got %q", got)
	}
}

func TestRunsHandler_GetAndDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewRunsHandler(s)
	createRun(t, s, "run-1", time.Now().UTC(), "f1")

	req := httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var run store.Run
	if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if run.Question != "what is run-1?" {
		t.Errorf("unexpected question %q", run.Question)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/runs/run-1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		req = httptest.NewRequest(method, "/api/runs/run-1", nil)
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s after delete: expected status %d, got %d", method, http.StatusNotFound, rec.Code)
		}
	}
}

func TestRunsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewRunsHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/runs"},
		{http.MethodDelete, "/api/runs"},
		{http.MethodPut, "/api/runs/run-1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
