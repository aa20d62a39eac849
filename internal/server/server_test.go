package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/glance/internal/app"
	"github.com/ayusman/glance/internal/detector"
	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/reasoning"
	"github.com/ayusman/glance/internal/store"
)

func newTestApp(t *testing.T) (*app.App, *reasoning.MockReasoner) {
	t.Helper()
	reasoner := reasoning.NewMockReasoner()
	a := app.New(app.DefaultConfig(), detector.NewMockDetector(), framestore.NewMemoryStore(), reasoner)
	t.Cleanup(func() { a.Close() })
	return a, reasoner
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})

	t.Run("reports retained frames when an app is configured", func(t *testing.T) {
		a, _ := newTestApp(t)
		s := New(Config{App: a})

		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["frames_retained"] != float64(0) {
			t.Errorf("expected frames_retained 0, got %v", response["frames_retained"])
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/ask", "/api/runs", "/api/events"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Metrics(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "glance_frames_sampled_total") {
		t.Error("expected glance collectors in metrics output")
	}
}

func TestServer_AskRoute(t *testing.T) {
	a, reasoner := newTestApp(t)
	reasoner.SetClassification(reasoning.Classification{NeedsVisual: false}, nil)
	reasoner.SetAnswer("Paris.", nil)
	s := New(Config{App: a})

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"question": "capital of France?"}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var res app.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.Status != app.StatusDirect || res.Answer != "Paris." {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_ListenAndServe_ShutsDownOnCancel(t *testing.T) {
	s := New(Config{Events: NewEventsHandler(nil)})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	cancel()
	if err := <-errCh; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestNew_RoutesFollowConfig(t *testing.T) {
	a, _ := newTestApp(t)
	st, err := store.New(filepath.Join(t.TempDir(), "glance.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tests := []struct {
		name   string
		config Config
		path   string
		want   bool
	}{
		{"ask without app", Config{}, "/api/requery", false},
		{"ask with app", Config{App: a}, "/api/requery", true},
		{"runs without store", Config{App: a}, "/api/runs", false},
		{"runs with store", Config{Store: st}, "/api/runs", true},
		{"stream needs app", Config{Store: st}, "/api/stream/x", false},
		{"stream with app and store", Config{App: a, Store: st}, "/api/stream/x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tt.config).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			registered := !strings.Contains(rec.Body.String(), "404 page not found")
			if registered != tt.want {
				t.Errorf("%s registered = %v (status %d), want %v", tt.path, registered, rec.Code, tt.want)
			}
		})
	}

	var _ http.Handler = New(Config{})
}
