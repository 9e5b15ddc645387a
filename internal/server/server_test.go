package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"promoscan/internal/promo"
	"promoscan/internal/runner"
	"promoscan/internal/store"
)

type fakeHistory struct {
	runs       []store.Run
	limit      int
	categories map[int64][]promo.Category
}

func (f *fakeHistory) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	f.limit = limit
	return f.runs, nil
}

func (f *fakeHistory) Categories(ctx context.Context, runID int64) ([]promo.Category, error) {
	cats, ok := f.categories[runID]
	if !ok {
		return nil, store.ErrRunNotFound
	}
	return cats, nil
}

func okRun(ctx context.Context) (runner.Summary, error) {
	return runner.Summary{Site: "eurospin", Categories: 3, Products: 12}, nil
}

func do(t *testing.T, h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := NewServer(NewHandler(okRun, nil, "", "json"), "secret")

	w := do(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["running"] != false {
		t.Errorf("Unexpected health body: %v", body)
	}
}

func TestTriggerRun(t *testing.T) {
	r := NewServer(NewHandler(okRun, nil, "", "json"), "")

	w := do(t, r, http.MethodPost, "/api/runs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var summary runner.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Categories != 3 || summary.Products != 12 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}

func TestTriggerRunFailure(t *testing.T) {
	run := func(ctx context.Context) (runner.Summary, error) {
		return runner.Summary{}, errors.New("failed to open landing page")
	}
	r := NewServer(NewHandler(run, nil, "", "json"), "")

	if w := do(t, r, http.MethodPost, "/api/runs", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestTriggerRunConflict(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	run := func(ctx context.Context) (runner.Summary, error) {
		close(started)
		<-release
		return runner.Summary{}, nil
	}
	r := NewServer(NewHandler(run, nil, "", "json"), "")

	done := make(chan int)
	go func() {
		done <- do(t, r, http.MethodPost, "/api/runs", nil).Code
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("First run did not start")
	}

	if w := do(t, r, http.MethodPost, "/api/runs", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected 409 while a run is active, got %d", w.Code)
	}

	var health map[string]any
	w := do(t, r, http.MethodGet, "/health", nil)
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["running"] != true {
		t.Errorf("Expected health to report a running crawl, got %v", health)
	}

	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("Expected first run to finish with 200, got %d", code)
	}
}

func TestAuth(t *testing.T) {
	r := NewServer(NewHandler(okRun, nil, "", "json"), "secret")

	if w := do(t, r, http.MethodPost, "/api/runs", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/api/runs", map[string]string{"X-API-Key": "secret"}); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with X-API-Key, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/runs", map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestGetPromotions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promozioni_eurospin.json")
	r := NewServer(NewHandler(okRun, nil, path, "json"), "")

	if w := do(t, r, http.MethodGet, "/api/promotions", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without artifact, got %d", w.Code)
	}

	content := "[\n  {\n    \"nome\": \"Caffè\",\n    \"url\": \"u\",\n    \"prodotti\": []\n  }\n]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	w := do(t, r, http.MethodGet, "/api/promotions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != content {
		t.Errorf("Expected artifact bytes unchanged, got %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Unexpected content type %q", ct)
	}
}

func TestListRuns(t *testing.T) {
	r := NewServer(NewHandler(okRun, nil, "", "json"), "")
	w := do(t, r, http.MethodGet, "/api/runs", nil)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("Expected empty list without history, got %d %q", w.Code, w.Body.String())
	}

	history := &fakeHistory{runs: []store.Run{{ID: 2, Site: "eurospin"}, {ID: 1, Site: "eurospin"}}}
	r = NewServer(NewHandler(okRun, history, "", "json"), "")

	w = do(t, r, http.MethodGet, "/api/runs?limit=5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var runs []store.Run
	if err := json.Unmarshal(w.Body.Bytes(), &runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != 2 {
		t.Errorf("Unexpected runs: %+v", runs)
	}
	if history.limit != 5 {
		t.Errorf("Expected limit 5 to be passed through, got %d", history.limit)
	}

	if w := do(t, r, http.MethodGet, "/api/runs?limit=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestGetPromotionsContentTypeFollowsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "promo.dat")
	if err := os.WriteFile(path, []byte("[]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewServer(NewHandler(okRun, nil, path, "json"), "")

	w := do(t, r, http.MethodGet, "/api/promotions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Expected JSON content type for a .dat file written as json, got %q", ct)
	}
}

func TestGetRunPromotions(t *testing.T) {
	history := &fakeHistory{categories: map[int64][]promo.Category{
		3: {promo.NewCategory(promo.Link{Name: "Caffè & Tè", URL: "https://example.com/?category_filter=caffe"}, nil)},
	}}
	r := NewServer(NewHandler(okRun, history, "", "json"), "")

	w := do(t, r, http.MethodGet, "/api/runs/3/promotions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var cats []promo.Category
	if err := json.Unmarshal(w.Body.Bytes(), &cats); err != nil {
		t.Fatal(err)
	}
	if len(cats) != 1 || cats[0].Name != "Caffè & Tè" || cats[0].Products == nil {
		t.Errorf("Unexpected categories: %+v", cats)
	}

	if w := do(t, r, http.MethodGet, "/api/runs/99/promotions", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown run, got %d", w.Code)
	}
	if w := do(t, r, http.MethodGet, "/api/runs/abc/promotions", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid id, got %d", w.Code)
	}

	r = NewServer(NewHandler(okRun, nil, "", "json"), "")
	if w := do(t, r, http.MethodGet, "/api/runs/3/promotions", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without history, got %d", w.Code)
	}
}
