package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/idchenko/phishset/app/config"
	"github.com/idchenko/phishset/app/database"
	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/features"
	"github.com/idchenko/phishset/app/tasks"
)

type fakeSourceRepo struct {
	sources map[string]*database.Source
}

func (r *fakeSourceRepo) GetSource(name string) (*database.Source, error) {
	return r.sources[name], nil
}

func (r *fakeSourceRepo) GetSourceCount() (int, error) {
	return len(r.sources), nil
}

func (r *fakeSourceRepo) UpsertSource(name, kind, url string, enabled bool) error {
	return nil
}

func (r *fakeSourceRepo) UpdateRunResult(name string, lastRun, nextRun time.Time, runError string) error {
	return nil
}

func (r *fakeSourceRepo) GetSourcesDueForRun() ([]database.Source, error) {
	return nil, nil
}

type fakeDatasetRepo struct {
	rows []dataset.Row
}

func (r *fakeDatasetRepo) LoadAll() ([]dataset.Row, error) {
	return r.rows, nil
}

func (r *fakeDatasetRepo) ReplaceAll(rows []dataset.Row) error {
	r.rows = rows
	return nil
}

func (r *fakeDatasetRepo) GetStats() (database.DatasetStats, error) {
	stats := database.DatasetStats{Total: len(r.rows)}
	for _, row := range r.rows {
		if row.Result == dataset.LabelPhishing {
			stats.Phishing++
		} else {
			stats.Legitimate++
		}
	}
	return stats, nil
}

func (r *fakeDatasetRepo) GetRootDomains() (map[string]bool, error) {
	return nil, nil
}

type fakeScheduler struct {
	runs []string
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	return nil
}

func (s *fakeScheduler) EnqueueSourceRun(sourceName string) error {
	s.runs = append(s.runs, sourceName)
	return nil
}

const testSourceConfig = `source:
  kind: phishing_feed
  url: "https://example.com/feed.json"
settings:
  enabled: true
`

func testServer(t *testing.T) (http.Handler, *fakeScheduler, *fakeDatasetRepo) {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "phishtank.yml"), []byte(testSourceConfig), 0644); err != nil {
		t.Fatalf("failed to write source config: %v", err)
	}

	cache := config.NewCache(dir)
	if err := cache.Run(); err != nil {
		t.Fatalf("failed to load source configs: %v", err)
	}

	sourceRepo := &fakeSourceRepo{sources: map[string]*database.Source{
		"phishtank": {Name: "phishtank", Kind: config.KindPhishingFeed, Enabled: true},
	}}
	datasetRepo := &fakeDatasetRepo{rows: []dataset.Row{
		{URL: "http://a.example", Features: features.Record{URLLength: 16}, Result: dataset.LabelPhishing, FetchDate: "2024-01-01"},
		{URL: "https://b.example", Features: features.Record{URLLength: 17, UsesHTTPS: true}, Result: dataset.LabelLegitimate, FetchDate: "2024-01-01"},
	}}
	scheduler := &fakeScheduler{}

	handler := NewHandler(cache, sourceRepo, datasetRepo, scheduler)
	return NewServer(handler, "test-key"), scheduler, datasetRepo
}

func TestGetHealth(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if health["loaded_configurations"] != float64(1) {
		t.Errorf("loaded_configurations = %v, want 1", health["loaded_configurations"])
	}
}

func TestGetStats(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var stats map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats["total"] != 2 || stats["phishing"] != 1 || stats["legitimate"] != 1 {
		t.Errorf("stats = %v", stats)
	}
}

func TestGetDataset(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/dataset.csv", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-Dataset-Rows"); got != "2" {
		t.Errorf("X-Dataset-Rows = %q, want 2", got)
	}

	rows, err := dataset.NewCodec().Decode(w.Body.Bytes())
	if err != nil {
		t.Fatalf("response is not a valid snapshot: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("decoded %d rows, want 2", len(rows))
	}
}

func TestAPIRequiresKey(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest("GET", "/api/sources", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sources", nil)
	req.Header.Set("X-API-Key", "wrong")
	server.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status with wrong key = %d, want 401", w.Code)
	}
}

func TestAPIListSources(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sources", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "phishtank") {
		t.Errorf("response missing source: %s", w.Body.String())
	}
}

func TestAPIListSourcesBearerAuth(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sources", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want bearer auth accepted", w.Code)
	}
}

func TestAPIGetSourceDetails(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sources/phishtank", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var details map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &details); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if details["kind"] != config.KindPhishingFeed {
		t.Errorf("kind = %v", details["kind"])
	}
	if details["reference_date"] == nil {
		t.Error("expected reference_date for phishing feed source")
	}
}

func TestAPIGetSourceDetailsUnknown(t *testing.T) {
	server, _, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sources/unknown", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAPIRunSource(t *testing.T) {
	server, scheduler, _ := testServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sources/phishtank/run", nil)
	req.Header.Set("X-API-Key", "test-key")
	server.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if len(scheduler.runs) != 1 || scheduler.runs[0] != "phishtank" {
		t.Errorf("scheduled runs = %v", scheduler.runs)
	}
}
