package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/features"
)

func testDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	return db
}

func TestSourceRepositoryUpsertAndGet(t *testing.T) {
	repo := NewSourceRepository(testDB(t))

	if err := repo.UpsertSource("phishtank", "phishing_feed", "https://example.com/feed.json", true); err != nil {
		t.Fatalf("UpsertSource() error = %v", err)
	}

	source, err := repo.GetSource("phishtank")
	if err != nil {
		t.Fatalf("GetSource() error = %v", err)
	}
	if source == nil {
		t.Fatal("expected source, got nil")
	}
	if source.Kind != "phishing_feed" {
		t.Errorf("Kind = %q, want %q", source.Kind, "phishing_feed")
	}
	if !source.Enabled {
		t.Error("expected source to be enabled")
	}

	// Upsert with the same name updates in place
	if err := repo.UpsertSource("phishtank", "phishing_feed", "https://example.com/v2.json", false); err != nil {
		t.Fatalf("UpsertSource() update error = %v", err)
	}

	source, err = repo.GetSource("phishtank")
	if err != nil {
		t.Fatalf("GetSource() after update error = %v", err)
	}
	if source.URL != "https://example.com/v2.json" {
		t.Errorf("URL = %q, want updated URL", source.URL)
	}
	if source.Enabled {
		t.Error("expected source to be disabled after update")
	}

	count, err := repo.GetSourceCount()
	if err != nil {
		t.Fatalf("GetSourceCount() error = %v", err)
	}
	if count != 1 {
		t.Errorf("GetSourceCount() = %d, want 1", count)
	}
}

func TestSourceRepositoryGetMissing(t *testing.T) {
	repo := NewSourceRepository(testDB(t))

	source, err := repo.GetSource("nonexistent")
	if err != nil {
		t.Fatalf("GetSource() error = %v", err)
	}
	if source != nil {
		t.Errorf("expected nil for missing source, got %+v", source)
	}
}

func TestSourceRepositoryDueForRun(t *testing.T) {
	repo := NewSourceRepository(testDB(t))

	if err := repo.UpsertSource("never-run", "phishing_feed", "https://a.example", true); err != nil {
		t.Fatalf("UpsertSource() error = %v", err)
	}
	if err := repo.UpsertSource("ran-recently", "popular_domains", "https://b.example", true); err != nil {
		t.Fatalf("UpsertSource() error = %v", err)
	}
	if err := repo.UpsertSource("disabled", "phishing_feed", "https://c.example", false); err != nil {
		t.Fatalf("UpsertSource() error = %v", err)
	}

	now := time.Now()
	if err := repo.UpdateRunResult("ran-recently", now, now.Add(24*time.Hour), ""); err != nil {
		t.Fatalf("UpdateRunResult() error = %v", err)
	}

	due, err := repo.GetSourcesDueForRun()
	if err != nil {
		t.Fatalf("GetSourcesDueForRun() error = %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due source, got %d", len(due))
	}
	if due[0].Name != "never-run" {
		t.Errorf("due source = %q, want %q", due[0].Name, "never-run")
	}

	// A source whose next run time has passed becomes due again
	if err := repo.UpdateRunResult("ran-recently", now.Add(-48*time.Hour), now.Add(-24*time.Hour), "timeout"); err != nil {
		t.Fatalf("UpdateRunResult() error = %v", err)
	}

	due, err = repo.GetSourcesDueForRun()
	if err != nil {
		t.Fatalf("GetSourcesDueForRun() error = %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due sources, got %d", len(due))
	}

	withError, err := repo.GetSource("ran-recently")
	if err != nil {
		t.Fatalf("GetSource() error = %v", err)
	}
	if withError.LastError != "timeout" {
		t.Errorf("LastError = %q, want %q", withError.LastError, "timeout")
	}
	if withError.LastRunAt == nil {
		t.Error("expected LastRunAt to be set")
	}
}

func testRow(url string, result int) dataset.Row {
	return dataset.Row{
		URL:       url,
		Features:  features.Record{URLLength: len(url)},
		Result:    result,
		FetchDate: "2024-01-01",
	}
}

func TestDatasetRepositoryReplaceAndLoad(t *testing.T) {
	repo := NewDatasetRepository(testDB(t))

	rows := []dataset.Row{
		testRow("http://phish.example/login", dataset.LabelPhishing),
		testRow("https://legit.example", dataset.LabelLegitimate),
	}

	if err := repo.ReplaceAll(rows); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	loaded, err := repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("LoadAll() returned %d rows, want 2", len(loaded))
	}

	// Phishing rows sort first
	if loaded[0].Result != dataset.LabelPhishing {
		t.Errorf("first row result = %d, want phishing first", loaded[0].Result)
	}

	// Round trip preserves the identity hash
	if loaded[0].Hash() != rows[0].Hash() {
		t.Error("hash changed across store round trip")
	}

	// Replace discards previous content
	if err := repo.ReplaceAll(rows[:1]); err != nil {
		t.Fatalf("ReplaceAll() second call error = %v", err)
	}
	loaded, err = repo.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("LoadAll() after replace returned %d rows, want 1", len(loaded))
	}
}

func TestDatasetRepositoryDeduplicatesOnHash(t *testing.T) {
	repo := NewDatasetRepository(testDB(t))

	row := testRow("http://phish.example/login", dataset.LabelPhishing)
	if err := repo.ReplaceAll([]dataset.Row{row, row}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Total = %d, want identical rows collapsed to 1", stats.Total)
	}
}

func TestDatasetRepositoryStats(t *testing.T) {
	repo := NewDatasetRepository(testDB(t))

	rows := []dataset.Row{
		testRow("http://a.example", dataset.LabelPhishing),
		testRow("http://b.example", dataset.LabelPhishing),
		testRow("http://c.example", dataset.LabelLegitimate),
	}
	if err := repo.ReplaceAll(rows); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Total != 3 || stats.Phishing != 2 || stats.Legitimate != 1 {
		t.Errorf("GetStats() = %+v, want total 3, phishing 2, legitimate 1", stats)
	}
}

func TestDatasetRepositoryRootDomains(t *testing.T) {
	repo := NewDatasetRepository(testDB(t))

	rows := []dataset.Row{
		testRow("https://www.example.com/page", dataset.LabelLegitimate),
		testRow("http://sub.other.org", dataset.LabelPhishing),
	}
	if err := repo.ReplaceAll(rows); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	domains, err := repo.GetRootDomains()
	if err != nil {
		t.Fatalf("GetRootDomains() error = %v", err)
	}
	if !domains["example.com"] {
		t.Error("expected example.com with www stripped")
	}
	if !domains["sub.other.org"] {
		t.Error("expected sub.other.org")
	}
}
