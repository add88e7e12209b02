package hub

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownloadLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/datasets/acme/phishset/resolve/main/dataset.csv" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Write([]byte("url,result\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "acme/phishset", "dataset.csv", "secret")

	data, err := client.DownloadLatest(context.Background())
	if err != nil {
		t.Fatalf("DownloadLatest() error = %v", err)
	}
	if string(data) != "url,result\n" {
		t.Errorf("DownloadLatest() = %q", data)
	}
}

func TestDownloadLatestMissingFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, "acme/phishset", "dataset.csv", "secret")

	data, err := client.DownloadLatest(context.Background())
	if err != nil {
		t.Fatalf("DownloadLatest() error = %v, want nil for missing file", err)
	}
	if data != nil {
		t.Errorf("DownloadLatest() = %q, want nil for missing file", data)
	}
}

func TestDownloadLatestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "acme/phishset", "dataset.csv", "secret")

	if _, err := client.DownloadLatest(context.Background()); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestUploadReplacement(t *testing.T) {
	var uploaded []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %q, want PUT", r.Method)
		}
		if r.URL.Path != "/datasets/acme/phishset/upload/main/dataset.csv" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		uploaded, _ = io.ReadAll(r.Body)
	}))
	defer server.Close()

	client := NewClient(server.URL, "acme/phishset", "dataset.csv", "secret")

	if err := client.UploadReplacement(context.Background(), []byte("url,result\n")); err != nil {
		t.Fatalf("UploadReplacement() error = %v", err)
	}
	if string(uploaded) != "url,result\n" {
		t.Errorf("uploaded body = %q", uploaded)
	}
}

func TestUploadReplacementRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "acme/phishset", "dataset.csv", "bad")

	if err := client.UploadReplacement(context.Background(), []byte("x")); err == nil {
		t.Error("expected error for rejected upload")
	}
}
