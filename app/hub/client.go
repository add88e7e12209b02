package hub

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a HuggingFace-style dataset hub: snapshots are plain
// files under a repo, fetched via resolve URLs and replaced via upload.
type Client struct {
	httpClient *http.Client
	endpoint   string
	repo       string
	filename   string
	token      string
}

func NewClient(endpoint, repo, filename, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		endpoint:   endpoint,
		repo:       repo,
		filename:   filename,
		token:      token,
	}
}

func (c *Client) resolveURL() string {
	return fmt.Sprintf("%s/datasets/%s/resolve/main/%s", c.endpoint, c.repo, c.filename)
}

func (c *Client) uploadURL() string {
	return fmt.Sprintf("%s/datasets/%s/upload/main/%s", c.endpoint, c.repo, c.filename)
}

// DownloadLatest fetches the current published snapshot. A missing file
// is not an error: the first run of a fresh repo returns (nil, nil).
func (c *Client) DownloadLatest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolveURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading snapshot", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	return data, nil
}

// UploadReplacement publishes a new snapshot, replacing the previous one.
func (c *Client) UploadReplacement(ctx context.Context, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.uploadURL(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d uploading snapshot", resp.StatusCode)
	}

	return nil
}
