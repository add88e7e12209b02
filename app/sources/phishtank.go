package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Entry is one candidate record from the phishing feed. The feed is
// authoritative and unvalidated; consumers filter, they do not verify.
type Entry struct {
	PhishID          int64  `json:"phish_id"`
	URL              string `json:"url"`
	VerificationTime string `json:"verification_time"`
	Verified         string `json:"verified"`
	Online           string `json:"online"`
	Target           string `json:"target"`
}

// PhishTankClient fetches the feed's JSON array of candidate phishing
// pages. The feed request is retried with a constant delay; exhausting the
// retries is fatal to the run and surfaces as an error.
type PhishTankClient struct {
	httpClient *http.Client
	url        string
	attempts   int
	delay      time.Duration
}

func NewPhishTankClient(url string, timeout time.Duration, attempts int, delay time.Duration) *PhishTankClient {
	if attempts <= 0 {
		attempts = 5
	}
	return &PhishTankClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		attempts:   attempts,
		delay:      delay,
	}
}

func (c *PhishTankClient) FetchEntries(ctx context.Context) ([]Entry, error) {
	var entries []Entry

	operation := func() error {
		fetched, err := c.fetchOnce(ctx)
		if err != nil {
			slog.Warn("Phishing feed request failed, will retry", "url", c.url, "error", err)
			return err
		}
		entries = fetched
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.delay), uint64(c.attempts-1))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, fmt.Errorf("phishing feed unavailable after %d attempts: %w", c.attempts, err)
	}

	return entries, nil
}

func (c *PhishTankClient) fetchOnce(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse feed JSON: %w", err)
	}

	return entries, nil
}

// FilterVerified keeps entries verified online on the reference day.
// referenceDate is "today" or "yesterday" relative to now; which one is
// correct has varied between collector generations, so it stays explicit
// configuration.
func FilterVerified(entries []Entry, referenceDate string, now time.Time) []Entry {
	target := now.UTC()
	if referenceDate == "yesterday" {
		target = target.AddDate(0, 0, -1)
	}
	targetDay := target.Format("2006-01-02")

	var filtered []Entry
	for _, entry := range entries {
		if entry.Verified != "yes" || entry.Online != "yes" {
			continue
		}
		day, _, _ := strings.Cut(entry.VerificationTime, "T")
		if day != targetDay {
			continue
		}
		filtered = append(filtered, entry)
	}

	return filtered
}
