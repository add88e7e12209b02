package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultSizeLimit   = 220 * 1024
	DefaultConcurrency = 5

	maxRedirects    = 3
	chunkSize       = 8192
	streamTimeLimit = 3 * time.Second
	requestTimeout  = 15 * time.Second
)

// userAgents is a small pool of common browser identities rotated per
// request. Best-effort evasion of trivial blocking, no correctness
// implications.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:124.0) Gecko/20100101 Firefox/124.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
}

// Fetcher retrieves raw page HTML under hard size and time budgets. Every
// failure mode (request error, redirect overflow, timeout, oversized
// content, bad status) collapses to ("", false); callers cannot and should
// not distinguish causes.
type Fetcher struct {
	client    *http.Client
	limiter   *semaphore.Weighted
	sizeLimit int
	userAgent string
}

// NewFetcher builds a fetcher around the given permit pool. The limiter is
// injected rather than process-global so independent pipelines and tests
// can use independent ceilings; nil means unlimited. userAgent overrides
// the rotating pool when non-empty.
func NewFetcher(limiter *semaphore.Weighted, sizeLimit int, userAgent string) *Fetcher {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: 3 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   3 * time.Second,
			ResponseHeaderTimeout: 3 * time.Second,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:    client,
		limiter:   limiter,
		sizeLimit: sizeLimit,
		userAgent: userAgent,
	}
}

// Fetch retrieves the page at url. The body is streamed in chunks and the
// read is abandoned once cumulative bytes exceed the size ceiling or
// cumulative read time exceeds the stream time budget. Bytes are decoded
// tolerantly; encoding problems never fail a fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	if f.limiter != nil {
		if err := f.limiter.Acquire(ctx, 1); err != nil {
			return "", false
		}
		defer f.limiter.Release(1)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "GET", url, nil)
	if err != nil {
		slog.Debug("Failed to create request", "url", url, "error", err)
		return "", false
	}

	req.Header.Set("User-Agent", f.pickUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Debug("Fetch failed", "url", url, "error", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Debug("Fetch returned non-success status", "url", url, "status", resp.StatusCode)
		return "", false
	}

	// Declared-oversized responses are rejected before any body read
	if resp.ContentLength > int64(f.sizeLimit) {
		slog.Debug("Content-Length exceeds ceiling", "url", url, "content_length", resp.ContentLength)
		return "", false
	}

	// The read budget must bound the blocking read itself, not just the
	// gaps between chunks: cancelling the request context unblocks a
	// stalled body.Read once the budget elapses.
	budget := time.AfterFunc(streamTimeLimit, cancel)
	defer budget.Stop()

	raw, ok := f.readBounded(url, resp.Body)
	if !ok {
		return "", false
	}

	return decodeTolerant(raw, resp.Header.Get("Content-Type")), true
}

// readBounded streams the body in chunks, giving up once either the byte
// ceiling or the wall-clock read budget is crossed.
func (f *Fetcher) readBounded(url string, body io.Reader) ([]byte, bool) {
	var content bytes.Buffer
	buf := make([]byte, chunkSize)
	start := time.Now()

	for {
		n, err := body.Read(buf)
		if n > 0 {
			content.Write(buf[:n])

			if content.Len() > f.sizeLimit {
				slog.Debug("Body exceeds size ceiling during streaming", "url", url, "read", content.Len())
				return nil, false
			}
			if time.Since(start) > streamTimeLimit {
				slog.Debug("Fetch timed out during streaming", "url", url, "read", content.Len())
				return nil, false
			}
		}
		if err == io.EOF {
			return content.Bytes(), true
		}
		if err != nil {
			slog.Debug("Body read failed", "url", url, "error", err)
			return nil, false
		}
	}
}

func (f *Fetcher) pickUserAgent() string {
	if f.userAgent != "" {
		return f.userAgent
	}
	return userAgents[rand.Intn(len(userAgents))]
}

// decodeTolerant converts raw bytes to UTF-8 text, sniffing the charset
// from headers and content. Invalid sequences are dropped, never surfaced
// as errors.
func decodeTolerant(raw []byte, contentType string) string {
	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, nil))
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(bytes.ToValidUTF8(raw, nil))
	}

	return string(bytes.ToValidUTF8(decoded, nil))
}
