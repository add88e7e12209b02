package fetch

import (
	"context"
	"log/slog"
)

// PageFetcher is the fetch contract the resolver races. Satisfied by
// *Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

// Resolver determines the working scheme for a bare domain by racing an
// HTTPS attempt against an HTTP one. Legitimate-site sampling cannot assume
// a scheme, and trying them serially would double the latency per domain at
// batch scale.
type Resolver struct {
	fetcher PageFetcher
}

func NewResolver(fetcher PageFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

type raceResult struct {
	url  string
	html string
	ok   bool
}

// Resolve fetches https://domain and http://domain concurrently and returns
// the first attempt that produced content, cancelling the other so its
// connection is released. If the first finisher failed it waits for the
// second; if both fail it returns ("", "", false).
func (r *Resolver) Resolve(ctx context.Context, domain string) (string, string, bool) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan raceResult, 2)

	for _, scheme := range []string{"https", "http"} {
		url := scheme + "://" + domain
		go func(url string) {
			html, ok := r.fetcher.Fetch(raceCtx, url)
			results <- raceResult{url: url, html: html, ok: ok}
		}(url)
	}

	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			// A 200 with an empty body is not a win: the page must have
			// produced actual HTML for the scheme to count as working
			if res.ok && res.html != "" {
				slog.Debug("Domain resolved", "domain", domain, "url", res.url)
				return res.url, res.html, true
			}
		case <-ctx.Done():
			return "", "", false
		}
	}

	slog.Debug("Domain unreachable over both schemes", "domain", domain)
	return "", "", false
}
