package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/idchenko/phishset/app/dataset"
	"github.com/idchenko/phishset/app/features"
	"github.com/idchenko/phishset/app/sources"
)

// PageFetcher fetches a full URL. Satisfied by *fetch.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

// DomainResolver finds the working scheme for a bare domain. Satisfied by
// *fetch.Resolver.
type DomainResolver interface {
	Resolve(ctx context.Context, domain string) (workingURL, html string, ok bool)
}

// Pipeline runs one collection batch: concurrent bounded fetches, the
// quality filter, and feature extraction. The fetch concurrency ceiling
// lives in the fetcher's permit pool; the pipeline only fans out.
type Pipeline struct {
	fetcher   PageFetcher
	resolver  DomainResolver
	extractor *features.Extractor
	now       func() time.Time
}

func NewPipeline(fetcher PageFetcher, resolver DomainResolver, extractor *features.Extractor) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		resolver:  resolver,
		extractor: extractor,
		now:       time.Now,
	}
}

// CollectPhishing fetches each candidate entry and produces one phishing
// row per page that passes the quality filter. Per-URL failures never
// abort the batch; they only shrink the output.
func (p *Pipeline) CollectPhishing(ctx context.Context, entries []sources.Entry, quality *QualityFilter) []dataset.Row {
	fetchDate := p.now().UTC().Format("2006-01-02")

	var mu sync.Mutex
	var rows []dataset.Row
	var fetchFailed, qualityRejected int64

	var wg sync.WaitGroup

	for _, entry := range entries {
		entry := entry
		wg.Add(1)
		go func() {
			defer wg.Done()

			html, ok := p.fetcher.Fetch(ctx, entry.URL)
			if !ok {
				atomic.AddInt64(&fetchFailed, 1)
			}

			result := NewFetchResult(entry.URL, html, ok, fetchDate)
			if !quality.Run(result) {
				if ok {
					atomic.AddInt64(&qualityRejected, 1)
				}
				return
			}

			text, rec := p.extractor.Run(entry.URL, result.HTML)

			row := dataset.Row{
				URL:              entry.URL,
				Target:           entry.Target,
				VerificationTime: entry.VerificationTime,
				VisibleText:      text,
				Features:         rec,
				Result:           dataset.LabelPhishing,
				FetchDate:        fetchDate,
			}

			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
		}()
	}

	wg.Wait()

	slog.Info("Phishing batch completed",
		"candidates", len(entries),
		"fetch_failed", fetchFailed,
		"quality_rejected", qualityRejected,
		"rows", len(rows))

	return rows
}

// CollectLegitimate resolves each candidate domain over both schemes and
// produces legitimate rows until limit is reached. The caller oversamples
// the domain list; under-fetching is acceptable and the batch never blocks
// on unreachable domains beyond their own fetch budgets.
func (p *Pipeline) CollectLegitimate(ctx context.Context, domains []string, quality *QualityFilter, limit int) []dataset.Row {
	fetchDate := p.now().UTC().Format("2006-01-02")

	var mu sync.Mutex
	var rows []dataset.Row
	var collected, resolveFailed, qualityRejected int64

	var wg sync.WaitGroup

	for _, domain := range domains {
		domain := domain
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Enough rows already collected; skip without fetching
			if atomic.LoadInt64(&collected) >= int64(limit) {
				return
			}

			workingURL, html, ok := p.resolver.Resolve(ctx, domain)
			if !ok {
				atomic.AddInt64(&resolveFailed, 1)
				return
			}

			result := NewFetchResult(workingURL, html, ok, fetchDate)
			if !quality.Run(result) {
				atomic.AddInt64(&qualityRejected, 1)
				return
			}

			text, rec := p.extractor.Run(workingURL, result.HTML)

			row := dataset.Row{
				URL:         workingURL,
				VisibleText: text,
				Features:    rec,
				Result:      dataset.LabelLegitimate,
				FetchDate:   fetchDate,
			}

			mu.Lock()
			rows = append(rows, row)
			mu.Unlock()
			atomic.AddInt64(&collected, 1)
		}()
	}

	wg.Wait()

	if len(rows) > limit {
		rows = rows[:limit]
	}

	slog.Info("Legitimate batch completed",
		"candidates", len(domains),
		"resolve_failed", resolveFailed,
		"quality_rejected", qualityRejected,
		"rows", len(rows))

	return rows
}
