package sources

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TrancoClient fetches a ranked popular-domains list in "rank,domain" line
// format and returns a normalized prefix of it.
type TrancoClient struct {
	httpClient *http.Client
	url        string
}

func NewTrancoClient(url string, timeout time.Duration) *TrancoClient {
	return &TrancoClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// FetchTopDomains returns the top n domains, each lowercased with one
// leading "www." label stripped.
func (c *TrancoClient) FetchTopDomains(ctx context.Context, n int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch domain list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	domains := make([]string, 0, n)
	scanner := bufio.NewScanner(resp.Body)

	for scanner.Scan() && len(domains) < n {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		_, domain, found := strings.Cut(line, ",")
		if !found || domain == "" {
			continue
		}

		domains = append(domains, NormalizeDomain(domain))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read domain list: %w", err)
	}

	return domains, nil
}

// NormalizeDomain lowercases a domain and strips one leading "www." label.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}
