package pipeline

// FetchStatus records the outcome of one fetch attempt.
type FetchStatus string

const (
	StatusSuccess FetchStatus = "success"
	StatusFailed  FetchStatus = "failed"
)

// FetchResult is the immutable outcome of one page fetch attempt.
type FetchResult struct {
	URL        string
	HTML       string
	ByteLength int
	Status     FetchStatus
	FetchDate  string
}

func NewFetchResult(url, html string, ok bool, fetchDate string) FetchResult {
	status := StatusFailed
	if ok && html != "" {
		status = StatusSuccess
	}

	return FetchResult{
		URL:        url,
		HTML:       html,
		ByteLength: len(html),
		Status:     status,
		FetchDate:  fetchDate,
	}
}
