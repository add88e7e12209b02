package pipeline

// canonicalEmptyPage is what a headless fetch of a blank or JS-only page
// renders down to; such pages carry no signal and are always excluded.
const canonicalEmptyPage = "<html><head></head><body></body></html>"

// QualityFilter decides whether a fetched page is usable for feature
// extraction.
type QualityFilter struct {
	minContentLength int
}

func NewQualityFilter(minContentLength int) *QualityFilter {
	if minContentLength <= 0 {
		minContentLength = 6000
	}
	return &QualityFilter{minContentLength: minContentLength}
}

// Run reports whether the result passes: a successful fetch with a
// non-empty body that is not the canonical empty page and exceeds the
// minimum content length.
func (f *QualityFilter) Run(result FetchResult) bool {
	if result.Status != StatusSuccess {
		return false
	}
	if result.HTML == "" || result.HTML == canonicalEmptyPage {
		return false
	}
	return result.ByteLength > f.minContentLength
}
