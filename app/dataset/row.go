package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/idchenko/phishset/app/features"
)

// Labels for the result column.
const (
	LabelLegitimate = 0
	LabelPhishing   = 1
)

// Row is one labeled page in the dataset: the feature vector plus the
// candidate metadata and cleaned visible text.
type Row struct {
	URL              string
	Target           string
	VerificationTime string
	VisibleText      string
	Features         features.Record
	Result           int
	FetchDate        string
}

// Header returns the full ordered column set: the feature schema followed
// by the metadata columns.
func Header() []string {
	return append(features.FieldNames(),
		"url", "visible_text", "result", "fetch_date", "target", "verification_time")
}

// Values returns the row encoded as strings in Header order. Text columns
// are sanitized to valid UTF-8 before encoding; invalid sequences are
// dropped, never surfaced as errors.
func (r Row) Values() []string {
	return append(r.Features.Values(),
		Sanitize(r.URL),
		Sanitize(r.VisibleText),
		strconv.Itoa(r.Result),
		r.FetchDate,
		Sanitize(r.Target),
		r.VerificationTime,
	)
}

// Hash identifies the row by the combination of all its column values, so
// repeated fetches of the same URL stay distinct rows only when some value
// differs. Used for exact-row deduplication during merge.
func (r Row) Hash() string {
	h := sha256.New()
	for _, v := range r.Values() {
		h.Write([]byte(v))
		h.Write([]byte{0x1f})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Sanitize drops invalid UTF-8 sequences from a text column.
func Sanitize(s string) string {
	return strings.ToValidUTF8(s, "")
}

// RootDomain derives the deduplication key for a URL or bare domain: the
// lowercased host with one leading "www." label stripped.
func RootDomain(rawURL string) string {
	host := rawURL
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host = parsed.Hostname()
	} else {
		// Bare domains and unparsable values: strip any scheme and path by hand
		if idx := strings.Index(host, "://"); idx != -1 {
			host = host[idx+3:]
		}
		if idx := strings.IndexAny(host, "/?#"); idx != -1 {
			host = host[:idx]
		}
		if idx := strings.Index(host, ":"); idx != -1 {
			host = host[:idx]
		}
	}

	host = strings.ToLower(host)
	return strings.TrimPrefix(host, "www.")
}
