package features

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultSizeLimit = 220 * 1024
	maxTokens        = 512
	maxChars         = 20000
)

var suspiciousWords = []string{"login", "verify", "secure", "update"}

var suspiciousTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
}

var networkJSMarkers = []string{"fetch(", "XMLHttpRequest", "navigator.sendBeacon", "new WebSocket"}

// Precompiled patterns, matching raw markup rather than the parse tree
var (
	base64Pattern      = regexp.MustCompile(`base64,[A-Za-z0-9+/=]+`)
	ipAddressPattern   = regexp.MustCompile(`https?://\d{1,3}(?:\.\d{1,3}){3}`)
	urlEncodingPattern = regexp.MustCompile(`%[0-9a-fA-F]{2}`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
	disallowedPattern  = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?-]`)
)

// Extractor derives visible text and a fixed-schema feature Record from a
// URL and its fetched HTML. It performs no I/O and parses the HTML exactly
// once; both the text and the structural features come from the same parse
// tree.
type Extractor struct {
	sizeLimit int
}

func NewExtractor(sizeLimit int) *Extractor {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}
	return &Extractor{sizeLimit: sizeLimit}
}

// Run computes the feature record for a page. html may be empty (failed
// fetch); the DOM-derived fields then keep their zero defaults so the
// output schema never varies with fetch outcome. HTML larger than the
// fetch size ceiling is treated the same way to bound worst-case parse
// cost.
func (e *Extractor) Run(rawURL, htmlContent string) (string, Record) {
	rec := e.urlFeatures(rawURL)

	if strings.TrimSpace(htmlContent) == "" {
		return "", rec
	}

	if len(htmlContent) > e.sizeLimit {
		slog.Debug("HTML exceeds size ceiling, skipping DOM features", "url", rawURL, "size", len(htmlContent))
		return "", rec
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		slog.Debug("Failed to parse HTML", "url", rawURL, "error", err)
		return "", rec
	}

	pageHost := hostOf(rawURL)
	e.domFeatures(doc, htmlContent, pageHost, &rec)

	return visibleText(doc), rec
}

func (e *Extractor) urlFeatures(rawURL string) Record {
	lowered := strings.ToLower(rawURL)

	rec := Record{
		URLLength:       len(rawURL),
		NumDots:         strings.Count(rawURL, "."),
		HasAtSymbol:     strings.Contains(rawURL, "@"),
		HasIPAddress:    ipAddressPattern.MatchString(rawURL),
		URLHasEncoding:  strings.Contains(rawURL, "%") || urlEncodingPattern.MatchString(rawURL),
		URLEndsWithExe:  strings.HasSuffix(lowered, ".exe"),
		SuspiciousWords: containsAny(lowered, suspiciousWords),
	}

	// Structural parse failures must not abort extraction; the remaining
	// lexical features keep their zero defaults.
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rec
	}

	host := parsed.Host
	rec.UsesHTTPS = parsed.Scheme == "https"
	rec.URLHasLongQuery = len(parsed.RawQuery) > 100
	rec.HasHyphen = strings.Contains(host, "-")

	if host != "" {
		rec.NumSubdomains = max(0, len(strings.Split(host, "."))-2)

		suffix, _ := publicsuffix.PublicSuffix(strings.ToLower(parsed.Hostname()))
		rec.IsSuspiciousTLD = suspiciousTLDs[suffix]
	}

	return rec
}

func (e *Extractor) domFeatures(doc *goquery.Document, htmlContent, pageHost string, rec *Record) {
	forms := doc.Find("form")
	inputs := doc.Find("input")
	iframes := doc.Find("iframe")
	scripts := doc.Find("script")

	rec.NumForms = forms.Length()
	rec.NumInputs = inputs.Length()
	rec.NumLinks = doc.Find("a").Length()
	rec.NumOnclickEvents = doc.Find("[onclick]").Length()
	rec.NumHiddenElements = doc.Find(`[style*='display:none'], [style*='visibility:hidden']`).Length()
	rec.HasIframe = iframes.Length() > 0

	inputs.Each(func(_ int, s *goquery.Selection) {
		switch strings.ToLower(s.AttrOr("type", "")) {
		case "password":
			rec.NumPasswordInputs++
		case "hidden":
			rec.NumHiddenInputs++
		}
	})

	iframes.Each(func(_ int, s *goquery.Selection) {
		w := s.AttrOr("width", "")
		h := s.AttrOr("height", "")
		if w == "0" || w == "1" || h == "0" || h == "1" {
			rec.HasZeroSizedIframe = true
		}

		if isExternalRef(s.AttrOr("src", ""), pageHost) {
			rec.ExternalIframeCount++
		}
	})

	forms.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if isExternalRef(s.AttrOr("action", ""), pageHost) {
			rec.SuspiciousFormAction = true
			return false
		}
		return true
	})

	scripts.Each(func(_ int, s *goquery.Selection) {
		src := s.AttrOr("src", "")
		if src == "" {
			rec.NumInlineScripts++
		} else if isExternalRef(src, pageHost) {
			rec.ExternalJSCount++
		}
	})

	externalDomains := make(map[string]bool)
	doc.Find("script, link, img, iframe").Each(func(_ int, s *goquery.Selection) {
		ref := s.AttrOr("src", "")
		if ref == "" {
			ref = s.AttrOr("href", "")
		}
		if host := refHost(ref); host != "" && host != pageHost {
			externalDomains[host] = true
		}
	})
	rec.NumExternalDomains = len(externalDomains)

	rec.HasScriptEval = strings.Contains(htmlContent, "eval(")
	rec.HasNetworkJS = containsAny(htmlContent, networkJSMarkers)
	rec.HasBase64InJS = base64Pattern.MatchString(htmlContent)
}

// visibleText flattens the parse tree into cleaned page text: script, style
// and noscript subtrees dropped, whitespace collapsed, lowercased, NFC
// normalized, restricted to a conservative character allow-list, and
// truncated to the token and character caps.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()

	var parts []string
	for _, node := range doc.Selection.Nodes {
		collectText(node, &parts)
	}

	text := strings.Join(parts, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.ToLower(strings.TrimSpace(text))
	text = norm.NFC.String(text)
	text = disallowedPattern.ReplaceAllString(text, "")

	tokens := strings.Fields(text)
	if len(tokens) > maxTokens {
		tokens = tokens[:maxTokens]
	}

	return truncateRunes(strings.Join(tokens, " "), maxChars)
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
			*parts = append(*parts, trimmed)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// isExternalRef reports whether ref points at a host other than pageHost.
// Host-less references (relative paths, fragments, unparsable values) count
// as internal.
func isExternalRef(ref, pageHost string) bool {
	host := refHost(ref)
	return host != "" && host != pageHost
}

func refHost(ref string) string {
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Host
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
