package features

import (
	"fmt"
	"strconv"
)

// SchemaVersion identifies the feature schema. Downstream training code
// depends on the column set and order bit-for-bit, so any change here is a
// breaking change and must bump the version.
const SchemaVersion = "v1"

// fieldNames is the single definition of the feature schema. Both the
// HTML-present and HTML-absent extraction paths produce a Record, so every
// output row carries exactly these columns in exactly this order.
var fieldNames = []string{
	"url_length",
	"num_dots",
	"has_at_symbol",
	"uses_https",
	"suspicious_words",
	"has_ip_address",
	"num_subdomains",
	"is_suspicious_tld",
	"has_hyphen",
	"url_has_encoding",
	"url_has_long_query",
	"url_ends_with_exe",
	"num_forms",
	"num_inputs",
	"num_links",
	"num_password_inputs",
	"num_hidden_inputs",
	"num_onclick_events",
	"num_hidden_elements",
	"has_iframe",
	"has_zero_sized_iframe",
	"suspicious_form_action",
	"has_script_eval",
	"has_network_js",
	"has_base64_in_js",
	"num_inline_scripts",
	"external_js_count",
	"external_iframe_count",
	"num_external_domains",
}

// FieldNames returns the ordered feature column names.
func FieldNames() []string {
	names := make([]string, len(fieldNames))
	copy(names, fieldNames)
	return names
}

// Record is one page's feature vector. The zero value is the documented
// default for every field, which is exactly what the absent-HTML path
// produces for the DOM-derived features.
type Record struct {
	// URL-lexical features, always computed
	URLLength       int
	NumDots         int
	HasAtSymbol     bool
	UsesHTTPS       bool
	SuspiciousWords bool
	HasIPAddress    bool
	NumSubdomains   int
	IsSuspiciousTLD bool
	HasHyphen       bool
	URLHasEncoding  bool
	URLHasLongQuery bool
	URLEndsWithExe  bool

	// DOM-structural features, zero-valued when HTML is absent or skipped
	NumForms             int
	NumInputs            int
	NumLinks             int
	NumPasswordInputs    int
	NumHiddenInputs      int
	NumOnclickEvents     int
	NumHiddenElements    int
	HasIframe            bool
	HasZeroSizedIframe   bool
	SuspiciousFormAction bool
	HasScriptEval        bool
	HasNetworkJS         bool
	HasBase64InJS        bool
	NumInlineScripts     int
	ExternalJSCount      int
	ExternalIframeCount  int
	NumExternalDomains   int
}

// Values returns the record encoded as strings in schema order. Booleans
// are encoded as 1/0 to match the numeric columns.
func (r Record) Values() []string {
	return []string{
		strconv.Itoa(r.URLLength),
		strconv.Itoa(r.NumDots),
		formatBool(r.HasAtSymbol),
		formatBool(r.UsesHTTPS),
		formatBool(r.SuspiciousWords),
		formatBool(r.HasIPAddress),
		strconv.Itoa(r.NumSubdomains),
		formatBool(r.IsSuspiciousTLD),
		formatBool(r.HasHyphen),
		formatBool(r.URLHasEncoding),
		formatBool(r.URLHasLongQuery),
		formatBool(r.URLEndsWithExe),
		strconv.Itoa(r.NumForms),
		strconv.Itoa(r.NumInputs),
		strconv.Itoa(r.NumLinks),
		strconv.Itoa(r.NumPasswordInputs),
		strconv.Itoa(r.NumHiddenInputs),
		strconv.Itoa(r.NumOnclickEvents),
		strconv.Itoa(r.NumHiddenElements),
		formatBool(r.HasIframe),
		formatBool(r.HasZeroSizedIframe),
		formatBool(r.SuspiciousFormAction),
		formatBool(r.HasScriptEval),
		formatBool(r.HasNetworkJS),
		formatBool(r.HasBase64InJS),
		strconv.Itoa(r.NumInlineScripts),
		strconv.Itoa(r.ExternalJSCount),
		strconv.Itoa(r.ExternalIframeCount),
		strconv.Itoa(r.NumExternalDomains),
	}
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// ParseValues reconstructs a Record from its string encoding, in schema
// order. The inverse of Values.
func ParseValues(values []string) (Record, error) {
	if len(values) != len(fieldNames) {
		return Record{}, fmt.Errorf("expected %d feature values, got %d", len(fieldNames), len(values))
	}

	ints := make([]int, len(values))
	for i, v := range values {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return Record{}, fmt.Errorf("invalid value for %s: %q", fieldNames[i], v)
		}
		ints[i] = parsed
	}

	return Record{
		URLLength:            ints[0],
		NumDots:              ints[1],
		HasAtSymbol:          ints[2] != 0,
		UsesHTTPS:            ints[3] != 0,
		SuspiciousWords:      ints[4] != 0,
		HasIPAddress:         ints[5] != 0,
		NumSubdomains:        ints[6],
		IsSuspiciousTLD:      ints[7] != 0,
		HasHyphen:            ints[8] != 0,
		URLHasEncoding:       ints[9] != 0,
		URLHasLongQuery:      ints[10] != 0,
		URLEndsWithExe:       ints[11] != 0,
		NumForms:             ints[12],
		NumInputs:            ints[13],
		NumLinks:             ints[14],
		NumPasswordInputs:    ints[15],
		NumHiddenInputs:      ints[16],
		NumOnclickEvents:     ints[17],
		NumHiddenElements:    ints[18],
		HasIframe:            ints[19] != 0,
		HasZeroSizedIframe:   ints[20] != 0,
		SuspiciousFormAction: ints[21] != 0,
		HasScriptEval:        ints[22] != 0,
		HasNetworkJS:         ints[23] != 0,
		HasBase64InJS:        ints[24] != 0,
		NumInlineScripts:     ints[25],
		ExternalJSCount:      ints[26],
		ExternalIframeCount:  ints[27],
		NumExternalDomains:   ints[28],
	}, nil
}
