// Package extract pulls a version token out of raw page content.
package extract

import (
	"regexp"
	"strings"
)

// DefaultField is the structured-data key app store pages use for the
// published version.
const DefaultField = "softwareVersion"

// Extractor finds a quoted "field": "value" pair and returns the value.
type Extractor struct {
	field string
	re    *regexp.Regexp
}

// New builds an Extractor for field. An empty field means DefaultField.
func New(field string) *Extractor {
	field = strings.TrimSpace(field)
	if field == "" {
		field = DefaultField
	}
	return &Extractor{
		field: field,
		re:    regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"([^"]+)"`),
	}
}

func (x *Extractor) Field() string { return x.field }

// Extract returns the first value found, trimmed. ok is false when the field
// is missing or its value is blank.
func (x *Extractor) Extract(text string) (version string, ok bool) {
	m := x.re.FindStringSubmatch(text)
	if len(m) != 2 {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	if v == "" {
		return "", false
	}
	return v, true
}

var defaultExtractor = New(DefaultField)

// Extract applies the DefaultField extractor.
func Extract(text string) (string, bool) { return defaultExtractor.Extract(text) }
