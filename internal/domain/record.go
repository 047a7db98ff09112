package domain

import (
	"strconv"
	"strings"
	"time"
)

// Field names the engine reads from source documents. The source schema is
// loosely typed, so every read goes through an accessor and the normalizer;
// nothing downstream touches the raw map directly.
const (
	FieldID           = "id"
	FieldLastModified = "lastModified"
)

// SourceRecord is a read-only, semi-structured document from the source
// store: a bag of optional fields keyed by name. Values are whatever the
// JSON decoder produced (string, float64, bool, []any, map[string]any, nil).
type SourceRecord struct {
	fields map[string]any
}

// NewSourceRecord wraps a decoded source document.
func NewSourceRecord(fields map[string]any) SourceRecord {
	return SourceRecord{fields: fields}
}

// ExternalID returns the source system's identifier for this record,
// or empty when the document carries none. Numeric ids are stringified,
// some source collections store them as numbers.
func (r SourceRecord) ExternalID() string {
	switch t := r.fields[FieldID].(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// LastModified returns the record's last-modified instant, defaulting
// to now when absent or unparsable.
func (r SourceRecord) LastModified() time.Time {
	return ParseTimestamp(r.Raw(FieldLastModified))
}

// Raw returns the untyped value of a field, nil when absent.
func (r SourceRecord) Raw(field string) any {
	return r.fields[field]
}

// Str returns the trimmed string value of a field. Non-string values
// and absent fields yield the empty string.
func (r SourceRecord) Str(field string) string {
	s, _ := r.fields[field].(string)
	return strings.TrimSpace(s)
}

// Has reports whether a field is present with a non-nil value.
func (r SourceRecord) Has(field string) bool {
	v, ok := r.fields[field]
	return ok && v != nil
}

// Len returns the number of fields, mostly for logging.
func (r SourceRecord) Len() int {
	return len(r.fields)
}
