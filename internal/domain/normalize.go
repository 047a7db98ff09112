package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// MaxDecimal is the largest value accepted for money/area columns.
// The target columns are numeric(10,2), so anything above this would
// abort the whole batch it travels in.
var MaxDecimal = decimal.NewFromInt(99_999_999)

// recognized truthy tokens for ParseBoolean. The Arabic entries come from
// source records where booleans were entered as free text ("داخل" = inside).
var truthyTokens = map[string]bool{
	"true":   true,
	"yes":    true,
	"y":      true,
	"1":      true,
	"inside": true,
	"داخل":   true,
}

// ParseInteger extracts an integer from a loosely-typed source value,
// clamping it to [min, max]. Non-digit characters are stripped before
// parsing ("3 BR" → 3). Returns nil on empty or unparsable input.
func ParseInteger(v any, min, max int) *int {
	var n int
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		n = t
	case int64:
		n = int(t)
	case float64:
		n = int(t)
	case string:
		s := digitsOnly(t)
		if s == "" || s == "-" {
			return nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}

	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return &n
}

// ParseDecimal extracts a fixed-point decimal from a loosely-typed source
// value, clamping it to [0, MaxDecimal]. Currency symbols, thousands
// separators and unit suffixes are stripped ("15,000,000 EGP" → 15000000).
// Returns nil on empty or unparsable input.
func ParseDecimal(v any) *decimal.Decimal {
	var d decimal.Decimal
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		d = decimal.NewFromFloat(t)
	case int:
		d = decimal.NewFromInt(int64(t))
	case int64:
		d = decimal.NewFromInt(t)
	case string:
		s := numericOnly(t)
		if s == "" || s == "-" || s == "." {
			return nil
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		d = parsed
	default:
		return nil
	}

	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(MaxDecimal) {
		d = MaxDecimal
	}
	return &d
}

// ParseBoolean coerces a loosely-typed source value to bool using a small
// recognized-token set. Anything unrecognized is false.
func ParseBoolean(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return truthyTokens[strings.ToLower(strings.TrimSpace(t))]
	default:
		return false
	}
}

// ParseEmbeddedArray returns the elements of an embedded source array.
// Structured arrays pass through; JSON-encoded strings are decoded.
// Empty-array sentinels ("", "[]", "{}") and decode failures yield nil —
// absence of embedded data is not an error.
func ParseEmbeddedArray(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		if len(t) == 0 {
			return nil
		}
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "[]" || s == "{}" || s == "null" {
			return nil
		}
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil
		}
		if len(arr) == 0 {
			return nil
		}
		return arr
	default:
		return nil
	}
}

// Canonicalize builds the natural key used for dimension deduplication:
//   - trims leading/trailing whitespace
//   - converts to lowercase
//   - collapses internal whitespace runs into a single space
//   - strips punctuation outside letters, digits, space and hyphen
//
// Non-Latin scripts are preserved, so Arabic area names dedup correctly.
// The function is deterministic and total; it never fails.
func Canonicalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if prevSpace || b.Len() == 0 {
				continue
			}
			b.WriteRune(' ')
			prevSpace = true
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseTimestamp parses a source value to an absolute instant. On failure
// it returns time.Now() rather than a zero value, because the target
// columns are non-nullable.
func ParseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case float64:
		// Epoch; values past the year 33658 in seconds are milliseconds.
		if t > 1e12 {
			return time.UnixMilli(int64(t)).UTC()
		}
		return time.Unix(int64(t), 0).UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed
			}
		}
	}
	return time.Now().UTC()
}

// digitsOnly strips everything except digits and a leading minus sign.
func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '-' && i == 0 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// numericOnly strips everything except digits, '.' and a leading minus sign.
func numericOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
