package domain

import (
	"bytes"
	"time"

	json "github.com/goccy/go-json"
)

// timestampLayouts are tried in order. Meteocat mostly emits minute precision
// with a trailing Z; day-only values appear in "dia" fields.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02Z",
	"2006-01-02",
}

// Timestamp is a point in time that remembers its upstream text. Unparseable
// values keep Raw and leave Time zero rather than failing the decode.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// ParseTimestamp parses s with the known upstream layouts.
func ParseTimestamp(s string) Timestamp {
	ts := Timestamp{Raw: s}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t
			break
		}
	}
	return ts
}

// UnmarshalJSON accepts a JSON string or null. Any other shape is ignored.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = Timestamp{}
		return nil //nolint:nilerr // malformed timestamps degrade to zero
	}
	*t = ParseTimestamp(s)
	return nil
}

// MarshalJSON writes the raw upstream text, or null when empty.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Raw == "" {
		if t.Time.IsZero() {
			return []byte("null"), nil
		}
		return json.Marshal(t.Time.Format(time.RFC3339))
	}
	return json.Marshal(t.Raw)
}

// IsZero reports whether no time could be parsed.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}
