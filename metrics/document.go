// Package metrics holds the publication metrics document and the loader that
// fetches it.
package metrics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Document is the metrics payload rendered by the site.
type Document struct {
	TotalCitations  Number      `json:"total_citations"`
	UpdatedAt       Text        `json:"updated_at"`
	CitationsByYear []YearCount `json:"citations_by_year"`
	Papers          []Paper     `json:"papers"`
}

// YearCount is one point of the citations-by-year series.
type YearCount struct {
	Year      Number `json:"year"`
	Citations Number `json:"citations"`
}

// Paper represents one publication as listed in the metrics document
type Paper struct {
	Title     Text   `json:"title"`
	URL       Text   `json:"url"`
	Year      Number `json:"year"`
	Citations Number `json:"citations"`
	Source    Text   `json:"source"`
	DOI       Flag   `json:"doi"`
	Arxiv     Flag   `json:"arxiv"`
}

// PaperList returns the papers, never nil.
func (d *Document) PaperList() []Paper {
	if d == nil || d.Papers == nil {
		return []Paper{}
	}
	return d.Papers
}

// Years returns the citations-by-year series, never nil.
func (d *Document) Years() []YearCount {
	if d == nil || d.CitationsByYear == nil {
		return []YearCount{}
	}
	return d.CitationsByYear
}

// Number is a loosely typed numeric field. Numbers and numeric strings decode
// to a value, booleans to 1 or 0. Null or absence leaves Present false; any
// other JSON value is present but not Valid.
type Number struct {
	Value   float64
	Present bool
	Valid   bool

	text   string
	scalar bool
}

// Num builds a valid Number.
func Num(v float64) Number {
	return Number{Value: v, Present: true, Valid: !math.IsNaN(v) && !math.IsInf(v, 0), text: formatFloat(v), scalar: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = Number{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	n.Present = true
	n.scalar = data[0] != '{' && data[0] != '['

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.text = s
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			n.Valid = true
			return nil
		}
		if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
			n.setValue(v)
		}
	case 't':
		n.text = "true"
		n.setValue(1)
	case 'f':
		n.text = "false"
		n.setValue(0)
	case '{', '[':
		// present, not a number
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil && !isRangeErr(err) {
			return err
		}
		n.setValue(v)
		n.text = formatFloat(v)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(formatFloat(n.Value)), nil
}

func (n *Number) setValue(v float64) {
	n.Value = v
	n.Valid = !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Or returns the value, or def when the number is absent or not finite.
func (n Number) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Value
}

// Text returns the literal text of a scalar value. ok is false for absent
// values and for objects or arrays.
func (n Number) Text() (string, bool) {
	if !n.Present || !n.scalar {
		return "", false
	}
	return n.text, true
}

// Text is a loosely typed string field. Numbers and booleans keep their
// literal text; null, absence, objects and arrays are not Valid.
type Text struct {
	Value string
	Valid bool
	// Numeric is set when the value was a JSON number.
	Numeric bool
}

// Str builds a valid Text.
func Str(s string) Text {
	return Text{Value: s, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Text{}
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case 'n', '{', '[':
		return nil
	case '"':
		if err := json.Unmarshal(data, &t.Value); err != nil {
			return err
		}
	case 't', 'f':
		t.Value = string(data)
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil && !isRangeErr(err) {
			return err
		}
		t.Value = formatFloat(v)
		t.Numeric = true
	}
	t.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Or returns the value, or def when the text is absent.
func (t Text) Or(def string) string {
	if !t.Valid {
		return def
	}
	return t.Value
}

// Flag is a boolean-like field with JavaScript truthiness: false, 0, "",
// null and absence are false, every other value is true.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = false
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case 'n', 'f':
		return nil
	case 't', '{', '[':
		*f = true
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = s != ""
	default:
		v, err := strconv.ParseFloat(string(data), 64)
		if err != nil && !isRangeErr(err) {
			return err
		}
		*f = v != 0
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "Infinity"
	}
	if math.IsInf(v, -1) {
		return "-Infinity"
	}
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isRangeErr(err error) bool {
	numErr, ok := err.(*strconv.NumError)
	return ok && numErr.Err == strconv.ErrRange
}
