// Package render turns a metrics document into the stats and table markup of
// the host page.
package render

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/sent-hil/scholar-metrics/metrics"
)

// Placeholder is shown for missing or non-numeric values.
const Placeholder = "—"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML converts v to text and escapes the five HTML-significant
// characters.
func EscapeHTML(v any) string {
	return htmlReplacer.Replace(toText(v))
}

// Locale carries the language used for number grouping and title collation.
type Locale struct {
	tag language.Tag
}

// DefaultLocale is US English.
var DefaultLocale = Locale{tag: language.AmericanEnglish}

// NewLocale parses a BCP 47 tag such as "en-US" or "de".
func NewLocale(tag string) (Locale, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return Locale{}, fmt.Errorf("parsing locale %q: %w", tag, err)
	}
	return Locale{tag: t}, nil
}

// String returns the BCP 47 tag.
func (l Locale) String() string {
	return l.tag.String()
}

// FormatInt formats v with the locale's digit grouping. Nil, absent and
// non-finite values give the Placeholder.
func (l Locale) FormatInt(v any) string {
	x, ok := toFloat(v)
	if !ok {
		return Placeholder
	}
	p := message.NewPrinter(l.tag)
	if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
		return p.Sprintf("%d", int64(x))
	}
	return p.Sprint(number.Decimal(x, number.MaxFractionDigits(3)))
}

// Collator returns a collator for comparing titles. It is not safe for
// concurrent use.
func (l Locale) Collator() *collate.Collator {
	return collate.New(l.tag)
}

// FormatInt formats v in the default locale.
func FormatInt(v any) string {
	return DefaultLocale.FormatInt(v)
}

func toFloat(v any) (float64, bool) {
	var x float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case metrics.Number:
		if !n.Valid {
			return 0, false
		}
		x = n.Value
	case *metrics.Number:
		if n == nil || !n.Valid {
			return 0, false
		}
		x = n.Value
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		x = float64(n)
	case float64:
		x = n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		x = f
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		x = f
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case metrics.Text:
		return t.Value
	case metrics.Number:
		s, _ := t.Text()
		return s
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
