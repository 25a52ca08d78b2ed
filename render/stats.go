package render

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/page"
)

// maxEpochMillis bounds numeric updated_at values, read as milliseconds
// since the Unix epoch.
const maxEpochMillis = 8.64e15

// timestampLayouts are tried in order when reading updated_at. Layouts
// without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// RenderStats writes the total citation count, the paper count and the
// last-updated date into their slots.
func RenderStats(p *page.Page, doc *metrics.Document, loc Locale) {
	p.Element(page.TotalCitationsID).SetText(loc.FormatInt(doc.TotalCitations))
	p.Element(page.PaperCountID).SetText(loc.FormatInt(len(doc.PaperList())))
	p.Element(page.UpdatedAtID).SetText(UpdatedDate(doc.UpdatedAt))
}

// UpdatedDate returns the UTC calendar date of a timestamp as YYYY-MM-DD, or
// the Placeholder when it is absent or unparseable.
func UpdatedDate(updatedAt metrics.Text) string {
	if !updatedAt.Valid || updatedAt.Value == "" {
		return Placeholder
	}
	if updatedAt.Numeric {
		ms, err := strconv.ParseFloat(updatedAt.Value, 64)
		if err != nil || math.Abs(ms) > maxEpochMillis {
			return Placeholder
		}
		return time.UnixMilli(int64(ms)).UTC().Format("2006-01-02")
	}
	t, ok := ParseTimestamp(updatedAt.Value)
	if !ok {
		return Placeholder
	}
	return t.UTC().Format("2006-01-02")
}

// ParseTimestamp reads the timestamp formats metrics documents use.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
