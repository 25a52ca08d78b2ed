package render

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/page"
)

// UntitledLabel replaces a missing paper title.
const UntitledLabel = "Untitled"

// SortMode selects the table row order.
type SortMode string

// Sort modes offered by the sort control.
const (
	CitationsDesc SortMode = "citations_desc"
	YearDesc      SortMode = "year_desc"
	YearAsc       SortMode = "year_asc"
	TitleAsc      SortMode = "title_asc"
)

// SortModes lists the modes in the order the control shows them.
var SortModes = []SortMode{CitationsDesc, YearDesc, YearAsc, TitleAsc}

var sortLabels = map[SortMode]string{
	CitationsDesc: "Most cited",
	YearDesc:      "Newest first",
	YearAsc:       "Oldest first",
	TitleAsc:      "Title (A–Z)",
}

// ParseSortMode maps a control value to a mode. Unknown values give
// CitationsDesc.
func ParseSortMode(s string) SortMode {
	m := SortMode(s)
	if _, ok := sortLabels[m]; ok {
		return m
	}
	return CitationsDesc
}

// IsSortMode reports whether s names a known mode.
func IsSortMode(s string) bool {
	_, ok := sortLabels[SortMode(s)]
	return ok
}

// Label is the text shown in the sort control.
func (m SortMode) Label() string {
	return sortLabels[ParseSortMode(string(m))]
}

// SortOptions builds the sort control entries with selected marked.
func SortOptions(selected string) []page.SortOption {
	sel := ParseSortMode(selected)
	opts := make([]page.SortOption, 0, len(SortModes))
	for _, m := range SortModes {
		opts = append(opts, page.SortOption{Value: string(m), Label: m.Label(), Selected: m == sel})
	}
	return opts
}

// DisplayTitle is the title shown for a paper.
func DisplayTitle(p metrics.Paper) string {
	return p.Title.Or(UntitledLabel)
}

// SortPapers returns a sorted copy of papers. The sort is stable and the
// input slice is left untouched.
func SortPapers(papers []metrics.Paper, mode string, loc Locale) []metrics.Paper {
	sorted := slices.Clone(papers)
	if sorted == nil {
		sorted = []metrics.Paper{}
	}

	switch ParseSortMode(mode) {
	case YearDesc:
		slices.SortStableFunc(sorted, func(a, b metrics.Paper) int {
			return cmp.Compare(b.Year.Or(0), a.Year.Or(0))
		})
	case YearAsc:
		slices.SortStableFunc(sorted, func(a, b metrics.Paper) int {
			return cmp.Compare(a.Year.Or(0), b.Year.Or(0))
		})
	case TitleAsc:
		c := loc.Collator()
		slices.SortStableFunc(sorted, func(a, b metrics.Paper) int {
			return c.CompareString(DisplayTitle(a), DisplayTitle(b))
		})
	default:
		slices.SortStableFunc(sorted, func(a, b metrics.Paper) int {
			return cmp.Compare(b.Citations.Or(0), a.Citations.Or(0))
		})
	}
	return sorted
}

// TableHTML renders the full publications table for papers in mode order.
func TableHTML(papers []metrics.Paper, mode string, loc Locale) string {
	var rows strings.Builder
	for _, p := range SortPapers(papers, mode, loc) {
		writeRow(&rows, p, loc)
	}

	return fmt.Sprintf(`
    <table class="table">
      <thead>
        <tr>
          <th>Paper</th>
          <th>Year</th>
          <th>Citations</th>
          <th>Source</th>
        </tr>
      </thead>
      <tbody>%s</tbody>
    </table>
  `, rows.String())
}

// RenderTable replaces the container's markup with the table.
func RenderTable(container *page.Element, papers []metrics.Paper, mode string, loc Locale) {
	container.SetHTML(TableHTML(papers, mode, loc))
}

func writeRow(b *strings.Builder, p metrics.Paper, loc Locale) {
	title := EscapeHTML(DisplayTitle(p))
	url := EscapeHTML(p.URL.Or("#"))
	year := Placeholder
	if s, ok := p.Year.Text(); ok {
		year = EscapeHTML(s)
	}
	cites := loc.FormatInt(p.Citations)
	source := EscapeHTML(p.Source.Or(Placeholder))

	var doi, arxiv string
	if p.DOI {
		doi = `<span class="badge">DOI</span>`
	}
	if p.Arxiv {
		arxiv = `<span class="badge">arXiv</span>`
	}

	fmt.Fprintf(b, `
      <tr>
        <td>
          <a class="paper" href="%s" target="_blank" rel="noreferrer"><b>%s</b></a>
          <div class="muted small" style="margin-top:4px">
            %s %s
          </div>
        </td>
        <td>%s</td>
        <td>%s</td>
        <td class="muted small">%s</td>
      </tr>
    `, url, title, doi, arxiv, year, cites, source)
}
