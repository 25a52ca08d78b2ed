package charts

import (
	"cmp"
	"slices"

	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/page"
	"github.com/sent-hil/scholar-metrics/render"
)

const (
	// TopPaperCount is how many papers the top papers chart shows.
	TopPaperCount = 8
	// LabelMaxLen is the longest title label shown untruncated.
	LabelMaxLen = 42
	// LabelKeepLen is how much of a longer title is kept before the ellipsis.
	LabelKeepLen = 39

	ellipsis     = "…"
	datasetLabel = "Citations"
)

// CitationsByYearConfig describes the citations-by-year line chart. Rows are
// plotted in the order given.
func CitationsByYearConfig(rows []metrics.YearCount) Config {
	labels := make([]string, 0, len(rows))
	values := make([]*float64, 0, len(rows))
	for _, r := range rows {
		label, ok := r.Year.Text()
		if !ok {
			label = render.Placeholder
		}
		labels = append(labels, label)
		values = append(values, value(r.Citations))
	}

	return Config{
		Type: TypeLine,
		Data: Data{
			Labels:   labels,
			Datasets: []Dataset{{Label: datasetLabel, Data: values, Tension: 0.25}},
		},
		Options: Options{
			Responsive: true,
			Plugins:    Plugins{Legend: Legend{Display: false}},
			Scales: map[string]Scale{
				"y": {BeginAtZero: true, Ticks: Ticks{Precision: 0}},
			},
		},
	}
}

// TopPapers picks the most cited papers and reverses them so the most cited
// sits nearest the axis origin of a horizontal bar chart.
func TopPapers(papers []metrics.Paper) []metrics.Paper {
	top := slices.Clone(papers)
	slices.SortStableFunc(top, func(a, b metrics.Paper) int {
		return cmp.Compare(b.Citations.Or(0), a.Citations.Or(0))
	})
	if len(top) > TopPaperCount {
		top = top[:TopPaperCount]
	}
	slices.Reverse(top)
	return top
}

// TopPapersConfig describes the top papers horizontal bar chart. Labels are
// plain text and are not escaped.
func TopPapersConfig(papers []metrics.Paper) Config {
	top := TopPapers(papers)

	labels := make([]string, 0, len(top))
	values := make([]*float64, 0, len(top))
	for _, p := range top {
		labels = append(labels, TruncateLabel(render.DisplayTitle(p)))
		v := p.Citations.Or(0)
		values = append(values, &v)
	}

	return Config{
		Type: TypeBar,
		Data: Data{
			Labels:   labels,
			Datasets: []Dataset{{Label: datasetLabel, Data: values}},
		},
		Options: Options{
			IndexAxis:  "y",
			Responsive: true,
			Plugins:    Plugins{Legend: Legend{Display: false}},
			Scales: map[string]Scale{
				"x": {BeginAtZero: true, Ticks: Ticks{Precision: 0}},
			},
		},
	}
}

// TruncateLabel shortens titles longer than LabelMaxLen characters.
func TruncateLabel(title string) string {
	runes := []rune(title)
	if len(runes) <= LabelMaxLen {
		return title
	}
	return string(runes[:LabelKeepLen]) + ellipsis
}

// RenderCitationsByYear binds the citations-by-year chart to target.
func RenderCitationsByYear(b Backend, target *page.Element, rows []metrics.YearCount) (Handle, error) {
	return b.New(target, CitationsByYearConfig(rows))
}

// RenderTopPapers binds the top papers chart to target.
func RenderTopPapers(b Backend, target *page.Element, papers []metrics.Paper) (Handle, error) {
	return b.New(target, TopPapersConfig(papers))
}

func value(n metrics.Number) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}
