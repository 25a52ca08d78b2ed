// Package charts builds the two site charts. Configurations follow the
// Chart.js contract so any backend that understands it can draw them.
package charts

// Chart types.
const (
	TypeLine = "line"
	TypeBar  = "bar"
)

// Config is a chart description: visualization type, labels, values, axes
// and legend.
type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

// Data holds the category labels and the series drawn against them.
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one series. A nil value is a gap.
type Dataset struct {
	Label   string     `json:"label"`
	Data    []*float64 `json:"data"`
	Tension float64    `json:"tension,omitempty"`
}

// Options are the chart-wide display options.
type Options struct {
	// IndexAxis "y" lays bars out horizontally.
	IndexAxis           string           `json:"indexAxis,omitempty"`
	Responsive          bool             `json:"responsive"`
	MaintainAspectRatio bool             `json:"maintainAspectRatio"`
	Plugins             Plugins          `json:"plugins"`
	Scales              map[string]Scale `json:"scales"`
}

// Plugins configures chart plugins.
type Plugins struct {
	Legend Legend `json:"legend"`
}

// Legend configures the legend.
type Legend struct {
	Display bool `json:"display"`
}

// Scale configures one axis.
type Scale struct {
	BeginAtZero bool  `json:"beginAtZero"`
	Ticks       Ticks `json:"ticks"`
}

// Ticks configures axis tick labels. Precision 0 keeps labels integral.
type Ticks struct {
	Precision int `json:"precision"`
}

// ValueAxis returns the name of the axis values are plotted on.
func (c Config) ValueAxis() string {
	if c.Options.IndexAxis == "y" {
		return "x"
	}
	return "y"
}

// Values returns the first dataset's values with gaps as zero.
func (c Config) Values() []float64 {
	if len(c.Data.Datasets) == 0 {
		return nil
	}
	out := make([]float64, len(c.Data.Datasets[0].Data))
	for i, v := range c.Data.Datasets[0].Data {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}
