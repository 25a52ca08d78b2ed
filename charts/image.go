package charts

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/sent-hil/scholar-metrics/page"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 320

	emptyNote = `<p class="muted small">No data yet.</p>`

	maxTicks = 20
)

var seriesColor = drawing.ColorFromHex("2563eb")

// Image renders charts server side to PNG and embeds them as data URIs. Bars
// are always drawn vertically.
type Image struct {
	Width  int
	Height int
}

// New implements Backend.
func (im Image) New(target *page.Element, cfg Config) (Handle, error) {
	if !target.Exists() {
		return nil, &page.MissingElementError{IDs: []string{target.ID()}}
	}

	png, err := im.Render(cfg)
	if err != nil {
		return nil, err
	}

	if png == nil {
		target.SetHTML(emptyNote)
	} else {
		target.SetHTML(fmt.Sprintf(`<img alt="%s chart" src="data:image/png;base64,%s">`,
			cfg.Type, base64.StdEncoding.EncodeToString(png)))
	}
	return &boundChart{target: target, cfg: cfg}, nil
}

// Render draws cfg as a PNG. It returns nil when there is nothing to plot or
// the values do not fit a finite axis.
func (im Image) Render(cfg Config) ([]byte, error) {
	values := cfg.Values()
	if len(values) == 0 {
		return nil, nil
	}

	scale := cfg.Options.Scales[cfg.ValueAxis()]
	yRange, yTicks, ok := valueAxis(values, scale)
	if !ok {
		return nil, nil
	}

	var buf bytes.Buffer
	switch cfg.Type {
	case TypeLine:
		xs := make([]float64, len(values))
		xTicks := make([]chart.Tick, len(values))
		for i := range values {
			xs[i] = float64(i)
			xTicks[i] = chart.Tick{Value: float64(i), Label: labelAt(cfg.Data.Labels, i)}
		}
		graph := chart.Chart{
			Width:      im.width(),
			Height:     im.height(),
			Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 16, Bottom: 14}},
			XAxis: chart.XAxis{
				Range: &chart.ContinuousRange{Min: 0, Max: math.Max(float64(len(values)-1), 1)},
				Ticks: xTicks,
			},
			YAxis: chart.YAxis{Range: yRange, Ticks: yTicks},
			Series: []chart.Series{chart.ContinuousSeries{
				Name:    cfg.Data.Datasets[0].Label,
				XValues: xs,
				YValues: values,
				Style:   chart.Style{StrokeColor: seriesColor, StrokeWidth: 2},
			}},
		}
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("rendering line chart: %w", err)
		}
	case TypeBar:
		slot := float64(im.width()-60) / float64(len(values))
		bars := make([]chart.Value, len(values))
		for i, v := range values {
			bars[i] = chart.Value{
				Value: v,
				Label: labelAt(cfg.Data.Labels, i),
				Style: chart.Style{FillColor: seriesColor, StrokeColor: seriesColor},
			}
		}
		graph := chart.BarChart{
			Width:      im.width(),
			Height:     im.height(),
			Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 16, Bottom: 14}},
			BarWidth:   int(math.Max(slot*0.6, 1)),
			BarSpacing: int(math.Max(slot*0.4, 1)),
			YAxis:      chart.YAxis{Range: yRange, Ticks: yTicks},
			Bars:       bars,
		}
		if err := graph.Render(chart.PNG, &buf); err != nil {
			return nil, fmt.Errorf("rendering bar chart: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported chart type %q", cfg.Type)
	}
	return buf.Bytes(), nil
}

func (im Image) width() int {
	if im.Width <= 0 {
		return DefaultWidth
	}
	return im.Width
}

func (im Image) height() int {
	if im.Height <= 0 {
		return DefaultHeight
	}
	return im.Height
}

// valueAxis returns an explicit range with integer ticks. go-chart rejects a
// zero-delta range, so the range always spans at least one step. ok is false
// when the values cannot be placed on a finite axis.
func valueAxis(values []float64, scale Scale) (yRange *chart.ContinuousRange, ticks []chart.Tick, ok bool) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if scale.BeginAtZero {
		lo = math.Min(lo, 0)
	}
	lo = math.Floor(lo)

	span := hi - lo
	if span == 0 {
		span = math.Max(1, math.Abs(lo))
	}
	if math.IsNaN(span) || math.IsInf(span, 0) {
		return nil, nil, false
	}

	step := niceStep(span / 5)
	n := math.Ceil(span / step)
	top := lo + step*n
	if math.IsInf(top, 0) || math.IsNaN(top) || lo+step == lo || n > maxTicks {
		return nil, nil, false
	}

	for i := 0; i <= int(n); i++ {
		v := lo + float64(i)*step
		ticks = append(ticks, chart.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', scale.Ticks.Precision, 64)})
	}
	return &chart.ContinuousRange{Min: lo, Max: top}, ticks, true
}

// niceStep rounds a raw tick step up to 1, 2 or 5 times a power of ten, never
// below one.
func niceStep(raw float64) float64 {
	if raw <= 1 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range []float64{1, 2, 5, 10} {
		if raw <= m*mag {
			return m * mag
		}
	}
	return 10 * mag
}

func labelAt(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return ""
}
