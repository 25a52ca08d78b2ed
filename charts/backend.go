package charts

import (
	"encoding/json"
	"fmt"

	"github.com/sent-hil/scholar-metrics/page"
)

// Backend names accepted by NewBackend.
const (
	BackendChartJS = "chartjs"
	BackendImage   = "image"
)

// Handle is a live chart bound to a drawing surface.
type Handle interface {
	// Config returns the configuration the chart was built from.
	Config() Config
	// Destroy releases the drawing surface. Calling it twice is a no-op.
	Destroy()
}

// Backend draws chart configurations onto host page elements.
type Backend interface {
	New(target *page.Element, cfg Config) (Handle, error)
}

// NewBackend returns the backend with the given name.
func NewBackend(name string, width, height int) (Backend, error) {
	switch name {
	case BackendChartJS:
		return ChartJS{}, nil
	case BackendImage:
		return Image{Width: width, Height: height}, nil
	default:
		return nil, fmt.Errorf("unknown chart backend %q", name)
	}
}

// ChartJS hands the configuration to Chart.js running in the browser. The
// host page creates the canvas from the target's data-chart attribute.
type ChartJS struct{}

// New implements Backend.
func (ChartJS) New(target *page.Element, cfg Config) (Handle, error) {
	if !target.Exists() {
		return nil, &page.MissingElementError{IDs: []string{target.ID()}}
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding chart config: %w", err)
	}
	target.SetHTML("")
	target.SetAttr("data-chart", string(b))
	return &boundChart{target: target, cfg: cfg, attr: "data-chart"}, nil
}

type boundChart struct {
	target    *page.Element
	cfg       Config
	attr      string
	destroyed bool
}

func (c *boundChart) Config() Config {
	return c.cfg
}

func (c *boundChart) Destroy() {
	if c.destroyed {
		return
	}
	c.destroyed = true
	if c.attr != "" {
		c.target.RemoveAttr(c.attr)
	}
	c.target.SetHTML("")
}
