// Package app wires the loader, the renderers and the chart backend into the
// site's render pipeline. Run is the single failure boundary: whatever goes
// wrong is reported in the table area and logged.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sent-hil/scholar-metrics/charts"
	"github.com/sent-hil/scholar-metrics/logging"
	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/page"
	"github.com/sent-hil/scholar-metrics/render"
)

// FailureHTML replaces the table when the page could not be rendered.
const FailureHTML = `<p class="muted">Failed to load metrics. Check data/metrics.json and console.</p>`

// ErrNotLoaded is returned by operations that need a document before Run
// has loaded one.
var ErrNotLoaded = errors.New("metrics not loaded")

// DocumentLoader fetches the metrics document.
type DocumentLoader interface {
	Load(ctx context.Context, path string) (*metrics.Document, error)
}

// Options configure an App.
type Options struct {
	// DataPath is handed to the loader.
	DataPath string
	// IntroPath names an optional Markdown file rendered into the intro
	// element.
	IntroPath string
	Locale    render.Locale
}

// App renders one host page. Methods are serialised so callers on several
// goroutines see a single event loop.
type App struct {
	mu      sync.Mutex
	page    *page.Page
	loader  DocumentLoader
	backend charts.Backend
	opts    Options
	logger  zerolog.Logger

	doc       *metrics.Document
	err       error
	listening bool

	yearChart charts.Slot
	topChart  charts.Slot
}

// New creates an App rendering into p.
func New(p *page.Page, loader DocumentLoader, backend charts.Backend, opts Options, logger zerolog.Logger) *App {
	return &App{
		page:    p,
		loader:  loader,
		backend: backend,
		opts:    opts,
		logger:  logging.WithComponent(logger, "app"),
	}
}

// Run loads the document and renders stats, table, intro and charts into the
// page. On failure the table area shows FailureHTML and the error is logged
// and returned.
func (a *App) Run(ctx context.Context) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Stage: "render", Err: fmt.Errorf("panic: %v", r)}
		}
		a.err = err
		if err != nil {
			a.fail(err)
		}
	}()

	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	if err := a.page.Require(page.RequiredIDs...); err != nil {
		return &RenderError{Stage: "page", Err: err}
	}

	doc, err := a.loader.Load(ctx, a.opts.DataPath)
	if err != nil {
		return err
	}
	a.doc = doc

	render.RenderStats(a.page, doc, a.opts.Locale)

	if !a.listening {
		a.page.OnChange(page.SortSelectID, a.renderTable)
		a.listening = true
	}
	a.renderTable(a.page.Element(page.SortSelectID).Value())

	if err := a.renderIntro(); err != nil {
		return &RenderError{Stage: "intro", Err: err}
	}

	if _, err := a.yearChart.Replace(func() (charts.Handle, error) {
		return charts.RenderCitationsByYear(a.backend, a.page.Element(page.CitationsChartID), doc.Years())
	}); err != nil {
		return &RenderError{Stage: "citations chart", Err: err}
	}
	if _, err := a.topChart.Replace(func() (charts.Handle, error) {
		return charts.RenderTopPapers(a.backend, a.page.Element(page.TopPapersChartID), doc.PaperList())
	}); err != nil {
		return &RenderError{Stage: "top papers chart", Err: err}
	}

	a.logger.Info().
		Int("papers", len(doc.PaperList())).
		Int("years", len(doc.Years())).
		Msg("rendered metrics")
	return nil
}

func (a *App) renderTable(mode string) {
	render.RenderTable(a.page.Element(page.TableContainerID), a.doc.PaperList(), mode, a.opts.Locale)
}

func (a *App) fail(err error) {
	a.page.Element(page.TableContainerID).SetHTML(FailureHTML)
	a.logger.Error().Err(err).Str("path", a.opts.DataPath).Msg("failed to render metrics")
}

// Err returns the error of the last Run.
func (a *App) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// ChangeSort selects mode on the sort control and dispatches the change
// event. Only the table is re-rendered.
func (a *App) ChangeSort(mode string) (err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.doc == nil {
		return ErrNotLoaded
	}

	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Stage: "table", Err: fmt.Errorf("panic: %v", r)}
			a.logger.Error().Err(err).Str("sort", mode).Msg("failed to sort table")
		}
	}()

	return a.page.Change(page.SortSelectID, mode)
}

// SortMode returns the sort control's current value.
func (a *App) SortMode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page.Element(page.SortSelectID).Value()
}

// HTML serialises the whole page.
func (a *App) HTML() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page.HTML()
}

// TableHTML returns the table container's markup.
func (a *App) TableHTML() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.page.Element(page.TableContainerID).HTML()
}

// Papers returns the loaded papers in table order for mode.
func (a *App) Papers(mode string) ([]metrics.Paper, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.doc == nil {
		return nil, ErrNotLoaded
	}
	return render.SortPapers(a.doc.PaperList(), mode, a.opts.Locale), nil
}

// Close destroys both charts.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.yearChart.Close()
	a.topChart.Close()
}
