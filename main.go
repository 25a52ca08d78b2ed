// Package main provides the scholar-metrics CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sent-hil/scholar-metrics/app"
	"github.com/sent-hil/scholar-metrics/charts"
	"github.com/sent-hil/scholar-metrics/config"
	"github.com/sent-hil/scholar-metrics/logging"
	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/page"
	"github.com/sent-hil/scholar-metrics/render"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		// SilenceErrors is set, so print it here
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// rootOptions are shared by every subcommand.
type rootOptions struct {
	configPath string
	// logOut overrides logging.output when set.
	logOut io.Writer
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	opts := &rootOptions{logOut: logOut}

	root := &cobra.Command{
		Use:   "scholar-metrics",
		Short: "Render publication metrics into a static page or serve them",
		Long: `scholar-metrics loads a metrics document (papers, citation counts, years)
and renders summary statistics, a sortable table and two charts into a host page.

The document can be a JSON file, an http(s) URL, or sqlite://<file> pointing at a
paper_cache database written by the citation scraper.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: ./config.yaml or ./config/config.yaml)")

	root.AddCommand(newRenderCmd(opts), newServeCmd(opts))
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

func (o *rootOptions) logger(cfg *config.Config) zerolog.Logger {
	if o.logOut != nil {
		return logging.New(o.logOut, cfg.Logging.Logger())
	}
	return logging.NewLogger(cfg.Logging.Logger())
}

// buildApp wires the host page, loader and chart backend from cfg.
func buildApp(cfg *config.Config, logger zerolog.Logger) (*app.App, error) {
	locale, err := render.NewLocale(cfg.Site.Locale)
	if err != nil {
		return nil, err
	}

	backend, err := charts.NewBackend(cfg.Charts.Backend, cfg.Charts.Width, cfg.Charts.Height)
	if err != nil {
		return nil, err
	}

	var p *page.Page
	if cfg.Site.Template != "" {
		p, err = page.LoadHost(cfg.Site.Template)
	} else {
		p, err = page.NewHost(page.HostData{
			Title:       cfg.Site.Title,
			SortOptions: render.SortOptions(cfg.Site.DefaultSort),
			ChartJS:     cfg.Charts.Backend == charts.BackendChartJS,
			Intro:       cfg.Site.Intro != "",
		})
	}
	if err != nil {
		return nil, err
	}

	loader := metrics.NewLoader(metrics.LoaderConfig{
		Root:    cfg.Data.Root,
		BaseURL: cfg.Data.BaseURL,
		Timeout: cfg.Data.Timeout,
	}, nil, logger)

	return app.New(p, loader, backend, app.Options{
		DataPath:  cfg.Data.Path,
		IntroPath: cfg.Site.Intro,
		Locale:    locale,
	}, logger), nil
}

// runApp runs the render pipeline and applies an explicit sort choice.
func runApp(ctx context.Context, a *app.App, sort string) error {
	if err := a.Run(ctx); err != nil {
		return err
	}
	if sort != "" {
		return a.ChangeSort(sort)
	}
	return nil
}
