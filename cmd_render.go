package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	data    string
	out     string
	sort    string
	backend string
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the metrics page to a static HTML file",
		Long: `Render loads the metrics document once and writes the finished page.

When loading or rendering fails the page is still written, with the failure
message in place of the table, and the command exits non-zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("data") {
				cfg.Data.Path = opts.data
			}
			if flags.Changed("out") {
				cfg.Render.Output = opts.out
			}
			if flags.Changed("backend") {
				cfg.Charts.Backend = opts.backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := root.logger(cfg).With().Str("command", "render").Logger()

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}

			sort := ""
			if flags.Changed("sort") {
				sort = opts.sort
			}
			runErr := runApp(cmd.Context(), a, sort)

			html, err := a.HTML()
			if err != nil {
				return fmt.Errorf("serialising page: %w", err)
			}

			if cfg.Render.Output == "-" {
				if _, err := fmt.Fprint(cmd.OutOrStdout(), html); err != nil {
					return err
				}
			} else {
				if dir := filepath.Dir(cfg.Render.Output); dir != "." {
					if err := os.MkdirAll(dir, 0o755); err != nil {
						return fmt.Errorf("creating output directory: %w", err)
					}
				}
				if err := os.WriteFile(cfg.Render.Output, []byte(html), 0o644); err != nil {
					return fmt.Errorf("writing page: %w", err)
				}
				logger.Info().
					Str("path", cfg.Render.Output).
					Str("size", humanize.Bytes(uint64(len(html)))).
					Msg("wrote page")
			}

			if runErr != nil {
				return fmt.Errorf("page rendered with errors: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.data, "data", "", "metrics document: file, URL or sqlite://<file> (default from config: data/metrics.json)")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", `output file, "-" for stdout (default from config: index.html)`)
	cmd.Flags().StringVar(&opts.sort, "sort", "", "table order: citations_desc, year_desc, year_asc, title_asc; unknown values fall back to citations_desc")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "chart backend: chartjs or image")

	return cmd
}
