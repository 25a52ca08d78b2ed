package main

import (
	"context"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sent-hil/scholar-metrics/server"
)

type serveOptions struct {
	addr    string
	data    string
	backend string
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the metrics page over HTTP",
		Long: `Serve loads the metrics document once and serves the rendered page.

GET /?sort=<mode> and GET /table?sort=<mode> change the table order, /api/papers
returns papers as JSON, /healthz reports whether the page rendered and /metrics
exposes Prometheus metrics.

All clients share one rendered page, so a sort change made by one client
becomes the order every other client sees until the next change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("addr") {
				host, port, err := net.SplitHostPort(opts.addr)
				if err != nil {
					return err
				}
				cfg.Server.Host = host
				if cfg.Server.Port, err = strconv.Atoi(port); err != nil {
					return err
				}
			}
			if flags.Changed("data") {
				cfg.Data.Path = opts.data
			}
			if flags.Changed("backend") {
				cfg.Charts.Backend = opts.backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := root.logger(cfg).With().Str("command", "serve").Logger()

			a, err := buildApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Failures are shown on the page and reported by /healthz.
			_ = a.Run(ctx)

			srv := server.NewUIServer(server.Config{
				Address:         cfg.Server.Address(),
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
				MetricsEnabled:  cfg.Metrics.Enabled,
				MetricsPath:     cfg.Metrics.Path,
			}, a, logger)

			logger.Info().Str("data", cfg.Data.Path).Msgf("open your browser at http://%s", cfg.Server.Address())

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info().Msg("shutting down")
				return srv.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP server address (default from config: localhost:9001)")
	cmd.Flags().StringVar(&opts.data, "data", "", "metrics document: file, URL or sqlite://<file>")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "chart backend: chartjs or image")

	return cmd
}
