// Package server serves the rendered metrics page over HTTP. A sort change
// arrives as a request and is dispatched to the page as a change event.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sent-hil/scholar-metrics/app"
	"github.com/sent-hil/scholar-metrics/logging"
	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/render"
)

// PageSize is the number of papers per /api/papers page.
const PageSize = 25

// Site is the rendered page the server exposes. *app.App implements it.
type Site interface {
	HTML() (string, error)
	TableHTML() string
	ChangeSort(mode string) error
	SortMode() string
	Papers(mode string) ([]metrics.Paper, error)
	Err() error
}

// Config holds UI server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
	MetricsPath     string
}

// UIServer represents the web server for the metrics page
type UIServer struct {
	site       Site
	router     chi.Router
	httpServer *http.Server
	metrics    *Metrics
	cfg        Config
	logger     zerolog.Logger
}

// PaperView represents a paper for view in the API
type PaperView struct {
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Year      string  `json:"year"`
	Citations float64 `json:"citations"`
	Source    string  `json:"source"`
	DOI       bool    `json:"doi"`
	Arxiv     bool    `json:"arxiv"`
}

// NewUIServer creates a new UI server
func NewUIServer(cfg Config, site Site, logger zerolog.Logger) *UIServer {
	s := &UIServer{
		site:    site,
		metrics: NewMetrics(),
		cfg:     cfg,
		logger:  logging.WithComponent(logger, "ui-server"),
	}

	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *UIServer) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/", s.handleIndex)
	r.Get("/table", s.handleTable)
	r.Get("/api/papers", s.handlePapersAPI)
	r.Get("/refresh", s.handleRefresh)
	r.Get("/healthz", s.handleHealth)

	if s.cfg.MetricsEnabled {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, s.metrics.Handler())
	}

	return r
}

// Handler returns the router.
func (s *UIServer) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's metric collectors.
func (s *UIServer) Metrics() *Metrics {
	return s.metrics
}

// Start starts the UI server and blocks until it stops.
func (s *UIServer) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on UI address: %w", err)
	}
	s.logger.Info().Str("address", ln.Addr().String()).Msg("UI server starting")
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *UIServer) Shutdown(ctx context.Context) error {
	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	return s.httpServer.Shutdown(ctx)
}

// handleIndex serves the whole page. A sort parameter is applied first.
func (s *UIServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if !s.applySort(w, r) {
		return
	}

	html, err := s.site.HTML()
	if err != nil {
		http.Error(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// handleTable applies the sort parameter and returns only the table markup.
func (s *UIServer) handleTable(w http.ResponseWriter, r *http.Request) {
	if !s.applySort(w, r) {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(s.site.TableHTML()))
}

// applySort dispatches the sort change event when the request carries one.
// It reports whether the handler should continue.
func (s *UIServer) applySort(w http.ResponseWriter, r *http.Request) bool {
	mode, ok := r.URL.Query()["sort"]
	if !ok || len(mode) == 0 {
		return true
	}

	err := s.site.ChangeSort(mode[0])
	switch {
	case err == nil:
		s.metrics.SortChanges.WithLabelValues(string(render.ParseSortMode(mode[0]))).Inc()
	case errors.Is(err, app.ErrNotLoaded):
		// The page already shows the failure message.
	default:
		s.logger.Error().Err(err).Str("sort", mode[0]).Msg("sort change failed")
		http.Error(w, "Failed to sort papers: "+err.Error(), http.StatusInternalServerError)
		return false
	}
	return true
}

// handleRefresh handles the refresh action. The document is loaded once per
// process so this only sends the browser back to the page.
func (s *UIServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handlePapersAPI returns papers in table order, a page at a time
func (s *UIServer) handlePapersAPI(w http.ResponseWriter, r *http.Request) {
	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	mode := r.URL.Query().Get("sort")
	if mode == "" {
		mode = s.site.SortMode()
	}
	searchQuery := r.URL.Query().Get("q")

	papers, total, err := s.getPapers(mode, page, PageSize, searchQuery)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, app.ErrNotLoaded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "Failed to fetch papers: "+err.Error())
		return
	}

	totalPages := (total + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}

	writeJSON(w, http.StatusOK, struct {
		Papers      []PaperView `json:"papers"`
		Count       int         `json:"count"`
		CurrentPage int         `json:"currentPage"`
		TotalPages  int         `json:"totalPages"`
		PageSize    int         `json:"pageSize"`
		Sort        string      `json:"sort"`
	}{
		Papers:      papers,
		Count:       total,
		CurrentPage: page,
		TotalPages:  totalPages,
		PageSize:    PageSize,
		Sort:        string(render.ParseSortMode(mode)),
	})
}

// getPapers returns one page of papers whose title contains searchQuery,
// along with the number of matches.
func (s *UIServer) getPapers(mode string, page, pageSize int, searchQuery string) ([]PaperView, int, error) {
	sorted, err := s.site.Papers(mode)
	if err != nil {
		return nil, 0, err
	}

	needle := strings.ToLower(searchQuery)
	var matched []metrics.Paper
	for _, p := range sorted {
		if needle == "" || strings.Contains(strings.ToLower(render.DisplayTitle(p)), needle) {
			matched = append(matched, p)
		}
	}

	papers := []PaperView{}
	if page-1 < (len(matched)+pageSize-1)/pageSize {
		offset := (page - 1) * pageSize
		end := min(offset+pageSize, len(matched))
		for _, p := range matched[offset:end] {
			papers = append(papers, newPaperView(p))
		}
	}

	s.logger.Debug().
		Int("papers", len(papers)).
		Int("page", page).
		Int("total", len(matched)).
		Str("search", searchQuery).
		Msg("loaded papers")
	return papers, len(matched), nil
}

func newPaperView(p metrics.Paper) PaperView {
	year, _ := p.Year.Text()
	return PaperView{
		Title:     render.DisplayTitle(p),
		URL:       p.URL.Or(""),
		Year:      year,
		Citations: p.Citations.Or(0),
		Source:    p.Source.Or(""),
		DOI:       bool(p.DOI),
		Arxiv:     bool(p.Arxiv),
	}
}

// handleHealth reports whether the page rendered.
func (s *UIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.site.Err(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
