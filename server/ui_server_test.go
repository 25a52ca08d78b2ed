package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sent-hil/scholar-metrics/app"
	"github.com/sent-hil/scholar-metrics/charts"
	"github.com/sent-hil/scholar-metrics/metrics"
	"github.com/sent-hil/scholar-metrics/page"
	"github.com/sent-hil/scholar-metrics/render"
)

type docLoader struct {
	doc *metrics.Document
	err error
}

func (l docLoader) Load(context.Context, string) (*metrics.Document, error) {
	return l.doc, l.err
}

func testDoc(n int) *metrics.Document {
	doc := &metrics.Document{TotalCitations: metrics.Num(0)}
	for i := 1; i <= n; i++ {
		doc.Papers = append(doc.Papers, metrics.Paper{
			Title:     metrics.Str(fmt.Sprintf("Test Paper %d", i)),
			URL:       metrics.Str(fmt.Sprintf("http://test%d.com", i)),
			Year:      metrics.Num(float64(2000 + i)),
			Citations: metrics.Num(float64(i * 10)),
			Source:    metrics.Str("Google Scholar"),
			Arxiv:     i%2 == 0,
		})
	}
	doc.Papers = append(doc.Papers, metrics.Paper{
		Title:     metrics.Str("Data mining at scale"),
		Citations: metrics.Num(5),
	})
	return doc
}

func setupTestServer(t *testing.T, loader app.DocumentLoader) (*UIServer, *app.App) {
	t.Helper()

	p, err := page.NewHost(page.HostData{Title: "Metrics", SortOptions: render.SortOptions("")})
	require.NoError(t, err)

	a := app.New(p, loader, charts.ChartJS{}, app.Options{DataPath: "data/metrics.json", Locale: render.DefaultLocale}, zerolog.Nop())
	_ = a.Run(context.Background())

	s := NewUIServer(Config{Address: "127.0.0.1:0", MetricsEnabled: true, MetricsPath: "/metrics"}, a, zerolog.Nop())
	return s, a
}

func get(t *testing.T, s *UIServer, url string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func titles(t *testing.T, markup string) []string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	var out []string
	doc.Find("#" + page.TableContainerID + " tbody tr a.paper b").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	if len(out) == 0 {
		doc.Find("tbody tr a.paper b").Each(func(_ int, s *goquery.Selection) {
			out = append(out, s.Text())
		})
	}
	return out
}

func TestHandleIndex(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(3)})

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantFirst  string
		wantSelect string
	}{
		{name: "basic page load", url: "/", wantStatus: http.StatusOK, wantFirst: "Test Paper 3", wantSelect: "citations_desc"},
		{name: "sort change", url: "/?sort=year_asc", wantStatus: http.StatusOK, wantFirst: "Data mining at scale", wantSelect: "year_asc"},
		{name: "sort persists", url: "/", wantStatus: http.StatusOK, wantFirst: "Data mining at scale", wantSelect: "year_asc"},
		{name: "unknown sort falls back", url: "/?sort=bogus", wantStatus: http.StatusOK, wantFirst: "Test Paper 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, tt.url)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			got := titles(t, w.Body.String())
			require.NotEmpty(t, got)
			assert.Equal(t, tt.wantFirst, got[0])

			if tt.wantSelect != "" {
				doc, err := goquery.NewDocumentFromReader(strings.NewReader(w.Body.String()))
				require.NoError(t, err)
				val, _ := doc.Find("#sortSelect option[selected]").Attr("value")
				assert.Equal(t, tt.wantSelect, val)
			}
		})
	}
}

func TestHandleIndex_SortDoesNotTouchCharts(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(3)})

	chartAttr := func(body string) string {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		require.NoError(t, err)
		v, _ := doc.Find("#" + page.TopPapersChartID).Attr("data-chart")
		return v
	}

	before := chartAttr(get(t, s, "/").Body.String())
	after := chartAttr(get(t, s, "/?sort=title_asc").Body.String())
	assert.NotEmpty(t, before)
	assert.Equal(t, before, after)
}

func TestHandleTable(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(3)})

	w := get(t, s, "/table?sort=year_desc")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(w.Body.String()), `<table class="table">`))
	assert.NotContains(t, w.Body.String(), "<html")
	assert.Equal(t, []string{"Test Paper 3", "Test Paper 2", "Test Paper 1", "Data mining at scale"}, titles(t, w.Body.String()))
}

func TestHandleIndex_LoadFailure(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{err: &metrics.LoadError{Path: "data/metrics.json", Status: 500}})

	w := get(t, s, "/?sort=year_asc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to load metrics. Check data/metrics.json and console.")

	w = get(t, s, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "failed to load data/metrics.json: 500")

	w = get(t, s, "/api/papers")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type papersResponse struct {
	Papers      []PaperView `json:"papers"`
	Count       int         `json:"count"`
	CurrentPage int         `json:"currentPage"`
	TotalPages  int         `json:"totalPages"`
	PageSize    int         `json:"pageSize"`
	Sort        string      `json:"sort"`
}

func TestHandlePapersAPI(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(30)})

	tests := []struct {
		name  string
		url   string
		check func(*testing.T, papersResponse)
	}{
		{
			name: "basic papers request",
			url:  "/api/papers",
			check: func(t *testing.T, r papersResponse) {
				assert.Len(t, r.Papers, PageSize)
				assert.Equal(t, 31, r.Count)
				assert.Equal(t, 2, r.TotalPages)
				assert.Equal(t, "citations_desc", r.Sort)
				assert.Equal(t, "Test Paper 30", r.Papers[0].Title)
				assert.Equal(t, 300.0, r.Papers[0].Citations)
				assert.Equal(t, "2030", r.Papers[0].Year)
				assert.True(t, r.Papers[0].Arxiv)
			},
		},
		{
			name: "second page",
			url:  "/api/papers?page=2",
			check: func(t *testing.T, r papersResponse) {
				assert.Equal(t, 2, r.CurrentPage)
				assert.Len(t, r.Papers, 6)
				assert.Equal(t, "Data mining at scale", r.Papers[5].Title)
			},
		},
		{
			name: "page past the end",
			url:  "/api/papers?page=9",
			check: func(t *testing.T, r papersResponse) {
				assert.NotNil(t, r.Papers)
				assert.Empty(t, r.Papers)
			},
		},
		{
			name: "huge page is past the end",
			url:  "/api/papers?page=368934881474191034",
			check: func(t *testing.T, r papersResponse) {
				assert.Equal(t, 368934881474191034, r.CurrentPage)
				assert.NotNil(t, r.Papers)
				assert.Empty(t, r.Papers)
			},
		},
		{
			name: "invalid page defaults to first",
			url:  "/api/papers?page=-3",
			check: func(t *testing.T, r papersResponse) {
				assert.Equal(t, 1, r.CurrentPage)
			},
		},
		{
			name: "search papers",
			url:  "/api/papers?q=MINING",
			check: func(t *testing.T, r papersResponse) {
				require.Len(t, r.Papers, 1)
				assert.Equal(t, 1, r.Count)
				assert.Equal(t, 1, r.TotalPages)
				assert.Equal(t, "", r.Papers[0].Year)
			},
		},
		{
			name: "explicit sort",
			url:  "/api/papers?sort=year_asc",
			check: func(t *testing.T, r papersResponse) {
				assert.Equal(t, "year_asc", r.Sort)
				assert.Equal(t, "Data mining at scale", r.Papers[0].Title)
				assert.Equal(t, "Test Paper 1", r.Papers[1].Title)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, s, tt.url)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var r papersResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
			tt.check(t, r)
		})
	}
}

func TestHandlePapersAPI_FollowsControl(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(3)})

	get(t, s, "/table?sort=title_asc")
	w := get(t, s, "/api/papers")

	var r papersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	assert.Equal(t, "title_asc", r.Sort)
	assert.Equal(t, "Data mining at scale", r.Papers[0].Title)
}

func TestHandleRefresh(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(1)})

	w := get(t, s, "/refresh")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestHandleHealth(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(1)})

	w := get(t, s, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(2)})

	get(t, s, "/table?sort=year_desc")
	get(t, s, "/table?sort=nope")
	get(t, s, "/healthz")

	w := get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `scholar_metrics_table_sort_changes_total{mode="year_desc"} 1`)
	assert.Contains(t, body, `scholar_metrics_table_sort_changes_total{mode="citations_desc"} 1`)
	assert.Contains(t, body, `scholar_metrics_http_requests_total{code="200",route="/table"} 2`)
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsDisabled(t *testing.T) {
	p, err := page.NewHost(page.HostData{Title: "Metrics", SortOptions: render.SortOptions("")})
	require.NoError(t, err)
	a := app.New(p, docLoader{doc: testDoc(1)}, charts.ChartJS{}, app.Options{Locale: render.DefaultLocale}, zerolog.Nop())
	require.NoError(t, a.Run(context.Background()))

	s := NewUIServer(Config{Address: "127.0.0.1:0"}, a, zerolog.Nop())

	w := get(t, s, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartShutdown(t *testing.T) {
	s, _ := setupTestServer(t, docLoader{doc: testDoc(1)})

	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, <-done)
}
