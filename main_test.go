package main

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetrics = `{
  "total_citations": 1234567,
  "updated_at": "2024-05-01T12:30:00Z",
  "citations_by_year": [{"year": 2022, "citations": 10}, {"year": 2023, "citations": 25}],
  "papers": [
    {"title": "Test Paper 1", "url": "https://arxiv.org/abs/2301.12345", "year": 2023, "citations": 5, "arxiv": true},
    {"title": "Test Paper 2", "url": "https://aclanthology.org/2023.acl-long.123", "year": 2021, "citations": 20, "doi": "10.1/x"}
  ]
}`

// setupWorkspace creates a working directory with data/metrics.json and
// switches into it.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "metrics.json"), []byte(sampleMetrics), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCmd(&logs)
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), logs.String(), err
}

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestRenderCommand(t *testing.T) {
	dir := setupWorkspace(t)

	_, logs, err := execute(t, "render", "--out", "public/index.html")
	require.NoError(t, err)
	assert.Contains(t, logs, "wrote page")

	b, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	require.NoError(t, err)
	doc := parse(t, string(b))

	assert.Equal(t, "1,234,567", doc.Find("#statTotalCites").Text())
	assert.Equal(t, "2", doc.Find("#statPaperCount").Text())
	assert.Equal(t, "2024-05-01", doc.Find("#statUpdatedAt").Text())
	assert.Equal(t, "Test Paper 2", doc.Find("#pubsTableWrap tbody tr").First().Find("b").Text())
	_, ok := doc.Find("#chartTopPapers").Attr("data-chart")
	assert.True(t, ok)
}

func TestRenderCommand_SortAndStdout(t *testing.T) {
	setupWorkspace(t)

	out, _, err := execute(t, "render", "--out", "-", "--sort", "year_desc", "--backend", "image")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "Test Paper 1", doc.Find("#pubsTableWrap tbody tr").First().Find("b").Text())
	val, _ := doc.Find("#sortSelect option[selected]").Attr("value")
	assert.Equal(t, "year_desc", val)
	src, _ := doc.Find("#chartCitationsByYear img").Attr("src")
	assert.True(t, strings.HasPrefix(src, "data:image/png;base64,"))
}

func TestRenderCommand_UnknownSortFallsBack(t *testing.T) {
	setupWorkspace(t)

	out, _, err := execute(t, "render", "--out", "-", "--sort", "newest")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "Test Paper 2", doc.Find("#pubsTableWrap tbody tr").First().Find("b").Text())
	assert.Equal(t, 0, doc.Find("#sortSelect option[selected]").Length())
}

func TestRenderCommand_LoadFailure(t *testing.T) {
	setupWorkspace(t)

	out, logs, err := execute(t, "render", "--out", "-", "--data", "data/missing.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load data/missing.json: 404")
	assert.Contains(t, logs, "failed to render metrics")

	doc := parse(t, out)
	assert.Equal(t, "Failed to load metrics. Check data/metrics.json and console.", doc.Find("#pubsTableWrap p.muted").Text())
}

func TestRenderCommand_InvalidBackend(t *testing.T) {
	setupWorkspace(t)

	_, _, err := execute(t, "render", "--backend", "svg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charts.backend")
}

func TestRenderCommand_ConfigFile(t *testing.T) {
	dir := setupWorkspace(t)
	cfgPath := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("site:\n  title: Lab Metrics\nrender:\n  output: out.html\n"), 0o644))

	_, _, err := execute(t, "--config", cfgPath, "render")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "out.html"))
	require.NoError(t, err)
	assert.Equal(t, "Lab Metrics", parse(t, string(b)).Find("title").Text())
}

func TestRenderCommand_SQLiteSource(t *testing.T) {
	dir := setupWorkspace(t)

	db, err := sql.Open("sqlite3", filepath.Join(dir, "paper_cache.db"))
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE paper_cache (
			title TEXT NOT NULL,
			url TEXT PRIMARY KEY,
			citations INTEGER,
			arxiv_abs_url TEXT,
			google_scholar_url TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
			arxiv_summary TEXT
		);
		INSERT INTO paper_cache (title, url, citations, arxiv_abs_url, google_scholar_url, timestamp)
		VALUES ('Cached Paper', 'https://arxiv.org/abs/1', 42, 'https://arxiv.org/abs/1', 'https://scholar.google.com/x', '2024-03-23 10:00:00');
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, _, err := execute(t, "render", "--out", "-", "--data", "sqlite://paper_cache.db")
	require.NoError(t, err)

	doc := parse(t, out)
	assert.Equal(t, "42", doc.Find("#statTotalCites").Text())
	assert.Equal(t, "2024-03-23", doc.Find("#statUpdatedAt").Text())
	assert.Contains(t, doc.Find("#pubsTableWrap").Text(), "Google Scholar")
}

func TestServeCommand_InvalidAddr(t *testing.T) {
	setupWorkspace(t)

	_, _, err := execute(t, "serve", "--addr", "no-port")
	assert.Error(t, err)
}

func TestRootCommand_Help(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "render")
	assert.Contains(t, out, "serve")
}

func TestServeCommand_HelpNotesSharedSort(t *testing.T) {
	out, _, err := execute(t, "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "All clients share one rendered page")
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
