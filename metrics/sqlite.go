package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// cacheTimestampLayout is the layout SQLite uses for CURRENT_TIMESTAMP.
const cacheTimestampLayout = "2006-01-02 15:04:05"

// scholarSource labels papers whose count came from a Google Scholar page.
const scholarSource = "Google Scholar"

// PaperCache reads the paper_cache table written by the citation scraper.
// The database is opened read-only.
type PaperCache struct {
	db *sql.DB
}

// OpenPaperCache opens the cache database at dbPath in read-only mode.
func OpenPaperCache(dbPath string) (*PaperCache, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		return nil, err
	}
	return &PaperCache{db: db}, nil
}

// Close closes the database connection
func (c *PaperCache) Close() error {
	return c.db.Close()
}

// Document projects every cached paper into a metrics document.
func (c *PaperCache) Document(ctx context.Context) (*Document, error) {
	query := `
		SELECT title, url, citations, arxiv_abs_url, google_scholar_url, timestamp
		FROM paper_cache
		ORDER BY CASE WHEN citations IS NULL THEN 1 ELSE 0 END, citations DESC
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	doc := &Document{Papers: []Paper{}, CitationsByYear: []YearCount{}}
	var total float64
	var latest time.Time

	for rows.Next() {
		var title, url string
		var citations sql.NullInt64
		var arxivAbsURL, googleScholarURL, timestamp sql.NullString

		if err := rows.Scan(&title, &url, &citations, &arxivAbsURL, &googleScholarURL, &timestamp); err != nil {
			return nil, err
		}

		paper := Paper{
			Title: Str(title),
			URL:   Str(url),
			Arxiv: Flag(arxivAbsURL.Valid && arxivAbsURL.String != ""),
		}
		if citations.Valid {
			paper.Citations = Num(float64(citations.Int64))
			total += float64(citations.Int64)
		}
		if googleScholarURL.Valid && googleScholarURL.String != "" {
			paper.Source = Str(scholarSource)
		}

		if timestamp.Valid {
			if t, ok := parseCacheTimestamp(timestamp.String); ok && t.After(latest) {
				latest = t
			}
		}

		doc.Papers = append(doc.Papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	doc.TotalCitations = Num(total)
	if !latest.IsZero() {
		doc.UpdatedAt = Str(latest.UTC().Format(time.RFC3339))
	}
	return doc, nil
}

// parseCacheTimestamp accepts both the raw SQLite text form and the RFC 3339
// form the driver produces for DATETIME columns.
func parseCacheTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{cacheTimestampLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (l *Loader) loadSQLite(ctx context.Context, path string) (*Document, error) {
	dbPath := strings.TrimPrefix(path, sqliteScheme)
	if dbPath == "" {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("missing database file")}
	}
	if !filepath.IsAbs(dbPath) && l.root != "" {
		dbPath = filepath.Join(l.root, dbPath)
	}

	l.logger.Debug().Str("db", dbPath).Msg("reading paper cache")

	cache, err := OpenPaperCache(dbPath)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer cache.Close()

	doc, err := cache.Document(ctx)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	l.logger.Debug().Str("path", path).Int("papers", len(doc.Papers)).Msg("paper cache loaded")
	return doc, nil
}
