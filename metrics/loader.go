package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/sent-hil/scholar-metrics/logging"
)

// sqliteScheme prefixes paths that point at a paper cache database.
const sqliteScheme = "sqlite://"

// LoaderConfig controls where relative document paths are resolved.
type LoaderConfig struct {
	// Root is the directory plain paths are read from.
	Root string
	// BaseURL, when set, turns relative paths into URLs fetched over HTTP.
	BaseURL string
	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration
}

// Loader fetches the metrics document. Each call performs exactly one read
// and never retries.
type Loader struct {
	client  *http.Client
	root    string
	baseURL string
	logger  zerolog.Logger
}

// NewLoader creates a loader. A nil client gets a default one bounded by
// cfg.Timeout.
func NewLoader(cfg LoaderConfig, client *http.Client, logger zerolog.Logger) *Loader {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Loader{
		client:  client,
		root:    cfg.Root,
		baseURL: cfg.BaseURL,
		logger:  logging.WithComponent(logger, "loader"),
	}
}

// Load fetches and decodes the document at path.
func (l *Loader) Load(ctx context.Context, path string) (*Document, error) {
	switch {
	case strings.HasPrefix(path, sqliteScheme):
		return l.loadSQLite(ctx, path)
	case isHTTP(path):
		return l.fetch(ctx, path, path)
	case l.baseURL != "":
		target, err := resolve(l.baseURL, path)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
		return l.fetch(ctx, path, target)
	default:
		return l.readFile(path)
	}
}

func (l *Loader) fetch(ctx context.Context, path, target string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Pragma", "no-cache")

	l.logger.Debug().Str("url", target).Msg("fetching metrics document")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Path: path, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("reading body: %w", err)}
	}
	return l.decode(path, body)
}

func (l *Loader) readFile(path string) (*Document, error) {
	full := path
	if !filepath.IsAbs(path) && l.root != "" {
		full = filepath.Join(l.root, path)
	}

	l.logger.Debug().Str("file", full).Msg("reading metrics document")

	body, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Path: path, Status: http.StatusNotFound, Err: err}
		}
		return nil, &LoadError{Path: path, Err: err}
	}
	return l.decode(path, body)
}

func (l *Loader) decode(path string, body []byte) (*Document, error) {
	doc, err := Decode(body)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	l.logger.Debug().
		Str("path", path).
		Str("size", humanize.Bytes(uint64(len(body)))).
		Int("papers", len(doc.Papers)).
		Msg("metrics document loaded")
	return doc, nil
}

// Decode parses a metrics document. Scalar fields are decoded leniently; only
// malformed JSON or a non-object document is an error.
func Decode(body []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("document is not a JSON object")
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	if doc.Papers == nil {
		doc.Papers = []Paper{}
	}
	if doc.CitationsByYear == nil {
		doc.CitationsByYear = []YearCount{}
	}
	return &doc, nil
}

func isHTTP(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

func resolve(base, path string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parsing path: %w", err)
	}
	return b.ResolveReference(ref).String(), nil
}
