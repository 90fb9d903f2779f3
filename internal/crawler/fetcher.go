package crawler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/alvmarrod/wiki-weaver/internal/config"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// LinkGetter retrieves the article links contained in a page
type LinkGetter interface {
	GetLinks(ctx context.Context, fullURL string) ([]string, error)
}

// FetchError reports a transport, status or body failure for a single page
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads wiki pages and extracts their article links.
// It is safe for concurrent use; all clones share one HTTP backend so
// connections are pooled across explorers.
type Fetcher struct {
	collector *colly.Collector
}

// NewFetcher creates a fetcher configured from cfg
func NewFetcher(cfg *config.Config) *Fetcher {
	f := &Fetcher{}
	f.setupColly(cfg)
	return f
}

// setupColly configures the base collector every fetch is cloned from
func (f *Fetcher) setupColly(cfg *config.Config) {
	f.collector = colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.MaxDepth(0), // The game decides what to visit
		colly.ParseHTTPErrorResponse(),
	)

	f.collector.SetRequestTimeout(time.Duration(cfg.RequestTimeoutMs) * time.Millisecond)
}

// GetLinks fetches fullURL and returns the main-namespace article links it contains.
// Non-2xx responses and transport failures are returned as *FetchError.
func (f *Fetcher) GetLinks(ctx context.Context, fullURL string) ([]string, error) {
	c := f.collector.Clone()
	c.Context = ctx

	var (
		status   int
		links    []string
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		if status < 200 || status > 299 {
			return
		}
		links, parseErr = ParsePage(bytes.NewReader(r.Body))
	})

	if err := c.Visit(fullURL); err != nil {
		return nil, &FetchError{URL: fullURL, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &FetchError{URL: fullURL, Err: fmt.Errorf("unexpected status %d %s", status, http.StatusText(status))}
	}
	if parseErr != nil {
		return nil, &FetchError{URL: fullURL, Err: parseErr}
	}

	logrus.Debugf("Fetched %s (status=%d, links=%d)", fullURL, status, len(links))

	return links, nil
}
