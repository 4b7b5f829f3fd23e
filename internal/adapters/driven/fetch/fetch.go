// Package fetch implements the HTTP fetcher behind every scraper: one
// rate-limited client with an optional on-disk page cache.
//
// The cache keys pages by the MD5 of the request URL and keeps a JSON
// metadata sidecar per page plus a per-day listing file, so a crawl can
// be replayed or inspected without touching the sites again.
package fetch

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"

	"github.com/ifhub-labs/ifimport/internal/core/ports/driven"
	"github.com/ifhub-labs/ifimport/internal/logger"
	"github.com/ifhub-labs/ifimport/internal/urlkit"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRate is the default request rate in requests per second.
	// The sites we crawl are small community servers.
	DefaultRate = 1.0

	// DefaultUserAgent identifies the crawler to site operators.
	DefaultUserAgent = "ifimport-crawler/1.0"

	// maxBodySize caps a fetched page at 16 MiB.
	maxBodySize = 16 << 20
)

// Ensure HTTPFetcher implements the interface.
var _ driven.Fetcher = (*HTTPFetcher)(nil)

// metadata is the JSON sidecar written next to every cached page.
type metadata struct {
	URL         string `json:"url"`
	Time        string `json:"time"`
	ContentType string `json:"content-type"`
}

// Options configures an HTTPFetcher.
type Options struct {
	// CacheDir is where fetched pages are cached. Empty disables the
	// cache entirely.
	CacheDir string

	// Timeout bounds a single request. Zero means DefaultTimeout.
	Timeout time.Duration

	// RatePerSecond throttles outgoing requests. Zero means
	// DefaultRate; negative disables throttling.
	RatePerSecond float64

	// UserAgent overrides DefaultUserAgent when non-empty.
	UserAgent string
}

// HTTPFetcher fetches pages over HTTP with throttling and caching.
// Safe for concurrent use.
type HTTPFetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	cacheDir  string
	userAgent string
}

// New creates a fetcher. If opts.CacheDir is non-empty it is created
// on first use.
func New(opts Options) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	perSec := opts.RatePerSecond
	if perSec == 0 {
		perSec = DefaultRate
	}
	var limiter *rate.Limiter
	if perSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
	agent := opts.UserAgent
	if agent == "" {
		agent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   limiter,
		cacheDir:  opts.CacheDir,
		userAgent: agent,
	}
}

// Fetch retrieves the URL and returns the page decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, opts driven.FetchOptions) (string, error) {
	quoted := urlkit.QuoteUTF8(url)

	body, err := f.fetchRaw(ctx, quoted, opts.NoCache)
	if err != nil {
		return "", err
	}
	return decode(body, opts.Encoding)
}

// fetchRaw returns the raw page bytes, from cache when possible.
func (f *HTTPFetcher) fetchRaw(ctx context.Context, url string, noCache bool) ([]byte, error) {
	if f.cacheDir == "" || noCache {
		body, _, err := f.download(ctx, url)
		return body, err
	}

	urlHash := hashURL(url)
	pagePath := filepath.Join(f.cacheDir, urlHash)
	metaPath := pagePath + ".meta"

	if _, err := os.Stat(metaPath); err == nil {
		body, err := os.ReadFile(pagePath)
		if err == nil {
			logger.Debug("Cache hit: %s", url)
			return body, nil
		}
		logger.Warn("Cache entry for %s unreadable: %v", url, err)
	}

	body, contentType, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}
	f.cachePut(url, urlHash, body, contentType)
	return body, nil
}

func (f *HTTPFetcher) download(ctx context.Context, url string) ([]byte, string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}
	logger.Info("Fetching: %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// cachePut stores a page, its metadata sidecar and a line in today's
// listing. Cache failures are logged, never fatal.
func (f *HTTPFetcher) cachePut(url, urlHash string, body []byte, contentType string) {
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		logger.Warn("Cannot create cache dir %s: %v", f.cacheDir, err)
		return
	}

	pagePath := filepath.Join(f.cacheDir, urlHash)
	if err := os.WriteFile(pagePath, body, 0o644); err != nil {
		logger.Warn("Cannot cache %s: %v", url, err)
		return
	}

	meta := metadata{
		URL:         url,
		Time:        time.Now().UTC().Format(time.RFC3339),
		ContentType: contentType,
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		err = os.WriteFile(pagePath+".meta", raw, 0o644)
	}
	if err != nil {
		logger.Warn("Cannot write cache metadata for %s: %v", url, err)
		os.Remove(pagePath)
		return
	}

	listing := filepath.Join(f.cacheDir, time.Now().UTC().Format("2006-01-02")+".list")
	file, err := os.OpenFile(listing, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Warn("Cannot open cache listing: %v", err)
		return
	}
	defer file.Close()
	fmt.Fprintf(file, "%s %s\n", urlHash, url)
}

// ResolveRedirect performs a GET and returns the final URL after any
// redirects. Some catalogues hide the real game page behind one.
func (f *HTTPFetcher) ResolveRedirect(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlkit.QuoteUTF8(url), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return resp.Request.URL.String(), nil
}

func hashURL(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// decode converts page bytes to a UTF-8 string. The empty encoding
// means the page is already UTF-8.
func decode(body []byte, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return string(body), nil
	case "cp1251", "windows-1251", "win1251":
		decoded, err := charmap.Windows1251.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("decode cp1251: %w", err)
		}
		return string(decoded), nil
	case "koi8-r", "koi8r":
		decoded, err := charmap.KOI8R.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("decode koi8-r: %w", err)
		}
		return string(decoded), nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}
