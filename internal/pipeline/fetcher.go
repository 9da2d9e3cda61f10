package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ppiankov/openinfo/internal/cache"
	"github.com/ppiankov/openinfo/internal/model"
	"github.com/ppiankov/openinfo/internal/throttle"
	"github.com/ppiankov/openinfo/internal/util"
	"github.com/rs/zerolog"
)

// fetchSleepFunc is the sleep function used between retries (injectable for tests)
var fetchSleepFunc = time.Sleep

// ErrDisallowed is returned when robots.txt forbids a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Fetcher is the portal session: one cookie jar, a bounded redirect policy,
// per-host pacing and an optional page cache
type Fetcher struct {
	client     *resty.Client
	base       *url.URL
	homeURL    string
	limiter    *throttle.Limiter
	robots     *util.RobotsChecker
	cache      cache.Cache
	maxBytes   int64
	maxRetries int
}

// NewFetcher builds the session from configuration. pageCache may be nil.
func NewFetcher(cfg *model.Config, pageCache cache.Cache) (*Fetcher, error) {
	base, err := url.Parse(cfg.Portal.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetTimeout(cfg.HTTP.Timeout)
	client.SetHeader("User-Agent", cfg.HTTP.UserAgent)
	client.SetHeader("Accept-Language", "en-CA,en;q=0.9")
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.HTTP.MaxRedirects))
	client.SetTransport(&http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy),
	})

	if pageCache == nil {
		pageCache = cache.Nop{}
	}

	f := &Fetcher{
		client:     client,
		base:       base,
		homeURL:    cfg.Portal.HomeURL,
		limiter:    throttle.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		cache:      pageCache,
		maxBytes:   cfg.HTTP.MaxBodyBytes,
		maxRetries: cfg.HTTP.MaxRetries,
	}
	if f.maxRetries <= 0 {
		f.maxRetries = 1
	}
	if cfg.HTTP.RespectRobots {
		f.robots = util.NewRobotsChecker(client.GetClient(), cfg.HTTP.UserAgent)
	}
	return f, nil
}

// BaseURL is the origin relative portal links resolve against
func (f *Fetcher) BaseURL() *url.URL {
	return f.base
}

// Bootstrap opens the session by visiting the portal home page, which sets
// the cookies later searches depend on
func (f *Fetcher) Bootstrap(ctx context.Context) error {
	if f.homeURL == "" {
		return nil
	}
	if _, err := f.get(ctx, f.homeURL); err != nil {
		return fmt.Errorf("bootstrap session: %w", err)
	}
	return nil
}

// Fetch returns the body of an HTML page, from the page cache when possible
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	key := cache.PageKey(rawURL)
	if body, ok := f.cache.Get(key); ok {
		zerolog.Ctx(ctx).Debug().Str("url", rawURL).Msg("Page cache hit")
		return body, nil
	}

	body, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Set(key, body, 0); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("url", rawURL).Msg("Page cache write failed")
	}
	return body, nil
}

// FetchWithRetry retries transient failures with exponential backoff
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxRetries; attempt++ {
		body, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		if attempt < f.maxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			zerolog.Ctx(ctx).Debug().Err(err).Str("url", rawURL).Dur("backoff", backoff).Msg("Retrying")
			fetchSleepFunc(backoff)
		}
	}
	return nil, lastErr
}

// Download streams a document. rawURL may be relative to the portal and may
// contain unescaped characters such as spaces. A 404 wraps model.ErrDownload.
func (f *Fetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	target, err := f.resolve(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDownload, err)
	}
	if err := f.admit(ctx, target); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrDownload, err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(target)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", model.ErrDownload, target, err)
	}

	body := resp.RawBody()
	if resp.StatusCode() == http.StatusNotFound {
		_ = body.Close()
		return nil, fmt.Errorf("%w: 404 %s", model.ErrDownload, target)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		_ = body.Close()
		return nil, fmt.Errorf("%w: unexpected status: %s %s", model.ErrDownload, resp.Status(), target)
	}
	return body, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.admit(ctx, rawURL); err != nil {
		return nil, err
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode(), resp.Status())
	}

	body := resp.Body()
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body: %s exceeds %d bytes", rawURL, f.maxBytes)
	}
	return body, nil
}

// admit applies robots.txt and pacing before a request
func (f *Fetcher) admit(ctx context.Context, rawURL string) error {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if delay > 0 {
			if parsed, err := url.Parse(rawURL); err == nil {
				f.limiter.SetCrawlDelay(parsed.Host, delay)
			}
		}
	}
	return f.limiter.Wait(ctx, rawURL)
}

// resolve makes a link absolute against the portal and escapes it
func (f *Fetcher) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", rawURL, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// isRetryableFetchError returns true for transient failures
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, code := range []string{"status: 500", "status: 502", "status: 503", "status: 504", "status: 429"} {
		if strings.Contains(s, code) {
			return true
		}
	}
	s = strings.ToLower(s)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
