// Bounded HTTP downloader.
//
// Information Hiding:
// - HTTP client, transport and redirect policy hidden
// - Rate limiting and retry/backoff hidden
// - Byte budget enforced while streaming, never after buffering

package source

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/richinex/pdfmcp/internal/errors"
	"github.com/richinex/pdfmcp/security"
)

const (
	// DefaultMaxDownloadBytes is the default download limit (100 MiB).
	DefaultMaxDownloadBytes int64 = 100 * 1024 * 1024
	// DefaultDownloadTimeout bounds a whole request including the body.
	DefaultDownloadTimeout = 60 * time.Second
	// DefaultDownloadAttempts is the number of tries for transient failures.
	DefaultDownloadAttempts = 3

	maxRedirects = 5
	userAgent    = "pdfmcp/1.0"
)

// DownloadOptions configures a Downloader.
type DownloadOptions struct {
	MaxBytes          int64
	Timeout           time.Duration
	Attempts          int
	RequestsPerSecond float64 // 0 disables rate limiting
	Burst             int
}

// Downloader fetches remote documents through the SSRF guard.
type Downloader struct {
	client   *http.Client
	guard    *security.Guard
	limiter  *rate.Limiter
	maxBytes int64
	attempts int
	logger   zerolog.Logger
}

// NewDownloader creates a downloader whose connections are dialed by guard.
func NewDownloader(guard *security.Guard, opts DownloadOptions, logger zerolog.Logger) *Downloader {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxDownloadBytes
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDownloadTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultDownloadAttempts
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	transport := &http.Transport{
		// No proxy: a proxy would dial on our behalf and bypass the guard.
		Proxy:                 nil,
		DialContext:           guard.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &Downloader{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return apperrors.New(apperrors.KindNetwork, "too many redirects")
				}
				if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
					return apperrors.New(apperrors.KindInvalidArgument, "redirect to unsupported scheme")
				}
				return nil
			},
		},
		guard:    guard,
		limiter:  limiter,
		maxBytes: opts.MaxBytes,
		attempts: opts.Attempts,
		logger:   logger.With().Str("component", "downloader").Logger(),
	}
}

// MaxBytes returns the configured byte limit.
func (d *Downloader) MaxBytes() int64 {
	return d.maxBytes
}

// Fetch downloads rawURL. The host is checked by the guard and the checked
// addresses are pinned for the connection. The body is read through a byte
// counter and the transfer aborts as soon as the limit is exceeded.
func (d *Downloader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	host, addrs, err := d.guard.CheckURL(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	ctx = security.PinAddrs(ctx, host, addrs)

	var lastErr error
	for attempt := 0; attempt < d.attempts; attempt++ {
		if attempt > 0 {
			backoff := calculateBackoff(attempt)
			d.logger.Debug().Str("host", host).Int("attempt", attempt+1).Dur("backoff", backoff).Err(lastErr).Msg("retrying download")
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(apperrors.KindNetwork, "download cancelled", ctx.Err())
			case <-time.After(backoff):
			}
		}

		data, err := d.fetchOnce(ctx, rawURL)
		if err == nil {
			return data, nil
		}
		if !shouldRetry(ctx, err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.KindNetwork, "download rate limit wait failed", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidArgument, "invalid URL", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/pdf, */*;q=0.5")

	resp, err := d.client.Do(req)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindInternal {
			return nil, err
		}
		return nil, &transientError{apperrors.Wrap(apperrors.KindNetwork, "request failed", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := apperrors.Newf(apperrors.KindNetwork, "unexpected HTTP status", "status=%d url=%s", resp.StatusCode, rawURL)
		if resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout {
			return nil, &transientError{statusErr}
		}
		return nil, statusErr
	}

	if resp.ContentLength > d.maxBytes {
		return nil, apperrors.Newf(apperrors.KindDownloadTooLarge, "download too large", "content_length=%d max=%d url=%s", resp.ContentLength, d.maxBytes, rawURL)
	}

	return readLimited(resp.Body, d.maxBytes, resp.ContentLength)
}

// readLimited reads r until EOF, failing once more than max bytes arrive.
func readLimited(r io.Reader, max, hint int64) ([]byte, error) {
	var buf bytes.Buffer
	if hint > 0 && hint <= max {
		buf.Grow(int(hint))
	}
	counter := &countingReader{r: io.LimitReader(r, max+1)}
	if _, err := buf.ReadFrom(counter); err != nil {
		return nil, apperrors.Wrap(apperrors.KindNetwork, "failed to read response body", err)
	}
	if counter.n > max {
		return nil, apperrors.Newf(apperrors.KindDownloadTooLarge, "download too large", "received>%d max=%d", max, max)
	}
	return buf.Bytes(), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var transient *transientError
	return errors.As(err, &transient)
}

// calculateBackoff returns the exponential backoff for the given attempt.
func calculateBackoff(attempt int) time.Duration {
	const (
		baseDelay = 100 * time.Millisecond
		maxDelay  = 5 * time.Second
	)
	delay := baseDelay * time.Duration(1<<attempt)
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
