package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/metrics"
	"RingsideSync/internal/ports"
)

const defaultMaxBodyBytes = 10 << 20

// Options tunes timeouts and retries of the HTTP fetcher.
type Options struct {
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	UserAgent    string
	MaxBodyBytes int64
}

// HTTPFetcher retrieves feed payloads over HTTP(S).
type HTTPFetcher struct {
	client   *http.Client
	opts     Options
	recorder ports.LatencyRecorder
	logger   *slog.Logger
}

var _ ports.FeedFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client; recorder may be nil.
func NewHTTPFetcher(client *http.Client, opts Options, recorder ports.LatencyRecorder, log *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "RingsideSync/1.0"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &HTTPFetcher{client: client, opts: opts, recorder: recorder, logger: log}
}

// Fetch downloads the source payload, retrying transient failures.
func (f *HTTPFetcher) Fetch(ctx context.Context, src domain.Source) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= f.opts.Retries; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, f.opts.RetryDelay); err != nil {
				return nil, domain.ErrTimeout.Wrap(err)
			}
			f.debug("retry fetch", "source", src.Name, "attempt", attempt, "error", lastErr)
		}

		body, err := f.attempt(ctx, src)
		if err == nil {
			return body, nil
		}
		lastErr = err
		metrics.FetchErrors.WithLabelValues(src.Name, errorKind(err)).Inc()
		if !Retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func (f *HTTPFetcher) attempt(ctx context.Context, src domain.Source) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/json, application/xml;q=0.9, */*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.record(src.Name, time.Since(start))
		return nil, &domain.HTTPError{Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, classify(ctx, err)
	}
	f.record(src.Name, time.Since(start))

	if int64(len(body)) > f.opts.MaxBodyBytes {
		return nil, domain.ErrMalformedDocument.New("payload exceeds %d bytes", f.opts.MaxBodyBytes)
	}
	return body, nil
}

func (f *HTTPFetcher) record(source string, d time.Duration) {
	metrics.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
	if f.recorder != nil {
		f.recorder.RecordLatency(source, d)
	}
}

// Retryable reports whether a fetch error is worth another attempt.
func Retryable(err error) bool {
	if domain.ErrTimeout.Has(err) || domain.ErrNetworkUnreachable.Has(err) {
		return true
	}
	var httpErr *domain.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Transient()
	}
	return false
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout.Wrap(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrTimeout.Wrap(err)
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrTimeout.Wrap(err)
	}
	return domain.ErrNetworkUnreachable.Wrap(err)
}

func errorKind(err error) string {
	var httpErr *domain.HTTPError
	switch {
	case domain.ErrTimeout.Has(err):
		return "timeout"
	case domain.ErrNetworkUnreachable.Has(err):
		return "unreachable"
	case errors.As(err, &httpErr):
		return "http"
	default:
		return "other"
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *HTTPFetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
