package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RingsideSync/internal/domain"
)

type latencyLog struct {
	mu      sync.Mutex
	samples map[string]int
}

func (l *latencyLog) RecordLatency(source string, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.samples == nil {
		l.samples = map[string]int{}
	}
	l.samples[source]++
}

func source(endpoint string) domain.Source {
	return domain.Source{Name: "wire", Endpoint: endpoint, Tier: domain.Tier1}
}

func TestFetchReturnsBodyAndSendsUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "RingsideTest/1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("<rss/>"))
	}))
	defer srv.Close()

	rec := &latencyLog{}
	f := NewHTTPFetcher(srv.Client(), Options{Timeout: time.Second, UserAgent: "RingsideTest/1"}, rec, nil)

	body, err := f.Fetch(context.Background(), source(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "<rss/>", string(body))
	require.Equal(t, 1, rec.samples["wire"])
}

func TestFetchRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), Options{Timeout: time.Second, Retries: 2, RetryDelay: time.Millisecond}, nil, nil)
	body, err := f.Fetch(context.Background(), source(srv.URL))
	require.NoError(t, err)
	require.Equal(t, "ok", string(body))
	require.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), Options{Timeout: time.Second, Retries: 3}, nil, nil)
	_, err := f.Fetch(context.Background(), source(srv.URL))

	var httpErr *domain.HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusNotFound, httpErr.Status)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTPFetcher(srv.Client(), Options{Timeout: 50 * time.Millisecond}, nil, nil)
	_, err := f.Fetch(context.Background(), source(srv.URL))
	require.Error(t, err)
	require.True(t, domain.ErrTimeout.Has(err), "got %v", err)
}

func TestFetchUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	f := NewHTTPFetcher(nil, Options{Timeout: time.Second}, nil, nil)
	_, err := f.Fetch(context.Background(), source(endpoint))
	require.Error(t, err)
	require.True(t, domain.ErrNetworkUnreachable.Has(err), "got %v", err)
}

func TestFetchCapsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), Options{Timeout: time.Second, MaxBodyBytes: 16}, nil, nil)
	_, err := f.Fetch(context.Background(), source(srv.URL))
	require.True(t, domain.ErrMalformedDocument.Has(err))
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	require.True(t, Retryable(domain.ErrTimeout.New("x")))
	require.True(t, Retryable(domain.ErrNetworkUnreachable.New("x")))
	require.True(t, Retryable(&domain.HTTPError{Status: http.StatusTooManyRequests}))
	require.True(t, Retryable(&domain.HTTPError{Status: http.StatusBadGateway}))
	require.False(t, Retryable(&domain.HTTPError{Status: http.StatusForbidden}))
	require.False(t, Retryable(errors.New("boom")))
}
