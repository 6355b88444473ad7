package domain

import (
	"fmt"
	"net/http"

	"github.com/zeebo/errs"
)

var (
	// ErrNetworkUnreachable marks transport failures before any response arrived.
	ErrNetworkUnreachable = errs.Class("network unreachable")
	// ErrTimeout marks fetches abandoned after their deadline.
	ErrTimeout = errs.Class("timeout")
	// ErrUnsupportedFormat marks payloads that match no known feed dialect.
	ErrUnsupportedFormat = errs.Class("unsupported format")
	// ErrMalformedDocument marks payloads of a known dialect that cannot be parsed.
	ErrMalformedDocument = errs.Class("malformed document")
	// ErrDomainSync marks a domain whose sources failed below the configured minimum.
	ErrDomainSync = errs.Class("domain sync")
)

// HTTPError is returned when a source answers with a non-2xx status.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %d %s", e.Status, http.StatusText(e.Status))
}

// Transient reports whether retrying the request can reasonably succeed.
func (e *HTTPError) Transient() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}
