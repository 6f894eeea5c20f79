package sources

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/siherrmann/trendsense/core/collect"
)

// defaultRetryAfter is used when a 429 response carries no Retry-After header
const defaultRetryAfter = 60 * time.Second

// statusToError maps an HTTP response status to the adapter error taxonomy:
// 429 becomes RateLimitedError with the declared retry time, auth failures
// are permanent, everything else non-2xx is a transient failure.
func statusToError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &collect.RateLimitedError{RetryAfter: retryAfter(resp)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &collect.SourceUnavailableError{
			Reason:    fmt.Sprintf("auth failure: %s", resp.Status),
			Permanent: true,
		}
	default:
		return &collect.SourceUnavailableError{Reason: fmt.Sprintf("unexpected status: %s", resp.Status)}
	}
}

// retryAfter parses the Retry-After header, falling back to the default
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return defaultRetryAfter
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return defaultRetryAfter
}
