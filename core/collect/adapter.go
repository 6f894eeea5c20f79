package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/siherrmann/trendsense/model"
)

// SourceAdapter is the per-source fetch contract. Implementations must
// return an empty slice for "no new items" and reserve errors for genuine
// fetch failure.
type SourceAdapter interface {
	Kind() model.SourceKind
	Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawItem, error)
}

// RateLimitedError signals the source asked us to back off until RetryAfter
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// SourceUnavailableError signals a fetch failure. Permanent failures
// (bad credentials, broken config) disable the source for the rest of the
// run instead of being retried.
type SourceUnavailableError struct {
	Reason    string
	Permanent bool
}

func (e *SourceUnavailableError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("source unavailable (permanent): %s", e.Reason)
	}
	return fmt.Sprintf("source unavailable: %s", e.Reason)
}
