package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/serodriguez/tocbuilder/internal/vision"
)

// MaxAttempts bounds the per-page retry of transient vision failures.
// A page that exhausts its attempts is reported once as a page-level
// failure; retries never double-count a page in aggregation.
const MaxAttempts = 3

// Base delay between attempts, doubled per attempt by retry-go.
// Variable so tests don't sleep for real.
var retryBaseDelay = 1 * time.Second

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *vision.RetryableError
	return errors.As(err, &retryErr)
}

// extractWithRetry applies the bounded retry policy to one page's
// vision call. It sits outside the pool's dispatch loop so the policy
// can change without touching worker scheduling.
func extractWithRetry(ctx context.Context, ex Extractor, image []byte, model string) (string, error) {
	var fragment string
	err := retry.Do(
		func() error {
			var err error
			fragment, err = ex.ExtractPage(ctx, image, model)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(MaxAttempts),
		retry.RetryIf(IsRetryable),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(30*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return fragment, nil
}
