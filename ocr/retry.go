package ocr

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// RetryPolicy controls how engine requests are retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, the first one included.
	MaxAttempts int
	// WaitMin and WaitMax bound the exponential backoff between attempts.
	WaitMin time.Duration
	WaitMax time.Duration
	// RetryableStatus lists the response codes that trigger another attempt.
	// Connection errors always retry.
	RetryableStatus []int
}

// DefaultRetryPolicy returns three attempts with a 1s to 10s backoff on throttling and
// gateway errors.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		WaitMin:     1 * time.Second,
		WaitMax:     10 * time.Second,
		RetryableStatus: []int{
			http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// checkRetry retries connection errors and the configured status codes. Context
// cancellation stops retrying.
func (p RetryPolicy) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	return slices.Contains(p.RetryableStatus, resp.StatusCode), nil
}

// newClient builds a retrying HTTP client for this policy. A non-empty token is sent as a
// bearer credential on every attempt.
func (p RetryPolicy) newClient(logger *logrus.Entry, token string) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = max(p.MaxAttempts-1, 0)
	client.RetryWaitMin = p.WaitMin
	client.RetryWaitMax = p.WaitMax
	client.CheckRetry = p.checkRetry
	client.Backoff = retryablehttp.DefaultBackoff
	// Hand the final response back to the caller instead of a generic "giving up" error.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = logger
	client.HTTPClient.Transport = withBearer(client.HTTPClient.Transport, token)
	return client
}
