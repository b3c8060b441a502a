package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"beer-and-hike/backend/internal/constants"

	"golang.org/x/time/rate"
)

// maxPageBytes bounds a single upstream page body
const maxPageBytes = 64 << 20

// ErrItemRejected marks an upstream item that was skipped during normalization
var ErrItemRejected = errors.New("item rejected")

// RejectError explains why one upstream item was skipped
type RejectError struct {
	Reason string
	Detail string
}

func (e *RejectError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("item rejected: %s", e.Reason)
	}
	return fmt.Sprintf("item rejected: %s: %s", e.Reason, e.Detail)
}

// Is lets callers match any RejectError with errors.Is(err, ErrItemRejected)
func (e *RejectError) Is(target error) bool {
	return target == ErrItemRejected
}

func reject(reason string, format string, args ...interface{}) *RejectError {
	return &RejectError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ProviderError represents a page-level upstream failure
type ProviderError struct {
	Code       string
	Message    string
	Details    string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the ProviderError code from err, or "UNKNOWN"
func ErrorCode(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return "UNKNOWN"
}

// NewUpstreamLimiter paces page requests to rps. Zero or less means unlimited.
func NewUpstreamLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// pageClient performs paced GET requests for one upstream
type pageClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newPageClient(timeout time.Duration, limiter *rate.Limiter) pageClient {
	if limiter == nil {
		limiter = NewUpstreamLimiter(0)
	}
	return pageClient{
		client: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// get fetches url and returns the body of a 2xx response
func (c pageClient) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeRequestCancelled,
			Message: constants.GetErrorMessage(constants.ErrCodeRequestCancelled),
			Err:     err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to create request",
			Err:     err,
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		code := constants.ErrCodeNetworkError
		if errors.Is(err, context.Canceled) {
			code = constants.ErrCodeRequestCancelled
		}
		return nil, &ProviderError{
			Code:    code,
			Message: constants.GetErrorMessage(code),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	if err := handleHTTPError(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &ProviderError{
			Code:    constants.ErrCodeNetworkError,
			Message: "Failed to read response body",
			Err:     err,
		}
	}
	return body, nil
}

// handleHTTPError converts non-2xx responses to ProviderError
func handleHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return &ProviderError{
			Code:       constants.ErrCodeRateLimited,
			Message:    constants.GetErrorMessage(constants.ErrCodeRateLimited),
			Details:    string(body),
			StatusCode: resp.StatusCode,
		}
	default:
		return &ProviderError{
			Code:       constants.ErrCodeUpstreamStatus,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
			Details:    string(body),
			StatusCode: resp.StatusCode,
		}
	}
}
