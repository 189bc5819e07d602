// ABOUTME: Retry loop for Spotify requests with exponential backoff and Retry-After support
// ABOUTME: Only transport errors, 429 and 5xx responses are retried; every attempt waits for the rate limiter

package spotify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

const defaultBackoffMs = 500

// doRequestWithRetry sends req once plus up to c.maxRetries retries of transport
// errors, 429 and 5xx responses, with exponential backoff honouring Retry-After.
// Each attempt waits for the rate limiter. The final retryable response is
// returned as is so the caller can report its status.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	attempts := max(c.maxRetries, 0) + 1

	baseBackoff := c.baseBackoff
	if baseBackoff <= 0 {
		baseBackoff = time.Duration(defaultBackoffMs) * time.Millisecond
	}

	if req.Body != nil && req.GetBody == nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("spotify adapter: read request body: %w", err)
		}
		_ = req.Body.Close()
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(bodyBytes)), nil
		}
	}

	ctx := req.Context()
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("spotify adapter: request canceled: %w", err)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("spotify adapter: rate limit: %w", err)
		}

		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("spotify adapter: reset request body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.httpClient.Do(req)
		retryAfter, retry := shouldRetry(resp, err)
		if !retry {
			return resp, err
		}

		if attempt == attempts-1 {
			if err != nil {
				return nil, fmt.Errorf("spotify adapter: request failed after %d attempts: %w", attempts, err)
			}
			return resp, nil
		}

		if err != nil {
			log.Printf("WARN spotify: retry attempt %d/%d after error: %v", attempt+1, attempts, err)
		} else {
			log.Printf("WARN spotify: retry attempt %d/%d after status %d", attempt+1, attempts, resp.StatusCode)
			_ = resp.Body.Close()
		}

		backoff := baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}

		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("spotify adapter: request failed after %d attempts", attempts)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}

	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("spotify adapter: request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
