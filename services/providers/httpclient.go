package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"lyrics-resolver-go/logcolors"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	// DefaultRetryAfter is the back-off used when a 429 carries no Retry-After header
	DefaultRetryAfter = 1 * time.Second

	// MaxRetryAfter caps how long a provider call waits before its single retry
	MaxRetryAfter = 2 * time.Second

	// MaxResponseBytes caps how much of a provider response body is read
	MaxResponseBytes = 4 << 20

	defaultUserAgent = "lyrics-resolver-go/1.0 (+https://github.com/lyrics-resolver-go)"
)

// HTTPClient is the outbound client shared by the HTTP adapters of one provider.
// It paces requests with a token bucket and backs off once on 429.
type HTTPClient struct {
	provider  string
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewHTTPClient creates a client for provider allowing rps requests per second
func NewHTTPClient(provider string, timeout time.Duration, rps float64, burst int) *HTTPClient {
	if burst <= 0 {
		burst = 1
	}
	return &HTTPClient{
		provider:  provider,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		userAgent: defaultUserAgent,
		maxBody:   MaxResponseBytes,
		sleep:     sleepContext,
	}
}

// Get performs a GET request and returns the body of a 2xx response.
// Every failure is returned as a *ProviderError.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, status, retryAfter, err := c.do(ctx, url, headers)
	if err != nil {
		return nil, err
	}

	if status == http.StatusTooManyRequests {
		log.Warnf("%s %s rate limited, retrying in %v", logcolors.LogBackoff, c.provider, retryAfter)
		if err := c.sleep(ctx, retryAfter); err != nil {
			return nil, NewProviderError(c.provider, ReasonTimeout, "cancelled during back-off", err)
		}
		body, status, _, err = c.do(ctx, url, headers)
		if err != nil {
			return nil, err
		}
		if status == http.StatusTooManyRequests {
			return nil, NewProviderError(c.provider, ReasonRateLimited, "too many requests", nil)
		}
	}

	switch {
	case status == http.StatusNotFound:
		return nil, NewProviderError(c.provider, ReasonNotFound, "no lyrics for this track", nil)
	case status < 200 || status > 299:
		return nil, NewProviderError(c.provider, ReasonHTTPStatus, fmt.Sprintf("API returned status %d", status), nil)
	}

	return body, nil
}

func (c *HTTPClient) do(ctx context.Context, url string, headers map[string]string) ([]byte, int, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, 0, NewProviderError(c.provider, ReasonTimeout, "cancelled while waiting for rate limiter", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, 0, NewProviderError(c.provider, ReasonNetwork, "failed to create request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
			(errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, 0, 0, NewProviderError(c.provider, ReasonTimeout, "request timed out", err)
		}
		return nil, 0, 0, NewProviderError(c.provider, ReasonNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, 0, 0, NewProviderError(c.provider, ReasonNetwork, "failed to read response", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, 0, 0, NewProviderError(c.provider, ReasonParse, fmt.Sprintf("response exceeds %d bytes", c.maxBody), nil)
	}

	return body, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

// parseRetryAfter reads a delay-seconds Retry-After value, capped at MaxRetryAfter
func parseRetryAfter(value string) time.Duration {
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		return DefaultRetryAfter
	}
	d := time.Duration(secs) * time.Second
	if d > MaxRetryAfter {
		return MaxRetryAfter
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
