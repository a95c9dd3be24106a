package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RawRow is one undecoded provider record.
type RawRow map[string]any

// Error represents a failure reported by the provider sidecar.
type Error struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is transient (quota, upstream
// outage) rather than permanent (unknown table, bad filter).
func (e *Error) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsPermanent reports whether err is a provider error that retrying cannot
// fix. Network-level failures are never permanent.
func IsPermanent(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && !pe.IsRetryable()
}

type fetchResponse struct {
	Rows []RawRow `json:"rows"`
}

// Fetch returns all raw rows for a table within [start, end] (dates formatted
// YYYYMMDD by the caller). Results are paged with limit/offset until the
// sidecar returns a short page. Every page passes through the process-wide
// rate limiter.
func (c *Client) Fetch(ctx context.Context, table, start, end string, filters map[string]string) ([]RawRow, error) {
	var all []RawRow
	offset := 0
	for {
		page, err := c.fetchPage(ctx, table, start, end, filters, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < c.pageSize {
			return all, nil
		}
		offset += c.pageSize
	}
}

func (c *Client) fetchPage(ctx context.Context, table, start, end string, filters map[string]string, offset int) ([]RawRow, error) {
	q := url.Values{}
	q.Set("table", table)
	if start != "" {
		q.Set("start_date", start)
	}
	if end != "" {
		q.Set("end_date", end)
	}
	for k, v := range filters {
		q.Set(k, v)
	}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))

	body, err := c.doWithRetry(ctx, "/fetch", q)
	if err != nil {
		return nil, err
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal provider response: %w", err)
	}
	return resp.Rows, nil
}

// doRequest performs a single GET against the sidecar.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry. Permanent
// provider errors are returned immediately.
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int63n(int64(backoff)))
			c.logger.Debug("retrying provider call",
				"attempt", attempt,
				"backoff", jitter,
				"table", query.Get("table"),
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		body, err := c.doRequest(ctx, path, query)
		if err == nil {
			return body, nil
		}

		lastErr = err

		if IsPermanent(err) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
