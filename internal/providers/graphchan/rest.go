package graphchan

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/littlecapa/finbox/internal/sweep"
)

// maxAttempts bounds the retry budget for rate-limited and 5xx responses.
const maxAttempts = 5

// get issues an authenticated GET with bounded retries. 429 sleeps for the
// service-provided Retry-After; 5xx backs off linearly; any other
// non-success status fails immediately with the status attached.
func (c *Client) get(ctx context.Context, url string, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return sweep.WrapError(sweep.KindFetchFailed, err, "decoding graph response from %s", url)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, url string) ([]byte, error) {
	if c.token == "" {
		return nil, sweep.NewError(sweep.KindAuthFailed, "not authenticated")
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, sweep.WrapError(sweep.KindProtocol, err, "building request for %s", url)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, sweep.WrapError(sweep.KindProtocol, err, "calling %s", url)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := retryAfter(resp)
			drain(resp)
			c.log.WithField("attempt", attempt).Warnf("graph 429 rate limited, sleeping %s", delay)
			c.sleep(delay)
			continue

		case resp.StatusCode >= 500:
			drain(resp)
			delay := time.Duration(attempt) * time.Second
			c.log.WithField("attempt", attempt).Warnf("graph %d error, retrying in %s", resp.StatusCode, delay)
			c.sleep(delay)
			continue
		}

		body, err := readBody(resp)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, sweep.APIError(resp.StatusCode, "graph api error: %s", truncate(string(body), 500))
		}
		return body, nil
	}

	return nil, sweep.NewError(sweep.KindRateLimited, "exceeded %d attempts for %s", maxAttempts, url)
}

func retryAfter(resp *http.Response) time.Duration {
	if s := resp.Header.Get("Retry-After"); s != "" {
		if secs, err := strconv.Atoi(s); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 2 * time.Second
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sweep.WrapError(sweep.KindProtocol, err, "reading response body")
	}
	return body, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
