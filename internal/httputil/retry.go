// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// transient failures. Tests override this to avoid real sleeps.
var RetryBaseDelay = 3 * time.Second

const defaultMaxAttempts = 3

// RetryableStatus reports whether an HTTP status is worth retrying:
// 429 (rate limited) and all 5xx responses.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// PostJSON sends payload as a JSON POST and retries transient failures
// (network errors, timeouts, 429, 5xx) with exponential backoff starting
// at RetryBaseDelay. maxAttempts is the total attempt budget including the
// first try; 0 or less means the default (3).
//
// Retry progress is logged to w with attempt counts. Before each retry the
// previous response body is drained and closed. If the context is cancelled
// during a backoff wait the function returns ctx.Err(). When the budget is
// exhausted the last failing response is returned as-is so the caller can
// inspect it; an exhausted run of network errors returns a TransientError.
// Any non-retryable status returns immediately with the response.
func PostJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload any, maxAttempts int, w io.Writer) (*http.Response, int, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding request payload: %w", err)
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, attempt, fmt.Errorf("creating request: %w", err)
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err == nil && !RetryableStatus(resp.StatusCode) {
			return resp, attempt, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
		}

		// Budget exhausted: hand the last outcome to the caller.
		if attempt >= maxAttempts {
			if err != nil {
				return nil, attempt, &types.TransientError{Err: fmt.Errorf("after %d attempts: %w", attempt, err)}
			}
			return resp, attempt, nil
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * RetryBaseDelay
		fmt.Fprintf(w, "  attempt %d/%d failed (%v), retrying in %v\n", attempt, maxAttempts, lastErr, backoff)

		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
