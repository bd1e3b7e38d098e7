// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// ErrNotFound marks an unresolvable settings reference. It is surfaced
// immediately and never retried.
var ErrNotFound = errors.New("not found")

// TransientError wraps a failure worth retrying: network errors, timeouts,
// and HTTP 429/5xx from the generation endpoint. Everything else (malformed
// responses, undecodable images, download failures) is final.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
