package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v82/github"
)

// AuthenticationError means GitHub rejected the token. Every later call with
// the same credentials would fail the same way.
type AuthenticationError struct {
	Op  string
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("github: %s: credentials rejected: %v", e.Op, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// RateLimitError is surfaced as-is; nothing waits for the reset.
type RateLimitError struct {
	Op      string
	ResetAt time.Time
	Err     error
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("github: %s: rate limited: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("github: %s: rate limited until %s", e.Op, e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// PublishError is a failed topic replacement for a single repository.
type PublishError struct {
	Repo       string
	StatusCode int
	Err        error
}

func (e *PublishError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("publishing topics for %s: status %d: %v", e.Repo, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("publishing topics for %s: %v", e.Repo, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// wrapError converts go-github errors to our error types.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &RateLimitError{Op: op, ResetAt: rateErr.Rate.Reset.Time, Err: err}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		rle := &RateLimitError{Op: op, Err: err}
		if abuseErr.RetryAfter != nil {
			rle.ResetAt = time.Now().Add(*abuseErr.RetryAfter)
		}
		return rle
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusUnauthorized {
		return &AuthenticationError{Op: op, Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

// IsFatal reports whether err should stop the whole run rather than just the
// current repository.
func IsFatal(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}
