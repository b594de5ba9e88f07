// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrValidation       = errors.New("validation failed")
	ErrExpired          = errors.New("access token expired")
	ErrAlreadySubmitted = errors.New("quote already submitted")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrForbidden        = errors.New("forbidden")
	ErrUnauthorized     = errors.New("unauthorized")
)

// RateLimitError carries the retry-after hint alongside the rate-limit sentinel.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// RespondError maps domain errors to HTTP responses using RFC7807.
//
// Expired and already-submitted tokens both map to 410 Gone with a state
// discriminator so public callers can render the right message. Rate-limit
// errors set the Retry-After header when the error carries a hint.
func RespondError(w http.ResponseWriter, err error) {
	var rl *RateLimitError
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusBadRequest, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrExpired):
		JSON(w, http.StatusGone, ProblemDetail{
			Title:  "Gone",
			Status: http.StatusGone,
			Detail: "quote request link has expired",
			State:  "expired",
		})
	case errors.Is(err, ErrAlreadySubmitted):
		JSON(w, http.StatusGone, ProblemDetail{
			Title:  "Gone",
			Status: http.StatusGone,
			Detail: "quote has already been submitted",
			State:  "submitted",
		})
	case errors.As(err, &rl):
		retry := int(rl.RetryAfter.Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		JSON(w, http.StatusTooManyRequests, ProblemDetail{
			Title:      "Too Many Requests",
			Status:     http.StatusTooManyRequests,
			Detail:     "too many quote submissions from this address",
			RetryAfter: retry,
		})
	case errors.Is(err, ErrRateLimited):
		Problem(w, http.StatusTooManyRequests, "Too Many Requests", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
