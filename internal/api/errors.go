package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors for failures detected before or after the wire.
var (
	// ErrInvalidTaskID means an identifier failed the positive-integer
	// check; the request was never sent.
	ErrInvalidTaskID = errors.New("invalid task ID")

	// ErrBadShape means the response body did not match the expected
	// shape. Distinct from a network failure: callers fall back to safe
	// defaults instead of retrying.
	ErrBadShape = errors.New("unexpected response shape")
)

// Error is a non-2xx HTTP response from the backend.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Kind classifies an error for display and recovery policy.
type Kind int

const (
	KindNone Kind = iota
	KindAuth
	KindConflict
	KindValidation
	KindShape
	KindNetwork
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindShape:
		return "shape"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "none"
	}
}

// Classify maps an error to its taxonomy bucket. Timeouts count as
// network failures: a timed-out call must never partially apply.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrInvalidTaskID) {
		return KindValidation
	}
	if errors.Is(err, ErrBadShape) {
		return KindShape
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
			return KindAuth
		case apiErr.Status == http.StatusConflict:
			return KindConflict
		case apiErr.Status == http.StatusUnprocessableEntity:
			return KindValidation
		default:
			return KindServer
		}
	}
	return KindNetwork
}

// IsAuth reports whether err is a 401/403 from the backend.
func IsAuth(err error) bool { return Classify(err) == KindAuth }

// IsConflict reports whether err is an optimistic-lock conflict (409).
// Conflicts are never retried automatically; the user must re-fetch
// and resubmit.
func IsConflict(err error) bool { return Classify(err) == KindConflict }

// IsTimeout reports whether err was a client-side timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
