package docstore

import (
	"context"
	"errors"
	"net"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrContention    = errors.New("transaction contention")
	ErrUnavailable   = errors.New("document store unavailable")
	ErrInvalidRef    = errors.New("invalid document reference")
)

// IsTransient reports whether err is a temporary backend condition that a
// caller may reasonably retry.
func IsTransient(err error) bool {
	return IsContention(err) || IsUnavailable(err)
}

// IsContention reports whether a transaction gave up because concurrent
// writers kept touching the same documents.
func IsContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrContention) {
		return true
	}
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Aborted
}

// IsUnavailable reports whether the backend could not be reached or did not
// answer in time. Contention is not unavailability.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
			return true
		}
	}
	return false
}
