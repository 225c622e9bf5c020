package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for the protocol client. None of them are retried
// automatically; retry and backoff are the caller's concern.
var (
	// ErrConnectionFailed wraps transport-level failures (dial, TLS, reset).
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidResponse covers a non-2xx HTTP status or a body that is not
	// a well-formed envelope.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrNoResult is a well-formed envelope carrying neither result nor
	// error.
	ErrNoResult = errors.New("response has no result")
)

// RPCError is an application error reported by the server, surfaced
// verbatim with code and message preserved.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
