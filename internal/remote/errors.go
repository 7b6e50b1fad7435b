// Package remote defines the error taxonomy shared by the Tullave card API
// and OpenTripPlanner clients. Every failure a client returns is one of the
// types below; callers branch with errors.Is / errors.As.
package remote

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest means the target URL could not be built from the
// configured base and path.
var ErrInvalidRequest = errors.New("invalid request URL")

// ErrAuthenticationFailed maps HTTP 401/403 with no decodable error body.
var ErrAuthenticationFailed = errors.New("authentication failed, check the bearer token")

// InvalidInputError reports caller input rejected before any network call,
// like an empty serial or a malformed coordinate pair.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError wraps connectivity and timeout failures from the HTTP layer.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError carries a server-side failure, either decoded from the service's
// {errorCode, errorMessage} body or synthesized from a bare HTTP status.
type APIError struct {
	Code    string
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (HTTP %d - %s)", e.Message, e.Status, e.Code)
	}
	return e.Message
}

// DecodeError wraps a schema mismatch on a 2xx body. The original decode
// error is kept for diagnostics.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode API response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
