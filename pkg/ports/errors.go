package ports

import "errors"

var (
	// ErrUnauthorized is returned for any 401 from the backend. The client has
	// already cleared the stored token when a caller sees it.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMalformedResponse means the backend answered 2xx with a body that does
	// not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrUnavailable means the backend could not be reached or the answer was
	// cut off; the backend said nothing about the request.
	ErrUnavailable = errors.New("backend unavailable")
)
