package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned when a client cannot be built or used with
	// the inputs it was given (missing credential, unusable base URL, empty model).
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport is returned on network failure, timeout, an undecodable
	// response body, or a non-success HTTP status.
	ErrTransport = errors.New("transport error")

	// ErrUnsupportedFeature is returned when a request asks for something the
	// client cannot honor, such as a streamed response.
	ErrUnsupportedFeature = errors.New("unsupported feature")
)

// StatusError is returned when a provider answers with a non-success HTTP
// status. It matches ErrTransport with errors.Is.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrTransport
}
