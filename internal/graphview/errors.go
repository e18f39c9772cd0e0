package graphview

import "fmt"

// FailureClass tells transport problems apart from bad responses.
type FailureClass string

// Fetch failure classes.
const (
	TransportFailure FailureClass = "transport"
	ResponseFailure  FailureClass = "response"
)

// FetchError describes why no snapshot was obtained.
type FetchError struct {
	Class  FailureClass
	Status int // HTTP status for response failures, 0 otherwise
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failure (status %d): %v", e.Class, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failure: %v", e.Class, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
