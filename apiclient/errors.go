package apiclient

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrStatus           = errors.New("rejected response status")
)

// UnexpectedStatusError is returned when the observed status code has no
// schema in the operation's registry. No data accompanies it.
type UnexpectedStatusError struct {
	Route  string
	Method string
	Status int
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("apiclient: %s %s: unexpected response status %d", e.Method, e.Route, e.Status)
}

func (e *UnexpectedStatusError) Is(target error) bool { return target == ErrUnexpectedStatus }

// ValidationError reports a response body that does not satisfy its schema.
type ValidationError struct {
	Route  string
	Method string
	Status int
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("apiclient: %s %s: invalid %d response: %v", e.Method, e.Route, e.Status, e.Err)
	}
	return fmt.Sprintf("apiclient: %s %s: invalid response: %v", e.Method, e.Route, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidResponse }

// StatusError is returned by HTTPExecutor when its status policy rejects a
// response.
type StatusError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: %s %s: status %d", e.Method, e.URL, e.Status)
}

func (e *StatusError) Is(target error) bool { return target == ErrStatus }
