package analysis

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed submission.
type Kind string

// Report kinds, in the order a submission can fail.
const (
	KindInput       Kind = "input"
	KindHTTP        Kind = "http"
	KindApplication Kind = "application"
	KindUnexpected  Kind = "unexpected"
)

// Sentinel kinds for errors.Is checks against a *Report.
var (
	ErrInput       = errors.New("invalid submission input")
	ErrHTTPStatus  = errors.New("analyzer returned a non-success status")
	ErrApplication = errors.New("analyzer reported an error")
	ErrUnexpected  = errors.New("unexpected submission failure")

	ErrNotAnObject = errors.New("response body is not a JSON object")
)

// Messages shown when the analyzer gives nothing better.
const (
	MissingResumeMessage  = "Please select a resume file."
	GenericFailureMessage = "Analysis failed."
)

// Report is the user-facing outcome of a failed submission.
// Message is exactly the text to alert.
type Report struct {
	Kind       Kind
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (r *Report) Error() string {
	return r.Message
}

// Unwrap returns the underlying error.
func (r *Report) Unwrap() error {
	return r.Cause
}

// Is matches the kind sentinels.
func (r *Report) Is(target error) bool {
	switch target {
	case ErrInput:
		return r.Kind == KindInput
	case ErrHTTPStatus:
		return r.Kind == KindHTTP
	case ErrApplication:
		return r.Kind == KindApplication
	case ErrUnexpected:
		return r.Kind == KindUnexpected
	}
	return false
}

// NewInputReport reports a submission rejected before any network call.
func NewInputReport(message string) *Report {
	return &Report{Kind: KindInput, Message: message}
}

// NewHTTPReport reports a non-2xx analyzer response.
func NewHTTPReport(statusCode int, message string) *Report {
	return &Report{Kind: KindHTTP, Message: message, StatusCode: statusCode}
}

// NewApplicationReport reports a 2xx body carrying a truthy error field.
func NewApplicationReport(message string) *Report {
	if message == "" {
		message = GenericFailureMessage
	}
	return &Report{Kind: KindApplication, Message: message, StatusCode: http.StatusOK}
}

// NewUnexpectedReport wraps transport, decode and other failures.
func NewUnexpectedReport(message string, cause error) *Report {
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return &Report{Kind: KindUnexpected, Message: message, Cause: cause}
}

// AsReport returns err as a *Report, wrapping foreign errors as unexpected.
func AsReport(err error) *Report {
	if err == nil {
		return nil
	}
	var r *Report
	if errors.As(err, &r) {
		return r
	}
	return &Report{Kind: KindUnexpected, Message: err.Error(), Cause: err}
}
