package app

import "errors"

var (
	// ErrSubmissionInFlight is returned when Submit is called while a submission is running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("controller closed")
	// ErrCancelled marks a submission aborted through Cancel or Close.
	ErrCancelled = errors.New("submission cancelled")
)
