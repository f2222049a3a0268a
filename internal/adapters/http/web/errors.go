package web

import "errors"

// Sentinel kinds for form handling errors.
var (
	ErrBadForm       = errors.New("bad form")
	ErrUploadTooBig  = errors.New("upload too large")
	ErrRenderFailure = errors.New("page render failed")
)

// Alert texts for failures the controller never sees.
const (
	replayMessage       = "This form was already submitted."
	invalidTokenMessage = "This form is invalid or expired. Please reload the page."
	badFormMessage      = "The form could not be read. Please try again."
)
