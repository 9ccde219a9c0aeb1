package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	// ErrMalformedTemplate marks a template row without a usable duration.
	// Deleting or guessing at such a row would destroy user data, so jobs
	// skip it and report the skip.
	ErrMalformedTemplate = errors.New("template has no usable duration")
)
