package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidPreset         = errors.New("invalid preset")
	ErrDuplicateOperation    = errors.New("duplicate operation")
	ErrCredentialAcquisition = errors.New("credential acquisition failed")
	ErrUpstreamBilling       = errors.New("billing is not enabled for the video engine project")
	ErrMalformedResponse     = errors.New("malformed upstream response")
)

// UpstreamError is a non-success HTTP response from the generation API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("video engine error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("video engine error (%d): %s", e.StatusCode, e.Message)
}
