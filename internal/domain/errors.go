package domain

import "errors"

var (
	// ErrSessionCorrupt indicates the persisted session record could not be
	// parsed; callers treat the session as absent.
	ErrSessionCorrupt = errors.New("session record corrupt")
)
