package domain

import "errors"

var (
	// ErrSessionAlreadyActive is returned when a user starts a game while one is running.
	ErrSessionAlreadyActive = errors.New("game session already active")
	// ErrSessionNotFound is returned when a user acts without an active session.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrSessionExpired is returned when an answer arrives after the deadline.
	// The session has already been finalized by the time the caller sees it.
	ErrSessionExpired = errors.New("game session expired")
	// ErrInvalidAnswer indicates the submitted text does not parse as an integer.
	ErrInvalidAnswer = errors.New("answer is not a whole number")
)
