package model

import "errors"

// Common errors used across the application
var (
	// Record errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerNotDead  = errors.New("player is not dead")

	// Input errors
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrInvalidLives    = errors.New("invalid life count")

	// Transition errors
	ErrDuplicateTransition = errors.New("duplicate transition")

	// Storage errors
	ErrStoreUnavailable = errors.New("player store unavailable")
)
