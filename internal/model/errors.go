package model

import "errors"

// Sentinel errors shared across service and transport layers. Handlers map
// these onto HTTP status codes with errors.Is.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionComplete    = errors.New("session is already complete")
	ErrSummaryNotReady    = errors.New("summary is not ready")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
