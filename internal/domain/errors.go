package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrServerOffline indicates the tracker service is unreachable
	ErrServerOffline = errors.New("tracker is unreachable")

	// ErrAuthFailed indicates the token was rejected by the tracker
	ErrAuthFailed = errors.New("authentication token is invalid")

	// ErrNotLoggedIn indicates no credential has been stored yet
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrVersionMismatch indicates the database was written by an
	// incompatible version and cannot be opened
	ErrVersionMismatch = errors.New("unsupported database version")

	// ErrSessionClosed indicates a sync session was used after it ended
	ErrSessionClosed = errors.New("sync session is closed")
)
