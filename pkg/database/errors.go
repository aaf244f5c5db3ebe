package database

import "errors"

var (
	// ErrNotReady indicates the database connection has not been established.
	ErrNotReady = errors.New("database not ready")
	// ErrLockHeld indicates an advisory lock is held by another session.
	ErrLockHeld = errors.New("advisory lock held")
)
