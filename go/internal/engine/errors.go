package engine

import "errors"

// ErrSessionNotRunning is returned when a command targets a session that has
// no live runner
var ErrSessionNotRunning = errors.New("session not running")

// ErrSessionAlreadyRunning is returned when starting a runner for a session
// that already has one
var ErrSessionAlreadyRunning = errors.New("session already running")
