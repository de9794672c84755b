package interview

import "errors"

// ErrSessionNotFound is returned when a session does not exist
var ErrSessionNotFound = errors.New("session not found")

// ErrQuestionNotFound is returned when a session has no question at the
// requested index
var ErrQuestionNotFound = errors.New("question not found")

// ErrSessionNotStartable is returned when starting a session that is not pending
var ErrSessionNotStartable = errors.New("session not startable")

// ErrSessionNotActive is returned when an operation requires an in-progress session
var ErrSessionNotActive = errors.New("session not in progress")

// ErrAnswerExists is returned when an answer was already submitted for the
// question index
var ErrAnswerExists = errors.New("answer already submitted for question")

// ErrStaleQuestionIndex is returned when the session's question index moved
// underneath the caller
var ErrStaleQuestionIndex = errors.New("stale question index")

// ErrSessionFinished is returned when changing a session that already
// reached a terminal state
var ErrSessionFinished = errors.New("session already finished")
