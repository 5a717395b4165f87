package repositories

import "errors"

// ErrNotFound is returned when the requested row does not exist. Handlers map
// it to a 404 with the entity-specific error code.
var ErrNotFound = errors.New("not found")

// ErrAlreadySubmitted is returned when an at-most-once submission already
// exists for the same user and question.
var ErrAlreadySubmitted = errors.New("already submitted")
