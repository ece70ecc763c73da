package lockbox

import "errors"

// Error kinds shared by every manager. Operations wrap one of these with
// context, callers classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrInternal     = errors.New("internal error")
)
