package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrFetchFailed   = errors.New("market fetch failed")
	ErrInvalidSlug   = errors.New("invalid window slug")
	ErrWindowGraded  = errors.New("window already graded")
	ErrLockHeld      = errors.New("lock already held")
)
