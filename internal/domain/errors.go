package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrNotRetryable = errors.New("only failed jobs can be retried")
	ErrUnknownType  = errors.New("unknown job type")
)
