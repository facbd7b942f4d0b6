package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound          = errors.New("submission not found")
	ErrAlreadyExists     = errors.New("submission already exists")
	ErrTerminal          = errors.New("submission is terminal")
	ErrIllegalTransition = errors.New("illegal status transition")
)
