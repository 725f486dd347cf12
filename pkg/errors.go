// Package pkg holds utilities shared across layers.
// This file defines the domain-level errors.
//
// Errors are compared by identity, not by message:
//
//	if errors.Is(err, pkg.ErrNotFound) { ... }
//
// Services wrap them with context (fmt.Errorf("%w: ...", pkg.ErrBadRequest)),
// handlers map them to HTTP status codes through Error.
package pkg

import (
	"errors"
	"fmt"
)

// Base categories. Every error returned by a service should wrap one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadRequest    = errors.New("bad request")
	ErrInternal      = errors.New("internal error")
)

// Moderation errors. They wrap a base category so the HTTP mapping
// stays in one place.
var (
	ErrInvalidAction   = fmt.Errorf("%w: invalid action", ErrBadRequest)
	ErrInvalidDuration = fmt.Errorf("%w: hours must be a positive number of at most 100 years", ErrBadRequest)
	ErrUserNotFound    = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrBanned          = fmt.Errorf("%w: you are banned from sending messages", ErrForbidden)
)
