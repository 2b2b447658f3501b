// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrEmailExists and ErrUsernameExists identify which unique
// field collided during registration or a profile update, while
// ErrNotFound covers both a missing row and a row owned by someone
// else; handlers render the two identically so resource existence is
// never leaked across owners.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or does not belong
// to the acting user. Handlers should translate this into an HTTP 404
// response in both cases.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update would violate the
// unique constraint on users.email.
var ErrEmailExists = errors.New("email already registered")

// ErrUsernameExists is returned when an insert or update would violate
// the unique constraint on users.username.
var ErrUsernameExists = errors.New("username already registered")

// ErrConflict is returned for any other constraint violation that does
// not map onto a specific field. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")
