// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrDuplicateContact indicates that a user tried to add a
// contact whose phone number (after stripping punctuation) is already
// on their list, while ErrNotFound signals that a requested row does
// not exist for the current user.
package repository

import "errors"

// ErrDuplicateContact is returned when an insert would violate the
// per-user phone uniqueness of the trusted contact list. Handlers
// should translate this into an HTTP 409 response.
var ErrDuplicateContact = errors.New("contact with this phone already exists")

// ErrNotFound is returned when a lookup or delete matches no row owned
// by the current user. Handlers should translate this into an HTTP 404
// response.
var ErrNotFound = errors.New("not found")
