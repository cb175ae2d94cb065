package store

import "errors"

// ErrNotFound is returned when a row does not exist or is not visible
// to the requesting user.
var ErrNotFound = errors.New("store: not found")

// ErrEmailTaken is returned by CreateUser when the email address is
// already registered.
var ErrEmailTaken = errors.New("store: email already registered")
