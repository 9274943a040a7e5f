// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file centralizes repository-level sentinel errors.
package repo

import "errors"

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates an insert violated a uniqueness constraint. For
// reminder rows this is the benign-duplicate signal produced by concurrent
// create attempts for the same (medicine, time, slot); callers ignore it.
var ErrDuplicate = errors.New("duplicate")
