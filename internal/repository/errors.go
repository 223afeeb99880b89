// Package repository defines the persistence contracts used by the service
// and the repositories layered on top of them. Backend specific stores live
// under internal/datasource and translate their driver errors into the
// sentinel values below so that handlers can tell failure scenarios apart.
package repository

import "errors"

// ErrNotFound is returned when no entity matches the requested id or filter.
var ErrNotFound = errors.New("entity not found")

// ErrConflict is returned when a write violates a unique index, such as a
// second user with the same email.
var ErrConflict = errors.New("duplicate key")

// ErrUnknownField is returned when a where clause names a field the backend
// cannot filter on.
var ErrUnknownField = errors.New("unknown filter field")

// ErrUnknownRelation is returned when a filter asks for an inclusion that was
// never registered.
var ErrUnknownRelation = errors.New("unknown relation")
