package store

import (
	"errors"

	"github.com/noema-ai/noema/internal/apperr"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = apperr.New(apperr.NotFound, "not found")

// ErrVersionConflict is returned when an optimistic update loses the race.
var ErrVersionConflict = apperr.New(apperr.Conflict, "version conflict")

// wrapStorage tags database failures with the storage kind, leaving the
// store sentinels untouched.
func wrapStorage(msg string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrVersionConflict) {
		return err
	}
	return apperr.Wrap(apperr.StorageError, msg, err)
}
