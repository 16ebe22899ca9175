package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, NotFound, KindOf(New(NotFound, "gone")))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
	assert.Equal(t, Timeout, KindOf(context.DeadlineExceeded))
	assert.Equal(t, Canceled, KindOf(context.Canceled))
}

func TestKindSurvivesWrapping(t *testing.T) {
	cause := New(Conflict, "version mismatch")
	wrapped := fmt.Errorf("updating belief: %w", cause)
	assert.Equal(t, Conflict, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, Conflict))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(StorageError, "store", nil))

	cause := errors.New("connection reset")
	err := Wrap(StorageError, "store memory", cause)
	assert.Equal(t, StorageError, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "store memory")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestOuterKindWins(t *testing.T) {
	inner := New(NotFound, "missing")
	outer := Wrap(StorageError, "loading", inner)
	assert.Equal(t, StorageError, KindOf(outer))
}
