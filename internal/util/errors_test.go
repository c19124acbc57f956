package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExternalServiceError(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&ExternalServiceError{Service: "alloy", Op: "get_event", Err: cause})

	assert.True(t, errors.Is(err, ErrExternalService))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrStorage))
	assert.Equal(t, "alloy get_event failed: connection refused", err.Error())
}

func TestStorage(t *testing.T) {
	assert.NoError(t, Storage("op", nil))

	cause := errors.New("deadlock")
	err := Storage("update attempt", cause)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, cause))

	var se *StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "update attempt", se.Op)
}

func TestIntegrity(t *testing.T) {
	err := Integrity(ErrDuplicateOpenAttempts, "user %d activity %d", 1, 2)
	assert.True(t, errors.Is(err, ErrDataIntegrity))
	assert.True(t, errors.Is(err, ErrDuplicateOpenAttempts))
	assert.Contains(t, err.Error(), "user 1 activity 2")
}
