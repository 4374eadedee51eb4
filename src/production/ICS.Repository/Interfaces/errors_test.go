package interfaces

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	err := NewStoreError("get", "devices:ZK001", context.DeadlineExceeded)

	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, `store get "devices:ZK001": context deadline exceeded`, err.Error())

	wrapped := fmt.Errorf("dispatch: %w", err)
	var se *StoreError
	assert.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "get", se.Op)
}

func TestNewStoreError_PassThrough(t *testing.T) {
	assert.NoError(t, NewStoreError("put", "k", nil))

	inner := NewStoreError("get", "a", errors.New("io"))
	outer := NewStoreError("put", "b", fmt.Errorf("wrapped: %w", inner))
	var se *StoreError
	assert.True(t, errors.As(outer, &se))
	assert.Equal(t, "get", se.Op, "an existing store error is not re-wrapped")

	assert.Equal(t, "store keys: io", NewStoreError("keys", "", errors.New("io")).Error())
}
