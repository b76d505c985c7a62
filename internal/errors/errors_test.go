package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeCorruptRecord, CategoryStorage, "record unreadable")

	assert.Equal(t, ErrCodeCorruptRecord, err.Code)
	assert.Equal(t, CategoryStorage, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.Equal(t, "[ERR_203_CORRUPT_RECORD] record unreadable", err.Error())
}

func TestNewf(t *testing.T) {
	err := Newf(ErrCodeInvalidConfidence, CategoryValidation, "confidence %v out of range", 1.5)
	assert.Contains(t, err.Error(), "confidence 1.5 out of range")
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(cause, ErrCodeStoreWrite, CategoryStorage, "put resource")

	require.NotNil(t, err)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeStoreWrite, CategoryStorage, "noop"))
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(ErrCodeStoreLocked, CategoryStorage, "locked")
	target := New(ErrCodeStoreLocked, CategoryStorage, "different message")

	assert.True(t, stderrors.Is(err, target))
	assert.False(t, stderrors.Is(err, New(ErrCodeStoreOpen, CategoryStorage, "locked")))
}

func TestCodeOf(t *testing.T) {
	inner := New(ErrCodeCorruptRecord, CategoryStorage, "bad tags")
	wrapped := fmt.Errorf("iterating: %w", inner)

	assert.Equal(t, ErrCodeCorruptRecord, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, ErrCodeCorruptRecord))
	assert.Empty(t, CodeOf(fmt.Errorf("plain")))
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeStoreWrite, CategoryStorage, "put failed").
		WithDetail("id", "res-1").
		WithDetail("table", "resources")

	assert.Equal(t, "res-1", err.Details["id"])
	assert.Equal(t, "resources", err.Details["table"])
}
