package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrTypeNotFound", ErrTypeNotFound},
		{"ErrConstraint", ErrConstraint},
		{"ErrNameConstraint", ErrNameConstraint},
		{"ErrUpdateConflict", ErrUpdateConflict},
		{"ErrVersioning", ErrVersioning},
		{"ErrInvalidArgument", ErrInvalidArgument},
		{"ErrPermissionDenied", ErrPermissionDenied},
		{"ErrNotSupported", ErrNotSupported},
		{"ErrStorage", ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestCmisError_IsMatchesKindOnly(t *testing.T) {
	err := Constraintf("type %s is not versionable", "cmis:document")

	assert.True(t, errors.Is(err, ErrConstraint))
	assert.False(t, errors.Is(err, ErrVersioning))
	assert.Equal(t, "type cmis:document is not versionable", err.Error())
}

func TestCmisError_WrappedWithContext(t *testing.T) {
	err := fmt.Errorf("checkout: %w", Versioningf("already checked out"))

	assert.True(t, errors.Is(err, ErrVersioning))
	assert.Contains(t, err.Error(), "already checked out")
}

func TestStorageError_UnwrapsCause(t *testing.T) {
	err := StorageError(io.ErrUnexpectedEOF, "reading node %s", "n1")

	assert.True(t, errors.Is(err, ErrStorage))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "reading node n1: unexpected EOF", err.Error())
}

func TestCmisError_MessageFallbacks(t *testing.T) {
	assert.Equal(t, "object not found", (&CmisError{Kind: ErrNotFound}).Error())
	assert.Equal(t, "storage failure: EOF", (&CmisError{Kind: ErrStorage, Err: io.EOF}).Error())
}

func TestIsExpected(t *testing.T) {
	assert.True(t, IsExpected(NotFoundf("x")))
	assert.True(t, IsExpected(NameConstraintf("x")))
	assert.True(t, IsExpected(UpdateConflictf("x")))
	assert.False(t, IsExpected(io.EOF))
	assert.False(t, IsExpected(StorageError(io.EOF, "x")))
}

func TestWrapStorage(t *testing.T) {
	assert.NoError(t, WrapStorage(nil, "op"))

	expected := Constraintf("folder is not empty")
	assert.Same(t, expected, WrapStorage(expected, "delete"))

	wrapped := WrapStorage(io.EOF, "delete")
	assert.True(t, errors.Is(wrapped, ErrStorage))
	assert.True(t, errors.Is(wrapped, io.EOF))

	already := StorageError(io.EOF, "x")
	assert.Same(t, already, WrapStorage(already, "y"))
}
