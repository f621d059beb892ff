package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent CMIS-level failures.
// These are distinct from infrastructure errors, which are wrapped in ErrStorage.
var (
	// ErrNotFound indicates a requested object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrTypeNotFound indicates a requested type definition does not exist.
	ErrTypeNotFound = errors.New("type not found")

	// ErrConstraint indicates the operation violates a type, versioning or ACL constraint.
	ErrConstraint = errors.New("constraint violation")

	// ErrNameConstraint indicates a naming collision within a parent folder.
	ErrNameConstraint = errors.New("name constraint violation")

	// ErrUpdateConflict indicates an optimistic concurrency failure.
	ErrUpdateConflict = errors.New("update conflict")

	// ErrVersioning indicates an invalid state transition on a version series.
	ErrVersioning = errors.New("versioning violation")

	// ErrInvalidArgument indicates malformed or inapplicable input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPermissionDenied indicates the caller may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotSupported indicates the repository does not support the operation.
	ErrNotSupported = errors.New("not supported")

	// ErrStorage indicates a failure of the underlying content repository.
	ErrStorage = errors.New("storage failure")
)

// CmisError carries a message for one of the domain error kinds.
// errors.Is matches it against its kind.
type CmisError struct {
	Kind    error
	Message string
	Err     error
}

func (e *CmisError) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message == "":
		return e.Kind.Error()
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Is reports whether target is the kind of this error.
func (e *CmisError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the cause, if any.
func (e *CmisError) Unwrap() error {
	return e.Err
}

func newError(kind error, format string, args ...any) error {
	return &CmisError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf returns an ErrNotFound error with a message.
func NotFoundf(format string, args ...any) error { return newError(ErrNotFound, format, args...) }

// TypeNotFoundf returns an ErrTypeNotFound error with a message.
func TypeNotFoundf(format string, args ...any) error {
	return newError(ErrTypeNotFound, format, args...)
}

// Constraintf returns an ErrConstraint error with a message.
func Constraintf(format string, args ...any) error { return newError(ErrConstraint, format, args...) }

// NameConstraintf returns an ErrNameConstraint error with a message.
func NameConstraintf(format string, args ...any) error {
	return newError(ErrNameConstraint, format, args...)
}

// UpdateConflictf returns an ErrUpdateConflict error with a message.
func UpdateConflictf(format string, args ...any) error {
	return newError(ErrUpdateConflict, format, args...)
}

// Versioningf returns an ErrVersioning error with a message.
func Versioningf(format string, args ...any) error { return newError(ErrVersioning, format, args...) }

// InvalidArgumentf returns an ErrInvalidArgument error with a message.
func InvalidArgumentf(format string, args ...any) error {
	return newError(ErrInvalidArgument, format, args...)
}

// NotSupportedf returns an ErrNotSupported error with a message.
func NotSupportedf(format string, args ...any) error {
	return newError(ErrNotSupported, format, args...)
}

// StorageError wraps an infrastructure failure.
func StorageError(err error, format string, args ...any) error {
	return &CmisError{Kind: ErrStorage, Message: fmt.Sprintf(format, args...), Err: err}
}

// IsExpected reports whether err is one of the CMIS conditions a caller is
// expected to handle, as opposed to an infrastructure failure.
func IsExpected(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrTypeNotFound, ErrConstraint, ErrNameConstraint, ErrUpdateConflict,
		ErrVersioning, ErrInvalidArgument, ErrPermissionDenied, ErrNotSupported,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// WrapStorage passes expected CMIS errors through and wraps everything else
// as ErrStorage.
func WrapStorage(err error, op string) error {
	if err == nil || IsExpected(err) || errors.Is(err, ErrStorage) {
		return err
	}
	return StorageError(err, "%s", op)
}
