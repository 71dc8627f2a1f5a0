// Package apperr holds the error kinds shared by every domain package.
// Domain sentinels wrap one of the kinds so callers can match either the
// specific error or its category with errors.Is.
package apperr

import "errors"

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrPermission = errors.New("permission denied")
	ErrCapacity   = errors.New("capacity exceeded")
)

// Error is a business error tagged with its kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Kind returns the category sentinel of the error.
func (e *Error) Kind() error {
	return e.kind
}

func Validation(msg string) error {
	return &Error{kind: ErrValidation, msg: msg}
}

func Conflict(msg string) error {
	return &Error{kind: ErrConflict, msg: msg}
}

func NotFound(msg string) error {
	return &Error{kind: ErrNotFound, msg: msg}
}

func Permission(msg string) error {
	return &Error{kind: ErrPermission, msg: msg}
}

func Capacity(msg string) error {
	return &Error{kind: ErrCapacity, msg: msg}
}

// KindOf reports the category of err, or nil for internal errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrConflict, ErrNotFound, ErrPermission, ErrCapacity} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
