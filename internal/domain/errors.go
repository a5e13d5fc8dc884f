package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when the requested document does not exist.
var ErrNotFound = errors.New("not found")

// ErrorKind classifies failures for the delivery layer.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindStateConflict
	KindInsufficientStock
	KindForbidden
)

// AppError is a client-facing failure. Anything that is not an AppError is treated as
// unexpected (500) by the handlers.
type AppError struct {
	Kind    ErrorKind
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(format string, args ...interface{}) error {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewStateConflictError(format string, args ...interface{}) error {
	return &AppError{Kind: KindStateConflict, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientStockError(format string, args ...interface{}) error {
	return &AppError{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func NewForbiddenError(format string, args ...interface{}) error {
	return &AppError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err wraps an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
