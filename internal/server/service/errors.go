package service

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Error classes. Every error returned by this package that callers are
// expected to handle wraps exactly one of these.
var (
	ErrValidation      = errors.New("validation failed")
	ErrDuplicate       = errors.New("duplicate")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrAlreadyActed    = errors.New("already acted")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// classified is an error with a caller-facing message that unwraps to its class.
type classified struct {
	class error
	msg   string
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.class }

func newError(class error, msg string) error {
	return &classified{class: class, msg: msg}
}

func validationf(format string, args ...any) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// maxFieldLength matches the VARCHAR(255) title and subject columns.
const maxFieldLength = 255

// requireField checks that a trimmed text field is present and fits its column.
func requireField(name, value string) error {
	if value == "" {
		return validationf("%s is required", name)
	}
	if utf8.RuneCountInString(value) > maxFieldLength {
		return validationf("%s must be at most %d characters", name, maxFieldLength)
	}
	return nil
}

var (
	ErrMaterialNotFound     = newError(ErrNotFound, "material not found")
	ErrRequestNotFound      = newError(ErrNotFound, "request not found")
	ErrUserNotFound         = newError(ErrNotFound, "user not found")
	ErrNotificationNotFound = newError(ErrNotFound, "notification not found")

	ErrNoFile          = newError(ErrValidation, "no file uploaded")
	ErrEmptyFile       = newError(ErrValidation, "uploaded file is empty")
	ErrFileTooLarge    = newError(ErrValidation, "file exceeds maximum allowed size")
	ErrUnsupportedFile = newError(ErrValidation, "only PDF, PNG, JPG, JPEG, PPT, and PPTX files are allowed")
	ErrContentMismatch = newError(ErrValidation, "file content does not match its extension")
	ErrRequestNotOpen  = newError(ErrValidation, "request is no longer open")

	ErrDuplicateFile = newError(ErrDuplicate, "this file has already been uploaded")
	ErrEmailTaken    = newError(ErrDuplicate, "email is already registered")

	ErrOwnVote       = newError(ErrForbidden, "you can't vote on your own material")
	ErrOwnRequest    = newError(ErrForbidden, "you cannot fulfill your own request")
	ErrNotOwner      = newError(ErrForbidden, "not authorized to modify this resource")
	ErrModeratorOnly = newError(ErrForbidden, "admin access required")

	ErrAlreadyVoted    = newError(ErrAlreadyActed, "you have already voted on this material")
	ErrAlreadyReported = newError(ErrAlreadyActed, "you have already reported this material")

	ErrInvalidCredentials = newError(ErrUnauthenticated, "invalid credentials")
)
