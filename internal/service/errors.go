package service

import (
	"errors"
	"fmt"
)

// Domain Errors
var (
	ErrIndexOutOfRange        = errors.New("question index out of range")
	ErrSessionNotReady        = errors.New("exam session is not ready")
	ErrSessionNotFound        = errors.New("exam session not found")
	ErrDraftNotFound          = errors.New("exam draft not found")
	ErrSpecConsumed           = errors.New("exam specification already submitted")
	ErrThemeSelectionDisabled = errors.New("theme selection is not available for this exam type")
	ErrFinishInProgress       = errors.New("exam session is already finishing")
	ErrUnknownQuestion        = errors.New("question does not belong to this exam")
	ErrInvalidChoice          = errors.New("choice index out of range for question")
	ErrAttemptFinished        = errors.New("attempt is already finished")
	ErrEmptyExam              = errors.New("exam has no questions")
)

// ValidationCode identifies a user-correctable problem with an exam specification.
type ValidationCode string

const (
	CodeNoThemeSelected ValidationCode = "NO_THEME_SELECTED"
	CodeInvalidCount    ValidationCode = "INVALID_COUNT"
	CodeInvalidType     ValidationCode = "INVALID_TYPE"
)

// ValidationError blocks submission before any remote call is made.
type ValidationError struct {
	Code  ValidationCode
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Code {
	case CodeNoThemeSelected:
		return "select at least one theme"
	case CodeInvalidCount:
		return "question count must be between 5 and 70"
	case CodeInvalidType:
		return "unknown exam type"
	default:
		return fmt.Sprintf("invalid exam specification (%s)", e.Code)
	}
}

// IsValidation reports whether err is a *ValidationError with the given code.
func IsValidation(err error, code ValidationCode) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Code == code
}
