package battle

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures so transports can map them.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindInsufficientContent Kind = "insufficient_content"
)

// Sentinels for errors.Is checks against *Error.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrInsufficientContent = &Error{Kind: KindInsufficientContent}
)

// Store-level sentinels. Stores return these; the Manager translates them.
var (
	ErrRecordNotFound = errors.New("battle record not found")
	ErrStaleWrite     = errors.New("battle record modified concurrently")
	ErrRoomCodeTaken  = errors.New("room code already in use")
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func validationError(field, msg string) error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

func notFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func forbidden(msg string) error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}

func insufficientContent(msg string) error {
	return &Error{Kind: KindInsufficientContent, Message: msg}
}

// KindOf extracts the Kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
