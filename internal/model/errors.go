package model

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindValidation         ErrorKind = "validation"
	KindConflictUnresolved ErrorKind = "conflict_unresolved"
	KindVersionMismatch    ErrorKind = "version_mismatch"
	KindDependencyCycle    ErrorKind = "dependency_cycle"
)

// Error is the failure type returned by every core operation. Callers match
// on kind with errors.Is against the Err* sentinels below.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrConflictUnresolved = &Error{Kind: KindConflictUnresolved}
	ErrVersionMismatch    = &Error{Kind: KindVersionMismatch}
	ErrDependencyCycle    = &Error{Kind: KindDependencyCycle}
)

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Unauthorizedf(format string, args ...any) error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ConflictUnresolvedf(format string, args ...any) error {
	return &Error{Kind: KindConflictUnresolved, Message: fmt.Sprintf(format, args...)}
}

func VersionMismatchf(format string, args ...any) error {
	return &Error{Kind: KindVersionMismatch, Message: fmt.Sprintf(format, args...)}
}

func DependencyCyclef(format string, args ...any) error {
	return &Error{Kind: KindDependencyCycle, Message: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of a core error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
