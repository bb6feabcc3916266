// Package apperr is the error taxonomy shared by both services. Every error that crosses a
// use-case boundary carries a Kind so transports can translate it without string matching.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthorization
	KindNotFound
	KindConflict
	KindInsufficientStock
	KindTransient
	KindPermanent
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	// Reasons lists per-item details, e.g. every insufficient line item.
	Reasons []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Reasons) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Reasons, "; "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Authorization(format string, args ...any) *Error {
	return New(KindAuthorization, fmt.Sprintf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

func Conflict(msg string, err error) *Error {
	return Wrap(KindConflict, msg, err)
}

func InsufficientStock(reasons []string) *Error {
	return &Error{Kind: KindInsufficientStock, Message: "insufficient stock", Reasons: reasons}
}

func Transient(msg string, err error) *Error {
	return Wrap(KindTransient, msg, err)
}

func Permanent(msg string, err error) *Error {
	return Wrap(KindPermanent, msg, err)
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsPermanent reports whether a message failure must not be retried.
func IsPermanent(err error) bool {
	return Is(err, KindPermanent)
}

// ReasonsOf returns the per-item reasons attached to err, if any.
func ReasonsOf(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reasons
	}
	return nil
}
