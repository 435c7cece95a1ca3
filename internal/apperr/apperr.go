// Package apperr defines the error taxonomy shared by services and handlers.
// Every error surfaced to a client carries a stable code and an HTTP status.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindDuplicateSubmission Kind = "duplicate_submission"
	KindOutOfOrder          Kind = "out_of_order"
	KindInvalidAmount       Kind = "invalid_amount"
	KindNotFound            Kind = "not_found"
	KindUnauthorized        Kind = "unauthorized"
	KindForbidden           Kind = "forbidden"
	KindConflict            Kind = "conflict"
	KindRateLimited         Kind = "rate_limited"
	KindUpstream            Kind = "upstream"
	KindInternal            Kind = "internal"
)

type kindInfo struct {
	code   string
	status int
}

var kinds = map[Kind]kindInfo{
	KindValidation:          {"40001", http.StatusBadRequest},
	KindUnauthorized:        {"40101", http.StatusUnauthorized},
	KindForbidden:           {"40301", http.StatusForbidden},
	KindNotFound:            {"40401", http.StatusNotFound},
	KindDuplicateSubmission: {"40901", http.StatusConflict},
	KindOutOfOrder:          {"40902", http.StatusConflict},
	KindConflict:            {"40903", http.StatusConflict},
	KindRateLimited:         {"42901", http.StatusTooManyRequests},
	KindInternal:            {"50001", http.StatusInternalServerError},
	KindInvalidAmount:       {"50002", http.StatusInternalServerError},
	KindUpstream:            {"50201", http.StatusBadGateway},
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Code returns the stable client-facing code.
func (e *Error) Code() string { return kinds[e.Kind].code }

// HTTPStatus returns the response status for the error kind.
func (e *Error) HTTPStatus() int {
	if info, ok := kinds[e.Kind]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Sentinels for errors.Is checks. They carry no message so they match any error of their kind.
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrDuplicateSubmission = &Error{Kind: KindDuplicateSubmission}
	ErrOutOfOrder          = &Error{Kind: KindOutOfOrder}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrForbidden           = &Error{Kind: KindForbidden}
	ErrConflict            = &Error{Kind: KindConflict}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrUpstream            = &Error{Kind: KindUpstream}
)

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func DuplicateSubmission(message string) *Error {
	return &Error{Kind: KindDuplicateSubmission, Message: message}
}

func OutOfOrder(format string, args ...any) *Error {
	return &Error{Kind: KindOutOfOrder, Message: fmt.Sprintf(format, args...)}
}

func InvalidAmount(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidAmount, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

func Unauthorized(message string, err error) *Error {
	return &Error{Kind: KindUnauthorized, Message: message, Err: err}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func RateLimited() *Error {
	return &Error{Kind: KindRateLimited, Message: "rate limit exceeded"}
}

// Upstream wraps a failure of an external provider (identity, database, LLM, chain).
func Upstream(provider string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: provider + " unavailable", Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the kind of err, KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// From returns err as an *Error, classifying unknown errors as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("internal server error", err)
}
