// Package apperr defines the error kinds shared by the server and the
// upload client. Every error that crosses a package boundary should be
// (or wrap) an *Error so callers can branch on Kind instead of strings.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindConfiguration Kind = "configuration"
	KindUpstream      Kind = "upstream"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindSignature     Kind = "signature"
	KindTransientIO   Kind = "transient_io"
	KindInternal      Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s, %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.NotFound(""))
// style checks work without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Message: msg, Err: err}
}

func Validation(msg string) *Error    { return New(KindValidation, msg) }
func Auth(msg string) *Error          { return New(KindAuth, msg) }
func Configuration(msg string) *Error { return New(KindConfiguration, msg) }
func NotFound(msg string) *Error      { return New(KindNotFound, msg) }
func Conflict(msg string) *Error      { return New(KindConflict, msg) }
func Signature(msg string) *Error     { return New(KindSignature, msg) }

func Upstream(msg string, err error) *Error    { return Wrap(KindUpstream, msg, err) }
func TransientIO(msg string, err error) *Error { return Wrap(KindTransientIO, msg, err) }
func Internal(msg string, err error) *Error    { return Wrap(KindInternal, msg, err) }

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindInternal
}

// Message returns the user facing message of err. Internal errors never
// leak their cause.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}

	return "Internal server error"
}

func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth, KindSignature:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	case KindConfiguration:
		return http.StatusServiceUnavailable
	case KindTransientIO:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromCode maps the "code" field of an error response back to a Kind.
// Unknown codes fall back to a guess based on the HTTP status.
func FromCode(code string, status int) Kind {
	switch k := Kind(code); k {
	case KindValidation, KindAuth, KindConfiguration, KindUpstream, KindNotFound,
		KindConflict, KindSignature, KindTransientIO, KindInternal:
		return k
	}

	switch {
	case status == http.StatusBadRequest || status == http.StatusRequestEntityTooLarge:
		return KindValidation
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadGateway || status == http.StatusGatewayTimeout:
		return KindUpstream
	case status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests:
		return KindTransientIO
	default:
		return KindInternal
	}
}
