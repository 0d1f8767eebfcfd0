package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Kind classifies a failure so callers can branch without string matching.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindLimitExceeded     Kind = "limit_exceeded"
	KindInvalidTransition Kind = "invalid_transition"
	KindAlreadyTerminal   Kind = "already_terminal"
	KindConflict          Kind = "conflict"
	KindDependency        Kind = "dependency"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Status returns the HTTP status a failure of this kind maps to.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindLimitExceeded:
		return http.StatusTooManyRequests
	case KindInvalidTransition, KindAlreadyTerminal:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindDependency, KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// Error is the error type returned by services and surfaced by handlers.
type Error struct {
	Kind    Kind              `json:"kind"`
	Message string            `json:"message"`
	Status  int               `json:"-"`
	Context map[string]string `json:"context,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// With attaches a context key to the error and returns it.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// New builds an error from a message and HTTP status, deriving the kind.
func New(message string, status int) *Error {
	return &Error{Kind: kindForStatus(status), Message: message, Status: status}
}

func newKind(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Status: kind.Status()}
}

func Validation(message string) *Error        { return newKind(KindValidation, message) }
func NotFound(message string) *Error          { return newKind(KindNotFound, message) }
func LimitExceeded(message string) *Error     { return newKind(KindLimitExceeded, message) }
func AlreadyTerminal(message string) *Error   { return newKind(KindAlreadyTerminal, message) }
func Conflict(message string) *Error          { return newKind(KindConflict, message) }
func Forbidden(message string) *Error         { return newKind(KindForbidden, message) }
func Unauthorized(message string) *Error      { return newKind(KindUnauthorized, message) }
func InvalidTransition(message string) *Error { return newKind(KindInvalidTransition, message) }

// Dependency wraps a failure of storage or another collaborator.
func Dependency(err error, message string) *Error {
	e := newKind(KindDependency, message)
	e.cause = err
	return e
}

// KindOf reports the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func HasKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As is a shortcut for errors.As on *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := stderrors.As(err, &e)
	return e, ok
}

func kindForStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindLimitExceeded
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	}
	return KindInternal
}

var (
	ErrNotFound            = NotFound("not found")
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrUnauthorized        = Unauthorized("unauthorized")
)

// ErrorHandler is the response used by the rate limiter when a key is throttled.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"message": "too many requests, try again in " + time.Until(info.ResetTime).Round(time.Second).String(),
		"errors":  LimitExceeded("rate limit exceeded"),
	})
}
