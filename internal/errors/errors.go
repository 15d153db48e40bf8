package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

type Code codes.Code

const (
	CodeInvalidArgument = Code(codes.InvalidArgument)
	CodeNotFound        = Code(codes.NotFound)
	CodePersistence     = Code(codes.Aborted)
	CodeInternal        = Code(codes.Internal)
)

// Store failures are reported to clients as bad requests with a generic message.
var code2http = map[Code]int{
	CodeInvalidArgument: http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodePersistence:     http.StatusBadRequest,
	CodeInternal:        http.StatusInternalServerError,
}

// ErrNotFound is returned (possibly wrapped) by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

type Error struct {
	Code       Code     `json:"code"`
	Message    string   `json:"message"`
	Violations []string `json:"violations,omitempty"`
	err        error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if len(e.Violations) > 0 {
		s += fmt.Sprintf(", violations: %v", e.Violations)
	}
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

// Is reports whether target is an *Error with the same code, so callers can write
// errors.Is(err, errors.New(errors.CodeNotFound)).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}

// WithViolations attaches one human-readable message per offending field.
func WithViolations(v ...string) Option {
	return optionFunc(func(e *Error) {
		e.Violations = append(e.Violations, v...)
	})
}
