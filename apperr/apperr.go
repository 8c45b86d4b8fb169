package apperr

import "errors"

// Kind classifies an error for the caller. The transport layer that embeds
// this core decides how each kind maps onto its own protocol.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindStore
	KindBatch
)

type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func Validation(code, msg string, err error) *Error {
	return newError(KindValidation, code, msg, err)
}

func NotFound(code, msg string, err error) *Error {
	return newError(KindNotFound, code, msg, err)
}

func Store(code, msg string, err error) *Error {
	return newError(KindStore, code, msg, err)
}

func Batch(code, msg string, err error) *Error {
	return newError(KindBatch, code, msg, err)
}

func Internal(code, msg string, err error) *Error {
	return newError(KindInternal, code, msg, err)
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal_error", "internal error", err)
}

func newError(kind Kind, code, msg string, err error) *Error {
	return &Error{
		Kind:    kind,
		Code:    code,
		Message: msg,
		Err:     err,
	}
}
