// Package zerror provides an error type carrying a transport agnostic status,
// a stable machine readable code and a client facing message.
package zerror

import (
	"errors"
	"fmt"
)

type ZError struct {
	parent error
	status Status
	code   string
	msg    string
}

// NewZError creates a ZError. code is an upper snake case identifier such as
// PRODUCT_NOT_FOUND.
func NewZError(parent error, status Status, code, msg string) ZError {
	return ZError{
		parent: parent,
		status: status,
		code:   code,
		msg:    msg,
	}
}

func NewNotFound(code, msg string) ZError {
	return NewZError(nil, StatusNotFound, code, msg)
}

func NewBadRequest(code, msg string) ZError {
	return NewZError(nil, StatusBadRequest, code, msg)
}

func NewValidationFailed(code, msg string) ZError {
	return NewZError(nil, StatusValidationFailed, code, msg)
}

func (e ZError) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.parent)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

// WrapParent returns a copy of e with parent as its cause. A nil parent
// leaves e unchanged.
func (e ZError) WrapParent(parent error) ZError {
	if parent == nil {
		return e
	}
	e.parent = parent
	return e
}

// WithMsg returns a copy of e with a more specific message.
func (e ZError) WithMsg(msg string) ZError {
	e.msg = msg
	return e
}

func (e ZError) Unwrap() error {
	return e.parent
}

// Is matches any ZError with the same code, so a copy made by WithMsg or
// WrapParent still matches the original.
func (e ZError) Is(target error) bool {
	t, ok := target.(ZError)
	return ok && e.code == t.code
}

func (e ZError) Status() Status { return e.status }
func (e ZError) Code() string   { return e.code }
func (e ZError) Msg() string    { return e.msg }
func (e ZError) Parent() error  { return e.parent }

// As returns the first ZError in err's chain.
func As(err error) (ZError, bool) {
	var zErr ZError
	if errors.As(err, &zErr) {
		return zErr, true
	}
	return ZError{}, false
}
