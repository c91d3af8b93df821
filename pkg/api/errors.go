package api

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Error is error of API with HTTP status code and message for client.
type Error interface {
	Error() string
	Code() int
	Message() string
	Cause() error
}

type baseError struct {
	Err  error
	Msg  string
	Code int
}

func (x *baseError) Message() string {
	if x.Msg != "" {
		return x.Msg
	}
	return x.Err.Error()
}

func (x *baseError) Cause() error {
	return x.Err
}

func (x *baseError) detail() string {
	if x.Err == nil {
		return x.Msg
	}
	return x.Msg + ": " + x.Err.Error()
}

// userError is caused by request of client.
type userError struct{ baseError }

func (x *userError) Error() string { return "UserError: " + x.detail() }
func (x *userError) Code() int {
	if x.baseError.Code > 0 {
		return x.baseError.Code
	}
	return http.StatusBadRequest
}

func wrapUserError(err error, msg string) Error {
	return &userError{baseError: baseError{Err: errors.Wrap(err, msg), Msg: msg}}
}

func newUserErrorf(msg string, args ...interface{}) Error {
	return &userError{baseError: baseError{Msg: fmt.Sprintf(msg, args...)}}
}

// systemError is caused by server side or upstream service.
type systemError struct{ baseError }

func (x *systemError) Error() string { return "SystemError: " + x.detail() }
func (x *systemError) Code() int {
	if x.baseError.Code > 0 {
		return x.baseError.Code
	}
	return http.StatusInternalServerError
}

func wrapSystemError(err error, code int, msg string) Error {
	return &systemError{baseError: baseError{Err: errors.Wrap(err, msg), Msg: msg, Code: code}}
}
