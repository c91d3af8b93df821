package service

import (
	"fmt"

	"github.com/m-mizutani/eventlake/internal"
	"github.com/pkg/errors"
)

var logger = internal.Logger

// Error classes crossing service boundary. Check them by errors.Is.
var (
	// ErrStreamUnavailable means shards can not be listed or read after retries.
	ErrStreamUnavailable = errors.New("Stream is unavailable")
	// ErrWrite means records can not be published to stream after retries.
	ErrWrite = errors.New("Fail to write records to stream")
	// ErrSchemaFetch means catalog schema can not be fetched.
	ErrSchemaFetch = errors.New("Fail to fetch schema from catalog")
	// ErrObjectStore means object get/put/list failed after retries.
	ErrObjectStore = errors.New("Object store access failed")
)

// Error has error class and original error.
type Error struct {
	Class error
	Msg   string
	Err   error
}

func newError(class, err error, format string, args ...interface{}) error {
	return &Error{
		Class: class,
		Msg:   fmt.Sprintf(format, args...),
		Err:   err,
	}
}

func (x *Error) Error() string {
	if x.Err == nil {
		return fmt.Sprintf("%s: %s", x.Class, x.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", x.Class, x.Msg, x.Err)
}

// Is returns true if target is the error class.
func (x *Error) Is(target error) bool { return target == x.Class }

// Unwrap returns original error
func (x *Error) Unwrap() error { return x.Err }
