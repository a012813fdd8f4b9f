// Copyright 2026 The PicoRPC Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package picorpc

import (
	"context"
	"errors"
	"fmt"
)

// An Error pairs a Code with an underlying Go error. Servers send the code
// and the underlying error's message over the wire, so take care not to
// leak sensitive information from public APIs.
//
// Handler implementations should return errors that can be cast to an
// *Error using the standard library's errors.As. Errors that can't be cast
// are treated as CodeUnknown.
type Error struct {
	code Code
	err  error
}

// NewError annotates any Go error with a status code.
func NewError(c Code, underlying error) *Error {
	return &Error{code: c, err: underlying}
}

// Errorf calls fmt.Errorf with the supplied template and arguments, then
// wraps the resulting error with a status code.
func Errorf(c Code, template string, args ...any) *Error {
	return NewError(c, fmt.Errorf(template, args...))
}

func (e *Error) Error() string {
	text := e.Message()
	if text == "" {
		return e.code.String()
	}
	return e.code.String() + ": " + text
}

// Unwrap allows errors.Is and errors.As access to the underlying error.
func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the error's status code.
func (e *Error) Code() Code {
	return e.code
}

// Message returns the underlying error's message without the code prefix.
func (e *Error) Message() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}

// CodeOf returns the error's status code if it is or wraps an *Error, and
// CodeUnknown otherwise.
func CodeOf(err error) Code {
	if picoErr, ok := asError(err); ok {
		return picoErr.Code()
	}
	return CodeUnknown
}

// asError uses errors.As to unwrap any error and look for an *Error.
func asError(err error) (*Error, bool) {
	var picoErr *Error
	ok := errors.As(err, &picoErr)
	return picoErr, ok
}

// wrapIfUncoded ensures that all errors are wrapped. It leaves
// already-wrapped errors unchanged, uses wrapIfContextError to apply codes
// to context.Canceled and context.DeadlineExceeded, and falls back to
// wrapping other errors with CodeUnknown.
func wrapIfUncoded(err error) error {
	if err == nil {
		return nil
	}
	maybeCoded := wrapIfContextError(err)
	if _, ok := asError(maybeCoded); ok {
		return maybeCoded
	}
	return NewError(CodeUnknown, maybeCoded)
}

// wrapIfContextError applies CodeCanceled or CodeDeadlineExceeded to Go's
// context.Canceled and context.DeadlineExceeded errors, but only if they
// haven't already been wrapped.
func wrapIfContextError(err error) error {
	if _, ok := asError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, err)
	}
	return err
}
