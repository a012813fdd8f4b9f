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

// Package assert provides the small set of test assertions picorpc's own
// tests need, built on generics and go-cmp. Protobuf messages are compared
// with protocmp, so assertions work on generated types without extra
// ceremony.
package assert

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/testing/protocmp"
)

// An Option adds context to an assertion's failure output.
type Option func() string

// Sprintf attaches a formatted message to the assertion. The message is
// rendered only when the assertion fails.
func Sprintf(template string, args ...any) Option {
	msg := fmt.Sprintf(template, args...)
	return func() string { return msg }
}

// Equal asserts that got and want are equal.
func Equal[T any](t testing.TB, got, want T, options ...Option) bool {
	t.Helper()
	if equal(got, want) {
		return true
	}
	fail(t, "assert.Equal", got, want, true, options)
	return false
}

// NotEqual asserts that got and want are different.
func NotEqual[T any](t testing.TB, got, want T, options ...Option) bool {
	t.Helper()
	if !equal(got, want) {
		return true
	}
	fail(t, "assert.NotEqual", got, want, true, options)
	return false
}

// Nil asserts that the value is nil. Typed nil pointers, slices, maps,
// channels, and functions count as nil even when wrapped in a non-nil
// interface.
func Nil(t testing.TB, got any, options ...Option) bool {
	t.Helper()
	if isNil(got) {
		return true
	}
	fail(t, "assert.Nil", got, nil, false, options)
	return false
}

// NotNil asserts that the value isn't nil.
func NotNil(t testing.TB, got any, options ...Option) bool {
	t.Helper()
	if !isNil(got) {
		return true
	}
	fail(t, "assert.NotNil", got, nil, false, options)
	return false
}

// Zero asserts that the value is its type's zero value.
func Zero[T any](t testing.TB, got T, options ...Option) bool {
	t.Helper()
	var want T
	if equal(got, want) {
		return true
	}
	fail(t, fmt.Sprintf("assert.Zero (type %T)", got), got, want, false, options)
	return false
}

// True asserts that got is true.
func True(t testing.TB, got bool, options ...Option) bool {
	t.Helper()
	if got {
		return true
	}
	fail(t, "assert.True", got, true, false, options)
	return false
}

// False asserts that got is false.
func False(t testing.TB, got bool, options ...Option) bool {
	t.Helper()
	if !got {
		return true
	}
	fail(t, "assert.False", got, false, false, options)
	return false
}

// Match asserts that got matches the regular expression want.
func Match(t testing.TB, got, want string, options ...Option) bool {
	t.Helper()
	re, err := regexp.Compile(want)
	if err != nil {
		t.Fatalf("invalid regexp %q: %v", want, err)
	}
	if re.MatchString(got) {
		return true
	}
	fail(t, "assert.Match", got, want, true, options)
	return false
}

// ErrorIs asserts that want is in got's error chain, as defined by the
// standard library's errors.Is.
func ErrorIs(t testing.TB, got, want error, options ...Option) bool {
	t.Helper()
	if errors.Is(got, want) {
		return true
	}
	fail(t, "assert.ErrorIs", got, want, true, options)
	return false
}

// Panics asserts that calling the function panics.
func Panics(t testing.TB, panicker func(), options ...Option) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			fail(t, "assert.Panics", r, nil, false, options)
		}
	}()
	panicker()
}

func fail(t testing.TB, desc string, got, want any, showWant bool, options []Option) {
	t.Helper()
	var sb strings.Builder
	fmt.Fprintf(&sb, "assertion:\t%s\n", desc)
	fmt.Fprintf(&sb, "got:\t%+v\n", got)
	if showWant {
		fmt.Fprintf(&sb, "want:\t%+v\n", want)
	}
	for _, option := range options {
		sb.WriteString(option())
		sb.WriteString("\n")
	}
	t.Fatal(sb.String())
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	// A non-nil interface may still wrap a nil pointer, slice, or map, so
	// unwrap with reflection before giving up.
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}

func equal(got, want any) bool {
	return cmp.Equal(got, want, protocmp.Transform())
}
