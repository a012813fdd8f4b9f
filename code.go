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
	"fmt"
	"net/http"
)

// A Code classifies an RPC error. picorpc uses the subset of gRPC's
// canonical status codes that unary RPCs can actually produce, keeping the
// canonical numbering so the values stay recognizable. There are no
// user-defined codes.
type Code uint32

const (
	CodeCanceled         Code = 1  // canceled, usually by the caller
	CodeUnknown          Code = 2  // unknown error
	CodeInvalidArgument  Code = 3  // request could not be decoded or was rejected
	CodeDeadlineExceeded Code = 4  // deadline expired before the call completed
	CodeNotFound         Code = 5  // entity not found
	CodeUnimplemented    Code = 12 // procedure not known to the server
	CodeInternal         Code = 13 // serious server-side error
	CodeUnavailable      Code = 14 // transport failure, safe to retry
)

var (
	codeToText = map[Code]string{
		CodeCanceled:         "canceled",
		CodeUnknown:          "unknown",
		CodeInvalidArgument:  "invalid_argument",
		CodeDeadlineExceeded: "deadline_exceeded",
		CodeNotFound:         "not_found",
		CodeUnimplemented:    "unimplemented",
		CodeInternal:         "internal",
		CodeUnavailable:      "unavailable",
	}
	textToCode = map[string]Code{
		"canceled":          CodeCanceled,
		"unknown":           CodeUnknown,
		"invalid_argument":  CodeInvalidArgument,
		"deadline_exceeded": CodeDeadlineExceeded,
		"not_found":         CodeNotFound,
		"unimplemented":     CodeUnimplemented,
		"internal":          CodeInternal,
		"unavailable":       CodeUnavailable,
	}
	codeToHTTP = map[Code]int{
		// Statuses are numbers rather than net/http constants to make
		// comparison with the gRPC HTTP mapping tables easy.
		CodeCanceled:         499,
		CodeUnknown:          500,
		CodeInvalidArgument:  400,
		CodeDeadlineExceeded: 504,
		CodeNotFound:         404,
		CodeUnimplemented:    501,
		CodeInternal:         500,
		CodeUnavailable:      503,
	}
	// httpToCode is the fallback for responses without a parseable error
	// envelope, for example from proxies in front of a picorpc server. It is
	// deliberately not the inverse of codeToHTTP.
	httpToCode = map[int]Code{
		400: CodeInternal,
		404: CodeUnimplemented,
		405: CodeUnimplemented,
		408: CodeDeadlineExceeded,
		415: CodeInternal,
		429: CodeUnavailable,
		502: CodeUnavailable,
		503: CodeUnavailable,
		504: CodeUnavailable,
		// Everything else maps to CodeUnknown.
	}
)

// MarshalText implements encoding.TextMarshaler, emitting the snake_case
// form sent on the wire (for example "not_found").
func (c Code) MarshalText() ([]byte, error) {
	if text, ok := codeToText[c]; ok {
		return []byte(text), nil
	}
	return nil, fmt.Errorf("invalid code %v", uint32(c))
}

// UnmarshalText implements encoding.TextUnmarshaler, accepting the
// snake_case form produced by MarshalText.
func (c *Code) UnmarshalText(data []byte) error {
	if code, ok := textToCode[string(data)]; ok {
		*c = code
		return nil
	}
	return fmt.Errorf("invalid code %q", string(data))
}

func (c Code) http() int {
	if status, ok := codeToHTTP[c]; ok {
		return status
	}
	// An invalid code is definitely a 500.
	return http.StatusInternalServerError
}

func codeFromHTTP(status int) Code {
	if code, ok := httpToCode[status]; ok {
		return code
	}
	return CodeUnknown
}

func (c Code) String() string {
	switch c {
	case CodeCanceled:
		return "Canceled"
	case CodeUnknown:
		return "Unknown"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeDeadlineExceeded:
		return "DeadlineExceeded"
	case CodeNotFound:
		return "NotFound"
	case CodeUnimplemented:
		return "Unimplemented"
	case CodeInternal:
		return "Internal"
	case CodeUnavailable:
		return "Unavailable"
	}
	return fmt.Sprintf("Code(%d)", uint32(c))
}
