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

// Package tagjson marshals and unmarshals JSON like the standard library's
// encoding/json, except that struct fields tagged codec:"name" pass their
// bytes through the named [fieldcodec.Codec] instead of base64.
//
// A codec tag may appear on fields of type []byte (encoded as a JSON
// string), [][]byte (an array of encoded strings), or *[]byte (an encoded
// string or null). The picorpc-codectag tool injects these tags next to the
// protobuf bytes fields it finds, so generated message types round-trip
// through tagjson with, for example, 0x-prefixed hex in place of base64.
//
// Everything else follows encoding/json: field names and omitempty come
// from the json tag, json:"-" skips a field, embedded structs flatten,
// types implementing json.Marshaler or encoding.TextMarshaler use their own
// methods, and values with no codec-tagged field anywhere in reach are
// handed to encoding/json wholesale.
package tagjson

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
)

// maxDepth bounds recursion so cyclic values fail instead of overflowing
// the stack.
const maxDepth = 1000

var errDepth = errors.New("tagjson: exceeded maximum nesting depth")

// Marshal returns the JSON encoding of v, applying the codec named by each
// codec:"name" struct tag to that field's bytes.
func Marshal(v any) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	if err := marshalValue(&buf, rv, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal parses JSON into v, decoding each codec-tagged field's string
// form with the named codec. As with encoding/json, v must be a non-nil
// pointer and unknown object keys are ignored.
func Unmarshal(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("tagjson: unmarshal target must be a non-nil pointer")
	}
	return unmarshalValue(data, rv.Elem(), 0)
}

func fieldError(name string, err error) error {
	return fmt.Errorf("tagjson: field %q: %w", name, err)
}

func unknownCodecError(field, codec string) error {
	return fmt.Errorf("tagjson: field %q: unknown codec %q", field, codec)
}

func badShapeError(field, codec string, typ reflect.Type) error {
	return fmt.Errorf("tagjson: field %q: codec %q requires []byte, [][]byte, or *[]byte, not %s", field, codec, typ)
}
