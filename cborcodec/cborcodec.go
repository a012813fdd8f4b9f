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

// Package cborcodec provides a CBOR codec for picorpc clients and handlers.
// Register it with [picorpc.WithCodec]; clients then send requests with the
// "application/cbor" content type.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. The same
// logical message always produces identical bytes. Struct fields without
// cbor tags fall back to their json tags, so types shared with the JSON
// codec keep the same field names.
package cborcodec

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/picorpc/picorpc"
)

// Name is the codec name, and "application/" + Name the content type.
const Name = "cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Types implementing encoding.TextMarshaler serialize as CBOR text
	// strings via MarshalText. Without this, types carrying their state in
	// unexported fields would serialize as empty CBOR maps.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("cborcodec: encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// When the decoder's target is any, it must pick a concrete Go map
		// type. The CBOR default is map[interface{}]interface{} (CBOR
		// allows non-string keys), which most Go code can't consume; picorpc
		// messages only use string keys.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Mirrors the TextMarshaler setting above for round-trip
		// correctness.
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("cborcodec: decoder initialization failed: " + err.Error())
	}
}

type codec struct{}

var _ picorpc.Codec = codec{}

// New returns the CBOR codec.
func New() picorpc.Codec {
	return codec{}
}

func (codec) Name() string {
	return Name
}

func (codec) Marshal(message any) ([]byte, error) {
	return encMode.Marshal(message)
}

func (codec) Unmarshal(data []byte, message any) error {
	return decMode.Unmarshal(data, message)
}
