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

package tagjson

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/picorpc/picorpc/fieldcodec"
)

var (
	unmarshalerType     = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// unmarshalValue decodes data into v, which must be addressable.
func unmarshalValue(data []byte, v reflect.Value, depth int) error {
	if depth > maxDepth {
		return errDepth
	}
	t := v.Type()
	if pt := reflect.PointerTo(t); pt.Implements(unmarshalerType) || pt.Implements(textUnmarshalerType) {
		return json.Unmarshal(data, v.Addr().Interface())
	}
	if !codecReachable(t) {
		return json.Unmarshal(data, v.Addr().Interface())
	}
	if isJSONNull(data) {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
			v.SetZero()
		}
		return nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		return unmarshalValue(data, v.Elem(), depth+1)
	case reflect.Struct:
		return unmarshalStruct(data, v, depth)
	case reflect.Slice:
		return unmarshalSlice(data, v, depth)
	case reflect.Array:
		return unmarshalArray(data, v, depth)
	case reflect.Map:
		return unmarshalMap(data, v, depth)
	default:
		return json.Unmarshal(data, v.Addr().Interface())
	}
}

func unmarshalStruct(data []byte, v reflect.Value, depth int) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return mismatchOr(err, data, v.Type())
	}
	for _, f := range typeFields(v.Type()) {
		raw, ok := object[f.name]
		if !ok {
			// Fall back to a case-insensitive match, as encoding/json does.
			for key, value := range object {
				if strings.EqualFold(key, f.name) {
					raw, ok = value, true
					break
				}
			}
		}
		if !ok {
			continue
		}
		fv := fieldByIndexAlloc(v, f.index)
		var err error
		switch {
		case f.codecName != "":
			err = unmarshalCodecField(raw, fv, f)
		case f.quoted:
			err = unmarshalQuoted(raw, fv)
		default:
			err = unmarshalValue(raw, fv, depth+1)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func unmarshalCodecField(data []byte, v reflect.Value, f structField) error {
	codec, ok := fieldcodec.Lookup(f.codecName)
	if !ok {
		return unknownCodecError(f.name, f.codecName)
	}
	t := v.Type()
	switch {
	case isByteSlice(t):
		if isJSONNull(data) {
			v.SetZero()
			return nil
		}
		decoded, err := decodeTaggedString(data, codec, f)
		if err != nil {
			return err
		}
		v.SetBytes(decoded)
		return nil
	case t.Kind() == reflect.Pointer && isByteSlice(t.Elem()):
		if isJSONNull(data) {
			v.SetZero()
			return nil
		}
		decoded, err := decodeTaggedString(data, codec, f)
		if err != nil {
			return err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().SetBytes(decoded)
		v.Set(ptr)
		return nil
	case t.Kind() == reflect.Slice && isByteSlice(t.Elem()):
		if isJSONNull(data) {
			v.SetZero()
			return nil
		}
		var raws []json.RawMessage
		if err := json.Unmarshal(data, &raws); err != nil {
			return fieldError(f.name, fmt.Errorf("codec %q expects a JSON array, got %s", f.codecName, jsonValueKind(data)))
		}
		out := reflect.MakeSlice(t, len(raws), len(raws))
		for i, raw := range raws {
			if isJSONNull(raw) {
				continue
			}
			decoded, err := decodeTaggedString(raw, codec, f)
			if err != nil {
				return err
			}
			out.Index(i).SetBytes(decoded)
		}
		v.Set(out)
		return nil
	default:
		return badShapeError(f.name, f.codecName, t)
	}
}

func decodeTaggedString(data []byte, codec fieldcodec.Codec, f structField) ([]byte, error) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fieldError(f.name, fmt.Errorf("codec %q expects a JSON string, got %s", f.codecName, jsonValueKind(data)))
	}
	decoded, err := codec.Decode(s)
	if err != nil {
		return nil, fieldError(f.name, fmt.Errorf("codec %q: %w", f.codecName, err))
	}
	return decoded, nil
}

// unmarshalQuoted reverses the ",string" tag option: the payload is a JSON
// string whose contents are the scalar's ordinary JSON form.
func unmarshalQuoted(data []byte, v reflect.Value) error {
	if isJSONNull(data) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return json.Unmarshal([]byte(s), v.Addr().Interface())
}

func unmarshalSlice(data []byte, v reflect.Value, depth int) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return mismatchOr(err, data, v.Type())
	}
	out := reflect.MakeSlice(v.Type(), len(raws), len(raws))
	for i, raw := range raws {
		if err := unmarshalValue(raw, out.Index(i), depth+1); err != nil {
			return err
		}
	}
	v.Set(out)
	return nil
}

func unmarshalArray(data []byte, v reflect.Value, depth int) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return mismatchOr(err, data, v.Type())
	}
	n := v.Len()
	for i := 0; i < n && i < len(raws); i++ {
		if err := unmarshalValue(raws[i], v.Index(i), depth+1); err != nil {
			return err
		}
	}
	// Extra JSON elements are dropped, missing ones zero the remainder.
	for i := len(raws); i < n; i++ {
		v.Index(i).SetZero()
	}
	return nil
}

func unmarshalMap(data []byte, v reflect.Value, depth int) error {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return mismatchOr(err, data, v.Type())
	}
	t := v.Type()
	if v.IsNil() {
		v.Set(reflect.MakeMapWithSize(t, len(object)))
	}
	for name, raw := range object {
		key, err := mapKeyValue(t.Key(), name)
		if err != nil {
			return err
		}
		elem := reflect.New(t.Elem()).Elem()
		if err := unmarshalValue(raw, elem, depth+1); err != nil {
			return err
		}
		v.SetMapIndex(key, elem)
	}
	return nil
}

func mapKeyValue(t reflect.Type, name string) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		key := reflect.New(t)
		if err := key.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(name)); err != nil {
			return reflect.Value{}, err
		}
		return key.Elem(), nil
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(name).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, 64)
		if err != nil || reflect.Zero(t).OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("tagjson: cannot parse %q as map key type %s", name, t)
		}
		key := reflect.New(t).Elem()
		key.SetInt(n)
		return key, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(name, 10, 64)
		if err != nil || reflect.Zero(t).OverflowUint(n) {
			return reflect.Value{}, fmt.Errorf("tagjson: cannot parse %q as map key type %s", name, t)
		}
		key := reflect.New(t).Elem()
		key.SetUint(n)
		return key, nil
	default:
		return reflect.Value{}, fmt.Errorf("tagjson: unsupported map key type %s", t)
	}
}

func fieldByIndexAlloc(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

// mismatchOr turns a delegated decode error into a readable type mismatch
// when the input is valid JSON of the wrong shape, and passes syntax errors
// through untouched.
func mismatchOr(err error, data []byte, t reflect.Type) error {
	if json.Valid(data) {
		return fmt.Errorf("tagjson: cannot unmarshal %s into %s", jsonValueKind(data), t)
	}
	return err
}

func isJSONNull(data []byte) bool {
	return string(bytes.TrimSpace(data)) == "null"
}

func jsonValueKind(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return "empty input"
	}
	switch trimmed[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
