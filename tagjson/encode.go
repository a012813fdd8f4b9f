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
	"sort"
	"strconv"

	"github.com/picorpc/picorpc/fieldcodec"
)

var (
	marshalerType     = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func marshalValue(buf *bytes.Buffer, v reflect.Value, depth int) error {
	if depth > maxDepth {
		return errDepth
	}
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}
	t := v.Type()
	// Custom marshalers take precedence over the structural walk, exactly as
	// they would under encoding/json.
	if t.Implements(marshalerType) || t.Implements(textMarshalerType) {
		return writeStdJSON(buf, v.Interface())
	}
	if v.CanAddr() {
		if pt := reflect.PointerTo(t); pt.Implements(marshalerType) || pt.Implements(textMarshalerType) {
			return writeStdJSON(buf, v.Addr().Interface())
		}
	}
	if !codecReachable(t) {
		return writeStdJSON(buf, v.Interface())
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return marshalValue(buf, v.Elem(), depth+1)
	case reflect.Struct:
		return marshalStruct(buf, v, depth)
	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return marshalArray(buf, v, depth)
	case reflect.Array:
		return marshalArray(buf, v, depth)
	case reflect.Map:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return marshalMap(buf, v, depth)
	default:
		return writeStdJSON(buf, v.Interface())
	}
}

func marshalStruct(buf *bytes.Buffer, v reflect.Value, depth int) error {
	buf.WriteByte('{')
	first := true
	for _, f := range typeFields(v.Type()) {
		fv := fieldByIndex(v, f.index)
		if !fv.IsValid() {
			// A nil embedded pointer on the path hides the field.
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if f.omitZero && isZeroValue(fv) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeStdJSON(buf, f.name); err != nil {
			return err
		}
		buf.WriteByte(':')
		var err error
		switch {
		case f.codecName != "":
			err = marshalCodecField(buf, fv, f)
		case f.quoted:
			err = marshalQuoted(buf, fv)
		default:
			err = marshalValue(buf, fv, depth+1)
		}
		if err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func marshalCodecField(buf *bytes.Buffer, v reflect.Value, f structField) error {
	codec, ok := fieldcodec.Lookup(f.codecName)
	if !ok {
		return unknownCodecError(f.name, f.codecName)
	}
	t := v.Type()
	switch {
	case isByteSlice(t):
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeStdJSON(buf, codec.Encode(v.Bytes()))
	case t.Kind() == reflect.Pointer && isByteSlice(t.Elem()):
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeStdJSON(buf, codec.Encode(v.Elem().Bytes()))
	case t.Kind() == reflect.Slice && isByteSlice(t.Elem()):
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('[')
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeStdJSON(buf, codec.Encode(v.Index(i).Bytes())); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return badShapeError(f.name, f.codecName, t)
	}
}

// marshalQuoted handles the ",string" tag option: the scalar's ordinary JSON
// form wrapped in a JSON string.
func marshalQuoted(buf *bytes.Buffer, v reflect.Value) error {
	inner, err := json.Marshal(v.Interface())
	if err != nil {
		return err
	}
	return writeStdJSON(buf, string(inner))
}

func marshalArray(buf *bytes.Buffer, v reflect.Value, depth int) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalValue(buf, v.Index(i), depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalMap(buf *bytes.Buffer, v reflect.Value, depth int) error {
	type mapEntry struct {
		name  string
		value reflect.Value
	}
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		name, err := mapKeyString(iter.Key())
		if err != nil {
			return err
		}
		entries = append(entries, mapEntry{name, iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	buf.WriteByte('{')
	for i, entry := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeStdJSON(buf, entry.name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, entry.value, depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func mapKeyString(k reflect.Value) (string, error) {
	if k.Type().Implements(textMarshalerType) {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		text, err := k.Interface().(encoding.TextMarshaler).MarshalText()
		return string(text), err
	}
	switch k.Kind() {
	case reflect.String:
		return k.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	default:
		return "", fmt.Errorf("tagjson: unsupported map key type %s", k.Type())
	}
}

func writeStdJSON(buf *bytes.Buffer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func fieldByIndex(v reflect.Value, index []int) reflect.Value {
	for _, i := range index {
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Value{}
			}
			v = v.Elem()
		}
		v = v.Field(i)
	}
	return v
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	default:
		return false
	}
}

type isZeroer interface{ IsZero() bool }

var isZeroerType = reflect.TypeOf((*isZeroer)(nil)).Elem()

func isZeroValue(v reflect.Value) bool {
	t := v.Type()
	if t.Implements(isZeroerType) {
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return true
		}
		return v.Interface().(isZeroer).IsZero()
	}
	if v.CanAddr() {
		if pt := reflect.PointerTo(t); pt.Implements(isZeroerType) {
			return v.Addr().Interface().(isZeroer).IsZero()
		}
	}
	return v.IsZero()
}
