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

package codectag

import (
	"go/ast"
	"reflect"
	"strconv"
	"strings"
)

// wireTypeBytes reports whether the tag's protobuf entry declares the
// length-delimited "bytes" wire type. Strings share that wire type on the
// protobuf side but keep their own Go representation, which is why the
// type shape check in isByteBuffer exists alongside this one.
func wireTypeBytes(tagText string) bool {
	value, ok := reflect.StructTag(tagText).Lookup("protobuf")
	if !ok {
		return false
	}
	wireType, _, _ := strings.Cut(value, ",")
	return wireType == "bytes"
}

// isByteBuffer reports whether the field type is a growable byte buffer:
// []byte, [][]byte, or *[]byte. Fixed-size arrays, strings, and named
// wrapper types deliberately don't match; they encode their payloads
// through their own representations and a blanket rewrite would corrupt
// them.
func isByteBuffer(expr ast.Expr) bool {
	switch t := expr.(type) {
	case *ast.ArrayType:
		if t.Len != nil {
			return false
		}
		if inner, ok := t.Elt.(*ast.ArrayType); ok {
			return inner.Len == nil && isByteIdent(inner.Elt)
		}
		return isByteIdent(t.Elt)
	case *ast.StarExpr:
		inner, ok := t.X.(*ast.ArrayType)
		return ok && inner.Len == nil && isByteIdent(inner.Elt)
	}
	return false
}

// isByteIdent accepts both spellings of the byte type. protoc-gen-go
// emits []byte, but []uint8 is the identical type and hand-maintained
// messages occasionally use it.
func isByteIdent(expr ast.Expr) bool {
	ident, ok := expr.(*ast.Ident)
	return ok && (ident.Name == "byte" || ident.Name == "uint8")
}

// parseTagLiteral unquotes a struct tag literal. Both raw and interpreted
// string literals are legal tag carriers.
func parseTagLiteral(literal string) (string, bool) {
	tagText, err := strconv.Unquote(literal)
	if err != nil {
		return "", false
	}
	return tagText, true
}
