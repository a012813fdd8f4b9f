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
	"bytes"
	"go/ast"
	"go/token"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// edit is a byte-range replacement in the original source. start == end
// describes a pure insertion.
type edit struct {
	start, end int
	text       string
}

// applyEdits splices the edits into src. Untouched ranges are copied
// verbatim, which is what keeps the rewrite lossless outside matched tag
// literals.
func applyEdits(src []byte, edits []edit) []byte {
	if len(edits) == 0 {
		return src
	}
	sort.Slice(edits, func(i, j int) bool {
		return edits[i].start < edits[j].start
	})
	var out bytes.Buffer
	out.Grow(len(src) + 16*len(edits))
	last := 0
	for _, e := range edits {
		out.Write(src[last:e.start])
		out.WriteString(e.text)
		last = e.end
	}
	out.Write(src[last:])
	return out.Bytes()
}

// codecEntryEdit computes the edit that gives a matched field's tag a
// codec:"<name>" entry. It reports false when the tag already carries the
// entry with the same value, which makes re-runs converge: the first pass
// edits, the second is a no-op.
func codecEntryEdit(fset *token.FileSet, src []byte, tagLit *ast.BasicLit, tagText, codecName string) (edit, bool) {
	existing, hasKey := reflect.StructTag(tagText).Lookup("codec")
	if hasKey && existing == codecName {
		return edit{}, false
	}
	file := fset.File(tagLit.Pos())
	start := file.Offset(tagLit.Pos())
	end := file.Offset(tagLit.End())
	raw := tagLit.Value
	entry := "codec:" + strconv.Quote(codecName)
	if !hasKey {
		if raw[0] == '`' {
			// Append just inside the closing backquote.
			return edit{start: end - 1, end: end - 1, text: " " + entry}, true
		}
		return edit{start: start, end: end, text: quoteTagLiteral(tagText + " " + entry)}, true
	}
	// The tool owns the codec key: a stale value from an earlier run is
	// replaced in place rather than duplicated.
	valueSpan, ok := tagValueSpan(tagText, "codec")
	if !ok {
		return edit{}, false
	}
	if raw[0] == '`' {
		// Raw literals carry the tag text verbatim, so text offsets map
		// onto source offsets past the opening backquote.
		return edit{
			start: start + 1 + valueSpan.start,
			end:   start + 1 + valueSpan.end,
			text:  strconv.Quote(codecName),
		}, true
	}
	rebuilt := tagText[:valueSpan.start] + strconv.Quote(codecName) + tagText[valueSpan.end:]
	return edit{start: start, end: end, text: quoteTagLiteral(rebuilt)}, true
}

// quoteTagLiteral renders tag text as a source literal, preferring the raw
// form protoc-gen-go emits. Text that can't live between backquotes falls
// back to an interpreted literal.
func quoteTagLiteral(tagText string) string {
	if strings.ContainsAny(tagText, "`\r") {
		return strconv.Quote(tagText)
	}
	return "`" + tagText + "`"
}

type span struct {
	start, end int
}

// tagValueSpan locates the quoted value of key within decoded tag text,
// scanning with the same grammar reflect.StructTag uses. The returned
// offsets include the surrounding double quotes.
func tagValueSpan(tagText, key string) (span, bool) {
	rest := tagText
	base := 0
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] == ' ' {
			i++
		}
		rest, base = rest[i:], base+i
		if rest == "" {
			break
		}
		i = 0
		for i < len(rest) && rest[i] > ' ' && rest[i] != ':' && rest[i] != '"' && rest[i] != 0x7f {
			i++
		}
		if i == 0 || i+1 >= len(rest) || rest[i] != ':' || rest[i+1] != '"' {
			break
		}
		name := rest[:i]
		rest, base = rest[i+1:], base+i+1
		i = 1
		for i < len(rest) && rest[i] != '"' {
			if rest[i] == '\\' {
				i++
			}
			i++
		}
		if i >= len(rest) {
			break
		}
		if name == key {
			return span{start: base, end: base + i + 1}, true
		}
		rest, base = rest[i+1:], base+i+1
	}
	return span{}, false
}
