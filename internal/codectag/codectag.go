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

// Package codectag injects codec struct tag entries into Go source files.
//
// protoc-gen-go marks every length-delimited byte-buffer field with a
// protobuf struct tag whose wire type is "bytes". codectag scans struct
// declarations for such fields and appends a codec:"<name>" entry to each
// field's tag, pointing the JSON side ([tagjson]) at a named [fieldcodec]
// encoding. The rewrite touches only the tag literals of matched fields;
// every other byte of the file, including comments, formatting, and field
// order, is carried through unchanged.
//
// Structs opt in with a directive in their doc comment:
//
//	//picorpc:codec hex
//	type Frame struct {
//		Payload []byte `protobuf:"bytes,1,opt,name=payload,proto3" json:"payload,omitempty"`
//	}
//
// Alternatively, a default codec can be applied to every struct in a batch,
// which suits generated .pb.go files that would lose hand-written
// directives on regeneration. A struct-level directive wins over the
// default. The codec name is propagated verbatim; codectag doesn't check
// that it names a registered encoding, so a bad name surfaces later as a
// marshal-time error from tagjson.
package codectag

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// Options configures a rewrite.
type Options struct {
	// DefaultCodec is applied to structs without a picorpc:codec
	// directive. When empty, only structs carrying a directive are
	// rewritten.
	DefaultCodec string
}

// Rewrite returns the contents of the Go source file src with codec tag
// entries added to every matching field. The result is src itself when
// nothing matches, so a no-op run emits byte-identical output. filename is
// used for positions in diagnostics only; Rewrite never touches the
// filesystem.
func Rewrite(filename string, src []byte, options Options) ([]byte, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	var edits []edit
	var walkErr error
	ast.Inspect(file, func(node ast.Node) bool {
		if walkErr != nil {
			return false
		}
		genDecl, ok := node.(*ast.GenDecl)
		if !ok || genDecl.Tok != token.TYPE {
			return true
		}
		for _, spec := range genDecl.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			doc := typeSpec.Doc
			if doc == nil && len(genDecl.Specs) == 1 {
				// An undocumented spec in a single-spec declaration
				// inherits the declaration's doc comment.
				doc = genDecl.Doc
			}
			dir, err := parseDirective(fset, doc)
			if err != nil {
				walkErr = err
				return false
			}
			structType, ok := typeSpec.Type.(*ast.StructType)
			if !ok {
				if dir != nil {
					walkErr = fmt.Errorf(
						"%s: picorpc:codec directive on non-struct type %s",
						fset.Position(dir.pos), typeSpec.Name.Name,
					)
					return false
				}
				continue
			}
			codecName := options.DefaultCodec
			if dir != nil {
				codecName = dir.codec
			}
			if codecName == "" {
				continue
			}
			edits = append(edits, rewriteStruct(fset, src, structType, codecName)...)
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return applyEdits(src, edits), nil
}

// rewriteStruct computes the edits for one struct declaration. Fields
// without a tag can't carry the protobuf marker, so they never match.
func rewriteStruct(fset *token.FileSet, src []byte, structType *ast.StructType, codecName string) []edit {
	var edits []edit
	for _, field := range structType.Fields.List {
		if field.Tag == nil {
			continue
		}
		tagText, ok := parseTagLiteral(field.Tag.Value)
		if !ok {
			// Not a valid string literal; the compiler reports it.
			continue
		}
		if !wireTypeBytes(tagText) || !isByteBuffer(field.Type) {
			continue
		}
		if fieldEdit, changed := codecEntryEdit(fset, src, field.Tag, tagText, codecName); changed {
			edits = append(edits, fieldEdit)
		}
	}
	return edits
}

const directivePrefix = "//picorpc:codec"

type directive struct {
	codec string
	pos   token.Pos
}

// parseDirective extracts the picorpc:codec directive from a doc comment
// group. The directive takes exactly one argument, the codec name; a
// missing or extra argument is the tool's single failure class.
func parseDirective(fset *token.FileSet, doc *ast.CommentGroup) (*directive, error) {
	if doc == nil {
		return nil, nil
	}
	for _, comment := range doc.List {
		text := comment.Text
		if !strings.HasPrefix(text, directivePrefix) {
			continue
		}
		rest := text[len(directivePrefix):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			// A longer word sharing the prefix, not our directive.
			continue
		}
		args := strings.Fields(rest)
		switch len(args) {
		case 0:
			return nil, fmt.Errorf(
				"%s: picorpc:codec requires a codec name",
				fset.Position(comment.Pos()),
			)
		case 1:
			return &directive{codec: args[0], pos: comment.Pos()}, nil
		default:
			return nil, fmt.Errorf(
				"%s: picorpc:codec takes exactly one codec name, got %q",
				fset.Position(comment.Pos()), strings.Join(args, " "),
			)
		}
	}
	return nil, nil
}
