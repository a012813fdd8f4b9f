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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagged converts ~ to backquotes so fixtures with struct tags can be
// written as raw string literals.
func tagged(src string) string {
	return strings.ReplaceAll(src, "~", "`")
}

func TestRewriteSingleMatch(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

// Frame is one length-prefixed message on the wire.
//picorpc:codec hex
type Frame struct {
	// Payload is the raw body.
	Payload []byte ~protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty"~

	Kind  string ~protobuf:"bytes,1,opt,name=kind,proto3" json:"kind,omitempty"~
	Count int32  ~protobuf:"varint,3,opt,name=count,proto3" json:"count,omitempty"~
}
`)
	want := tagged(`package wire

// Frame is one length-prefixed message on the wire.
//picorpc:codec hex
type Frame struct {
	// Payload is the raw body.
	Payload []byte ~protobuf:"bytes,2,opt,name=payload,proto3" json:"payload,omitempty" codec:"hex"~

	Kind  string ~protobuf:"bytes,1,opt,name=kind,proto3" json:"kind,omitempty"~
	Count int32  ~protobuf:"varint,3,opt,name=count,proto3" json:"count,omitempty"~
}
`)
	got, err := Rewrite("frame.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestRewriteZeroMatchesIsByteIdentical(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

//picorpc:codec hex
type Header struct {
	Kind     string   ~protobuf:"bytes,1,opt,name=kind,proto3" json:"kind,omitempty"~
	Count    int32    ~protobuf:"varint,2,opt,name=count,proto3" json:"count,omitempty"~
	Checksum [16]byte ~protobuf:"bytes,3,opt,name=checksum,proto3" json:"checksum,omitempty"~
}

type untouched struct {
	blob []byte
}
`)
	got, err := Rewrite("header.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, src, string(got))
}

func TestRewriteMultipleMatches(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

//picorpc:codec zstd
type Batch struct {
	First  []byte   ~protobuf:"bytes,1,opt,name=first,proto3" json:"first,omitempty"~
	Label  string   ~protobuf:"bytes,2,opt,name=label,proto3" json:"label,omitempty"~
	Chunks [][]byte ~protobuf:"bytes,3,rep,name=chunks,proto3" json:"chunks,omitempty"~
}
`)
	want := tagged(`package wire

//picorpc:codec zstd
type Batch struct {
	First  []byte   ~protobuf:"bytes,1,opt,name=first,proto3" json:"first,omitempty" codec:"zstd"~
	Label  string   ~protobuf:"bytes,2,opt,name=label,proto3" json:"label,omitempty"~
	Chunks [][]byte ~protobuf:"bytes,3,rep,name=chunks,proto3" json:"chunks,omitempty" codec:"zstd"~
}
`)
	got, err := Rewrite("batch.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestRewriteMatchPrecision(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		field       string
		wantChanged bool
	}{
		{
			name:        "byte slice matches",
			field:       `Data []byte ~protobuf:"bytes,1,opt,name=data,proto3"~`,
			wantChanged: true,
		},
		{
			name:        "repeated byte slice matches",
			field:       `Chunks [][]byte ~protobuf:"bytes,1,rep,name=chunks,proto3"~`,
			wantChanged: true,
		},
		{
			name:        "pointer to byte slice matches",
			field:       `Data *[]byte ~protobuf:"bytes,1,opt,name=data,proto3"~`,
			wantChanged: true,
		},
		{
			name:        "uint8 spelling matches",
			field:       `Data []uint8 ~protobuf:"bytes,1,opt,name=data,proto3"~`,
			wantChanged: true,
		},
		{
			name:        "fixed-size array does not match",
			field:       `Sum [32]byte ~protobuf:"bytes,1,opt,name=sum,proto3"~`,
			wantChanged: false,
		},
		{
			name:        "string shares the wire type but not the shape",
			field:       `Name string ~protobuf:"bytes,1,opt,name=name,proto3"~`,
			wantChanged: false,
		},
		{
			name:        "named wrapper type does not match",
			field:       `Body *wrapperspb.BytesValue ~protobuf:"bytes,1,opt,name=body,proto3"~`,
			wantChanged: false,
		},
		{
			name:        "byte slice without a protobuf entry does not match",
			field:       `Data []byte ~json:"data,omitempty"~`,
			wantChanged: false,
		},
		{
			name:        "byte slice with a varint wire type does not match",
			field:       `Data []byte ~protobuf:"varint,1,opt,name=data,proto3"~`,
			wantChanged: false,
		},
		{
			name:        "untagged byte slice does not match",
			field:       `Data []byte`,
			wantChanged: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := tagged(fmt.Sprintf(`package wire

//picorpc:codec hex
type Message struct {
	%s
}
`, tt.field))
			got, err := Rewrite("message.go", []byte(src), Options{})
			require.NoError(t, err)
			changed := string(got) != src
			assert.Equal(t, tt.wantChanged, changed)
			if tt.wantChanged {
				assert.Equal(t, 1, strings.Count(string(got), `codec:"hex"`))
			}
		})
	}
}

func TestRewriteConverges(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3" json:"payload,omitempty"~
}
`)
	first, err := Rewrite("frame.go", []byte(src), Options{DefaultCodec: "hex"})
	require.NoError(t, err)
	require.Contains(t, string(first), `codec:"hex"`)

	t.Run("second run is a no-op", func(t *testing.T) {
		second, err := Rewrite("frame.go", first, Options{DefaultCodec: "hex"})
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	})
	t.Run("stale value is replaced, not duplicated", func(t *testing.T) {
		got, err := Rewrite("frame.go", first, Options{DefaultCodec: "base64"})
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(string(got), "codec:"))
		assert.Contains(t, string(got), `codec:"base64"`)
		assert.NotContains(t, string(got), `codec:"hex"`)
	})
}

func TestRewriteDefaultCodec(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

type Plain struct {
	Data []byte ~protobuf:"bytes,1,opt,name=data,proto3"~
}

//picorpc:codec hex
type Tagged struct {
	Data []byte ~protobuf:"bytes,1,opt,name=data,proto3"~
}
`)
	got, err := Rewrite("wire.go", []byte(src), Options{DefaultCodec: "base64"})
	require.NoError(t, err)
	assert.Contains(t, string(got), tagged(`Data []byte ~protobuf:"bytes,1,opt,name=data,proto3" codec:"base64"~
}

//picorpc:codec hex`))
	// The struct-level directive wins over the default.
	assert.Contains(t, string(got), `codec:"hex"`)
}

func TestRewritePropagatesNameVerbatim(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

//picorpc:codec x25519.v2_raw
type Sealed struct {
	Box []byte ~protobuf:"bytes,1,opt,name=box,proto3"~
}
`)
	got, err := Rewrite("sealed.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(got), `codec:"x25519.v2_raw"`)
}

func TestRewriteGroupedTypeDecl(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

type (
	// Frame opts in.
	//picorpc:codec hex
	Frame struct {
		Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
	}

	// Meta does not.
	Meta struct {
		Note []byte ~protobuf:"bytes,1,opt,name=note,proto3"~
	}
)
`)
	got, err := Rewrite("wire.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(got), tagged(`Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3" codec:"hex"~`))
	assert.Contains(t, string(got), tagged(`Note []byte ~protobuf:"bytes,1,opt,name=note,proto3"~`))
}

func TestRewriteDirectiveForms(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		comment     string
		wantChanged bool
	}{
		{
			name:        "canonical form",
			comment:     "//picorpc:codec hex",
			wantChanged: true,
		},
		{
			name:        "space after slashes is a plain comment",
			comment:     "// picorpc:codec hex",
			wantChanged: false,
		},
		{
			name:        "longer word sharing the prefix",
			comment:     "//picorpc:codecs hex",
			wantChanged: false,
		},
		{
			name:        "tab before the argument",
			comment:     "//picorpc:codec\they",
			wantChanged: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := tagged(fmt.Sprintf(`package wire

%s
type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
}
`, tt.comment))
			got, err := Rewrite("frame.go", []byte(src), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, string(got) != src)
		})
	}
}

func TestRewriteMissingDirectiveArgument(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

//picorpc:codec
type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
}
`)
	got, err := Rewrite("frame.go", []byte(src), Options{})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "frame.go:3")
	assert.Contains(t, err.Error(), "requires a codec name")
}

func TestRewriteDirectiveTrailingGarbage(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

//picorpc:codec hex and more
type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
}
`)
	got, err := Rewrite("frame.go", []byte(src), Options{})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "exactly one codec name")
	assert.Contains(t, err.Error(), `"hex and more"`)
}

func TestRewriteDirectiveOnNonStruct(t *testing.T) {
	t.Parallel()
	src := `package wire

//picorpc:codec hex
type ID string
`
	got, err := Rewrite("id.go", []byte(src), Options{})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "non-struct type ID")
}

func TestRewriteParseError(t *testing.T) {
	t.Parallel()
	got, err := Rewrite("broken.go", []byte("package wire\n\nfunc {\n"), Options{})
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "broken.go")
}

func TestRewriteInterpretedTagLiteral(t *testing.T) {
	t.Parallel()
	src := `package wire

//picorpc:codec hex
type Frame struct {
	Payload []byte "protobuf:\"bytes,1,opt,name=payload,proto3\""
}
`
	want := tagged(`package wire

//picorpc:codec hex
type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3" codec:"hex"~
}
`)
	got, err := Rewrite("frame.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Equal(t, want, string(got))
}

func TestRewriteFunctionLocalType(t *testing.T) {
	t.Parallel()
	src := tagged(`package wire

func decode() {
	//picorpc:codec hex
	type frame struct {
		Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
	}
	_ = frame{}
}
`)
	got, err := Rewrite("local.go", []byte(src), Options{})
	require.NoError(t, err)
	assert.Contains(t, string(got), `codec:"hex"`)
}

func TestRewriteFiles(t *testing.T) {
	t.Parallel()
	matched := tagged(`package wire

//picorpc:codec hex
type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
}
`)
	clean := `package wire

type Header struct {
	Kind string
}
`
	broken := tagged(`package wire

//picorpc:codec
type Frame struct {
	Payload []byte ~protobuf:"bytes,1,opt,name=payload,proto3"~
}
`)
	dir := t.TempDir()
	write := func(name, contents string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
		return path
	}
	matchedPath := write("matched.go", matched)
	cleanPath := write("clean.go", clean)
	brokenPath := write("broken.go", broken)

	t.Run("rewrites every file", func(t *testing.T) {
		results, err := RewriteFiles([]string{matchedPath, cleanPath}, Options{})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, results[0].Changed)
		assert.Contains(t, string(results[0].Output), `codec:"hex"`)
		assert.False(t, results[1].Changed)
		assert.Equal(t, clean, string(results[1].Output))
	})
	t.Run("one diagnostic aborts the batch", func(t *testing.T) {
		results, err := RewriteFiles([]string{matchedPath, brokenPath}, Options{})
		require.Error(t, err)
		assert.Nil(t, results)
		assert.Contains(t, err.Error(), "broken.go")
	})
	t.Run("unreadable file aborts the batch", func(t *testing.T) {
		results, err := RewriteFiles([]string{filepath.Join(dir, "missing.go")}, Options{})
		require.Error(t, err)
		assert.Nil(t, results)
	})
}
