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

// Package fieldcodec defines named encodings for byte-buffer struct fields.
//
// A Codec maps a byte slice to and from a string representation. Codecs are
// registered under a name, and that name is what a `codec:"…"` struct tag
// refers to: picorpc-codectag injects the tags, and the tagjson package
// resolves them against this registry when marshaling.
package fieldcodec

import (
	"encoding/hex"
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// A Codec converts the contents of a byte-buffer field to and from the
// string form embedded in JSON output.
//
// Implementations must be safe for concurrent use; a single Codec instance
// serves every tagged field that names it.
type Codec interface {
	// Name is the identifier tagged fields use to select this codec.
	Name() string

	// Encode returns the string form of src. Encoding never fails: any
	// byte slice, including nil, has a representation.
	Encode(src []byte) string

	// Decode parses the string form produced by Encode. Implementations
	// should be liberal in what they accept when a tolerant reading is
	// unambiguous.
	Decode(s string) ([]byte, error)
}

var registry = xsync.NewMap[string, Codec]()

// Register makes a codec available under its name, replacing any codec
// previously registered under the same name. It panics if the name is
// empty, since an empty name can never be referenced from a struct tag.
func Register(codec Codec) {
	if codec.Name() == "" {
		panic("fieldcodec: Register called with an empty codec name")
	}
	registry.Store(codec.Name(), codec)
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, bool) {
	return registry.Load(name)
}

// Names returns the sorted names of all registered codecs. The returned
// slice is safe for the caller to mutate.
func Names() []string {
	names := make([]string, 0, registry.Size())
	registry.Range(func(name string, _ Codec) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func init() {
	Register(hexCodec{})
}

// hexCodec renders bytes as 0x-prefixed lowercase hex. The decoder
// tolerates input without the prefix and accepts either case.
type hexCodec struct{}

func (hexCodec) Name() string { return "hex" }

func (hexCodec) Encode(src []byte) string {
	return "0x" + hex.EncodeToString(src)
}

func (hexCodec) Decode(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
