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
	"sort"
	"strings"

	"google.golang.org/protobuf/proto"

	"github.com/picorpc/picorpc/tagjson"
)

const (
	codecNameProto = "proto"
	codecNameJSON  = "json"

	contentTypePrefix = "application/"
)

// A Codec marshals structs (typically generated from a schema) to and from
// bytes. Each codec serves the Content-Type "application/" + Name().
type Codec interface {
	Name() string
	Marshal(any) ([]byte, error)
	Unmarshal([]byte, any) error
}

type protoBinaryCodec struct{}

var _ Codec = (*protoBinaryCodec)(nil)

func (c *protoBinaryCodec) Name() string { return codecNameProto }

func (c *protoBinaryCodec) Marshal(message any) ([]byte, error) {
	protoMessage, ok := message.(proto.Message)
	if !ok {
		return nil, errNotProto(message)
	}
	return proto.Marshal(protoMessage)
}

func (c *protoBinaryCodec) Unmarshal(data []byte, message any) error {
	protoMessage, ok := message.(proto.Message)
	if !ok {
		return errNotProto(message)
	}
	return proto.Unmarshal(data, protoMessage)
}

func errNotProto(message any) error {
	return fmt.Errorf("%T doesn't implement proto.Message", message)
}

// jsonCodec serializes through tagjson, so codec-tagged bytes fields use
// their named fieldcodec rather than base64. Unlike the protobuf binary
// codec it accepts any Go value, which also lets it carry error envelopes.
type jsonCodec struct{}

var _ Codec = (*jsonCodec)(nil)

func (c *jsonCodec) Name() string { return codecNameJSON }

func (c *jsonCodec) Marshal(message any) ([]byte, error) {
	return tagjson.Marshal(message)
}

func (c *jsonCodec) Unmarshal(data []byte, message any) error {
	return tagjson.Unmarshal(data, message)
}

// readOnlyCodecs is a read-only view of a map of named codecs.
type readOnlyCodecs interface {
	Get(string) Codec
	Names() []string
}

type codecMap struct {
	codecs map[string]Codec
}

func newReadOnlyCodecs(codecs map[string]Codec) *codecMap {
	return &codecMap{codecs}
}

func (m *codecMap) Get(name string) Codec {
	return m.codecs[name]
}

// Names returns the registered codec names, sorted. The returned slice is
// safe for the caller to mutate.
func (m *codecMap) Names() []string {
	names := make([]string, 0, len(m.codecs))
	for name := range m.codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// acceptPost renders the content types this codec set serves, for the
// Accept-Post header on rejected requests.
func (m *codecMap) acceptPost() string {
	names := m.Names()
	contentTypes := make([]string, len(names))
	for i, name := range names {
		contentTypes[i] = contentTypeFromCodecName(name)
	}
	return strings.Join(contentTypes, ", ")
}

func contentTypeFromCodecName(name string) string {
	return contentTypePrefix + name
}

// codecNameFromContentType extracts the codec name from a Content-Type
// header value, tolerating parameters like "; charset=utf-8".
func codecNameFromContentType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	base = strings.TrimSpace(strings.ToLower(base))
	return strings.TrimPrefix(base, contentTypePrefix)
}
