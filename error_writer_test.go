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
	"errors"
	"net/http/httptest"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/picorpc/picorpc/internal/assert"
)

func TestWireErrorEnvelope(t *testing.T) {
	t.Parallel()
	t.Run("round_trip", func(t *testing.T) {
		t.Parallel()
		encoded := encodeWireError(Errorf(CodeNotFound, "no such ping"))
		decoded, ok := decodeWireError(encoded)
		assert.True(t, ok)
		assert.Equal(t, decoded.Code(), CodeNotFound)
		assert.Equal(t, decoded.Message(), "no such ping")
	})
	t.Run("skips_unknown_fields", func(t *testing.T) {
		t.Parallel()
		encoded := encodeWireError(Errorf(CodeInternal, "boom"))
		encoded = protowire.AppendTag(encoded, 7, protowire.VarintType)
		encoded = protowire.AppendVarint(encoded, 42)
		encoded = protowire.AppendTag(encoded, 9, protowire.BytesType)
		encoded = protowire.AppendBytes(encoded, []byte("future"))
		decoded, ok := decodeWireError(encoded)
		assert.True(t, ok)
		assert.Equal(t, decoded.Code(), CodeInternal)
		assert.Equal(t, decoded.Message(), "boom")
	})
	t.Run("rejects_garbage", func(t *testing.T) {
		t.Parallel()
		_, ok := decodeWireError([]byte{0xff, 0xff, 0xff})
		assert.False(t, ok)
	})
	t.Run("unrecognized_code_is_unknown", func(t *testing.T) {
		t.Parallel()
		var data []byte
		data = protowire.AppendTag(data, wireErrorFieldMessage, protowire.BytesType)
		data = protowire.AppendString(data, "from the future")
		data = protowire.AppendTag(data, wireErrorFieldCode, protowire.BytesType)
		data = protowire.AppendString(data, "resource_exhausted")
		decoded, ok := decodeWireError(data)
		assert.True(t, ok)
		assert.Equal(t, decoded.Code(), CodeUnknown)
		assert.Equal(t, decoded.Message(), "from the future")
	})
}

func TestWriteError(t *testing.T) {
	t.Parallel()
	t.Run("proto", func(t *testing.T) {
		t.Parallel()
		recorder := httptest.NewRecorder()
		writeError(recorder, &protoBinaryCodec{}, Errorf(CodeNotFound, "no such ping"))
		response := recorder.Result()
		assert.Equal(t, response.StatusCode, 404)
		assert.Equal(t, response.Header.Get(headerContentType), "application/proto")
		decoded, ok := decodeWireError(recorder.Body.Bytes())
		assert.True(t, ok)
		assert.Equal(t, decoded.Code(), CodeNotFound)
		assert.Equal(t, decoded.Message(), "no such ping")
	})
	t.Run("json", func(t *testing.T) {
		t.Parallel()
		recorder := httptest.NewRecorder()
		writeError(recorder, &jsonCodec{}, errors.New("boom"))
		response := recorder.Result()
		assert.Equal(t, response.StatusCode, 500, assert.Sprintf("uncoded errors are unknown"))
		assert.Equal(t, response.Header.Get(headerContentType), "application/json")
		assert.Equal(t, recorder.Body.String(), `{"code":"unknown","message":"boom"}`)
	})
}

func TestReadError(t *testing.T) {
	t.Parallel()
	codecs := newReadOnlyCodecs(map[string]Codec{
		codecNameProto: &protoBinaryCodec{},
		codecNameJSON:  &jsonCodec{},
	})
	t.Run("proto_envelope", func(t *testing.T) {
		t.Parallel()
		body := encodeWireError(Errorf(CodeUnavailable, "overloaded"))
		err := readError(503, codecs, "application/proto", body)
		assert.Equal(t, err.Code(), CodeUnavailable)
		assert.Equal(t, err.Message(), "overloaded")
	})
	t.Run("json_envelope", func(t *testing.T) {
		t.Parallel()
		err := readError(400, codecs, "application/json", []byte(`{"code":"invalid_argument","message":"bad ping"}`))
		assert.Equal(t, err.Code(), CodeInvalidArgument)
		assert.Equal(t, err.Message(), "bad ping")
	})
	t.Run("empty_body_falls_back_to_status", func(t *testing.T) {
		t.Parallel()
		err := readError(503, codecs, "application/proto", nil)
		assert.Equal(t, err.Code(), CodeUnavailable)
		assert.Equal(t, err.Message(), "HTTP 503")
	})
	t.Run("html_from_proxy_falls_back_to_status", func(t *testing.T) {
		t.Parallel()
		err := readError(404, codecs, "text/html", []byte("<html>not found</html>"))
		assert.Equal(t, err.Code(), CodeUnimplemented)
		assert.Equal(t, err.Message(), "HTTP 404")
	})
	t.Run("unparseable_proto_falls_back_to_status", func(t *testing.T) {
		t.Parallel()
		err := readError(500, codecs, "application/proto", []byte{0xff, 0xff})
		assert.Equal(t, err.Code(), CodeUnknown)
	})
}
