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
	"testing"

	"github.com/picorpc/picorpc/internal/assert"
)

type fakeCodec struct {
	name string
}

func (c *fakeCodec) Name() string { return c.name }

func (c *fakeCodec) Marshal(any) ([]byte, error) { return nil, nil }

func (c *fakeCodec) Unmarshal([]byte, any) error { return nil }

func TestHandlerConfigDefaults(t *testing.T) {
	t.Parallel()
	config := newHandlerConfig(nil)
	assert.NotNil(t, config.Codecs[codecNameProto])
	assert.NotNil(t, config.Codecs[codecNameJSON])
	assert.True(t, config.CompressResponses)
	assert.Equal(t, config.CompressMinBytes, defaultCompressMinBytes)
	assert.Equal(t, config.ReadMaxBytes, int64(0))
}

func TestClientConfigDefaults(t *testing.T) {
	t.Parallel()
	config, err := newClientConfig(testEchoURL, nil)
	assert.Nil(t, err)
	assert.Equal(t, config.CodecName, codecNameProto)
	assert.False(t, config.CompressRequests)
	assert.Equal(t, config.CompressMinBytes, defaultCompressMinBytes)
}

func TestWithCodec(t *testing.T) {
	t.Parallel()
	custom := &fakeCodec{name: "cbor"}

	handlerCfg := newHandlerConfig([]HandlerOption{WithCodec(custom)})
	assert.NotNil(t, handlerCfg.Codecs["cbor"], assert.Sprintf("handlers gain the codec"))
	assert.NotNil(t, handlerCfg.Codecs[codecNameProto], assert.Sprintf("defaults stay registered"))

	clientCfg, err := newClientConfig(testEchoURL, []ClientOption{WithCodec(custom)})
	assert.Nil(t, err)
	assert.Equal(t, clientCfg.CodecName, "cbor", assert.Sprintf("clients also select the codec"))

	replaced := &fakeCodec{name: codecNameProto}
	handlerCfg = newHandlerConfig([]HandlerOption{WithCodec(replaced)})
	assert.True(t, handlerCfg.Codecs[codecNameProto] == Codec(replaced))

	assert.Equal(t, newHandlerConfig([]HandlerOption{WithCodec(nil)}), newHandlerConfig(nil))
	assert.Equal(t, newHandlerConfig([]HandlerOption{WithCodec(&fakeCodec{})}), newHandlerConfig(nil))
}

func TestWithGzipAndThresholds(t *testing.T) {
	t.Parallel()
	clientCfg, err := newClientConfig(testEchoURL, []ClientOption{WithGzip(), WithCompressMinBytes(64)})
	assert.Nil(t, err)
	assert.True(t, clientCfg.CompressRequests)
	assert.Equal(t, clientCfg.CompressMinBytes, 64)

	handlerCfg := newHandlerConfig([]HandlerOption{WithReadMaxBytes(1 << 20)})
	assert.Equal(t, handlerCfg.ReadMaxBytes, int64(1<<20))
}
