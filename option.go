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

// A ClientOption configures a [Client].
//
// Use any [Option] as a ClientOption.
type ClientOption interface {
	applyToClient(*clientConfig)
}

// A HandlerOption configures a [Handler].
//
// Use any [Option] as a HandlerOption.
type HandlerOption interface {
	applyToHandler(*handlerConfig)
}

// Option implements both [ClientOption] and [HandlerOption], so it can be
// applied both client-side and server-side.
type Option interface {
	ClientOption
	HandlerOption
}

// WithCodec registers a serialization method with a client or handler.
// Handlers may have multiple codecs registered, and use whichever the client
// chooses. Clients may only have a single codec: the most recent WithCodec
// wins and selects the codec for outbound requests.
//
// By default, clients and handlers support the "proto" codec, which uses the
// protobuf binary format, and the "json" codec, which uses [tagjson].
// Registering a codec with the same name as a default replaces it.
func WithCodec(codec Codec) Option {
	return &codecOption{Codec: codec}
}

// WithCodecName selects one of a client's registered codecs for outbound
// requests. It's most useful for switching between the built-in "proto" and
// "json" codecs without re-registering them.
//
// [NewClient] returns an error if the named codec isn't registered.
func WithCodecName(name string) ClientOption {
	return &codecNameOption{Name: name}
}

// WithGzip enables gzip compression. On clients, it compresses request
// bodies. On handlers, it compresses response bodies when the client's
// Accept-Encoding header permits; handlers enable this by default.
//
// Bodies smaller than the minimum compressible size are sent uncompressed
// even when gzip is enabled. Use [WithCompressMinBytes] to adjust the
// threshold.
func WithGzip() Option {
	return &gzipOption{}
}

// WithCompressMinBytes sets a minimum size threshold for compression:
// regardless of other settings, messages smaller than the configured number
// of bytes aren't compressed. The default threshold is 1 kiB.
//
// Compressing very small messages usually increases their size on the wire,
// so most applications should keep the threshold above zero.
func WithCompressMinBytes(min int) Option {
	return &compressMinBytesOption{Min: min}
}

// WithReadMaxBytes limits the performance impact of pathologically large
// messages sent by the other party. For handlers, WithReadMaxBytes limits the
// size of the request message. For clients, WithReadMaxBytes limits the size
// of the response message.
//
// Limits apply to each message after decompression. Receiving a message
// larger than the configured limit produces an error with
// [CodeInvalidArgument]. Setting WithReadMaxBytes to zero removes the limit;
// there is no limit by default.
func WithReadMaxBytes(max int64) Option {
	return &readMaxBytesOption{Max: max}
}

type codecOption struct {
	Codec Codec
}

func (o *codecOption) applyToClient(config *clientConfig) {
	if o.Codec == nil || o.Codec.Name() == "" {
		return
	}
	config.Codecs[o.Codec.Name()] = o.Codec
	config.CodecName = o.Codec.Name()
}

func (o *codecOption) applyToHandler(config *handlerConfig) {
	if o.Codec == nil || o.Codec.Name() == "" {
		return
	}
	config.Codecs[o.Codec.Name()] = o.Codec
}

type codecNameOption struct {
	Name string
}

func (o *codecNameOption) applyToClient(config *clientConfig) {
	config.CodecName = o.Name
}

type gzipOption struct{}

func (o *gzipOption) applyToClient(config *clientConfig) {
	config.CompressRequests = true
}

func (o *gzipOption) applyToHandler(config *handlerConfig) {
	config.CompressResponses = true
}

type compressMinBytesOption struct {
	Min int
}

func (o *compressMinBytesOption) applyToClient(config *clientConfig) {
	config.CompressMinBytes = o.Min
}

func (o *compressMinBytesOption) applyToHandler(config *handlerConfig) {
	config.CompressMinBytes = o.Min
}

type readMaxBytesOption struct {
	Max int64
}

func (o *readMaxBytesOption) applyToClient(config *clientConfig) {
	config.ReadMaxBytes = o.Max
}

func (o *readMaxBytesOption) applyToHandler(config *handlerConfig) {
	config.ReadMaxBytes = o.Max
}
