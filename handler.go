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
	"context"
	"errors"
	"io"
	"net/http"
)

// A Handler is the server-side implementation of a single unary procedure.
// It's an [http.Handler] that speaks picorpc's POST-only protocol: the
// request and response bodies each carry one message, serialized with
// whichever registered codec the request's Content-Type names.
//
// By default, handlers support the binary protobuf and JSON codecs and
// gzip responses when the client's Accept-Encoding header permits.
type Handler struct {
	procedure         string
	codecs            readOnlyCodecs
	acceptPost        string
	compressResponses bool
	compressMinBytes  int
	readMaxBytes      int64
	newRequest        func() any
	unary             func(context.Context, any) (any, error)
}

// NewUnaryHandler constructs a [Handler] for a request-response procedure.
func NewUnaryHandler[Req, Res any](
	procedure string,
	unary func(context.Context, *Req) (*Res, error),
	options ...HandlerOption,
) *Handler {
	config := newHandlerConfig(options)
	codecs := newReadOnlyCodecs(config.Codecs)
	return &Handler{
		procedure:         procedure,
		codecs:            codecs,
		acceptPost:        codecs.acceptPost(),
		compressResponses: config.CompressResponses,
		compressMinBytes:  config.CompressMinBytes,
		readMaxBytes:      config.ReadMaxBytes,
		newRequest:        func() any { return new(Req) },
		unary: func(ctx context.Context, request any) (any, error) {
			typed, ok := request.(*Req)
			if !ok {
				return nil, Errorf(CodeInternal, "unexpected handler request type %T", request)
			}
			return unary(ctx, typed)
		},
	}
}

// Procedure returns the handler's procedure name in "/package.Service/Method"
// form. Generated code uses it to mount the handler on a mux.
func (h *Handler) Procedure() string {
	return h.procedure
}

// ServeHTTP implements [http.Handler].
func (h *Handler) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	// All unary procedures use POST.
	if request.Method != http.MethodPost {
		responseWriter.Header().Set(headerAllow, http.MethodPost)
		responseWriter.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	codec := h.codecs.Get(codecNameFromContentType(request.Header.Get(headerContentType)))
	if codec == nil {
		responseWriter.Header().Set(headerAcceptPost, h.acceptPost)
		responseWriter.WriteHeader(http.StatusUnsupportedMediaType)
		return
	}
	message, err := h.receive(request, codec)
	if err != nil {
		writeError(responseWriter, codec, err)
		return
	}
	ctx := request.Context()
	if err := ctx.Err(); err != nil {
		writeError(responseWriter, codec, wrapIfUncoded(err))
		return
	}
	response, err := h.invoke(ctx, message)
	if err != nil {
		writeError(responseWriter, codec, err)
		return
	}
	h.send(responseWriter, request, codec, response)
}

// receive reads, decompresses, and unmarshals the request message.
func (h *Handler) receive(request *http.Request, codec Codec) (any, error) {
	bodyReader := io.Reader(request.Body)
	if h.readMaxBytes > 0 {
		bodyReader = io.LimitReader(request.Body, h.readMaxBytes+1)
	}
	buffer := getBuffer()
	defer putBuffer(buffer)
	if _, err := buffer.ReadFrom(bodyReader); err != nil {
		return nil, Errorf(CodeUnknown, "read request body: %w", err)
	}
	if h.readMaxBytes > 0 && int64(buffer.Len()) > h.readMaxBytes {
		return nil, errMessageTooLarge(h.readMaxBytes)
	}
	data := buffer.Bytes()
	switch encoding := request.Header.Get(headerContentEncoding); encoding {
	case "", compressionIdentity:
	case compressionGzip:
		var err error
		if data, err = gzipDecompress(data, h.readMaxBytes); err != nil {
			return nil, err
		}
	default:
		return nil, Errorf(
			CodeInvalidArgument,
			"unknown Content-Encoding %q: accepted encodings are %s",
			encoding,
			compressionGzip,
		)
	}
	message := h.newRequest()
	if err := codec.Unmarshal(data, message); err != nil {
		return nil, Errorf(CodeInvalidArgument, "unmarshal request: %w", err)
	}
	return message, nil
}

// invoke calls the wrapped unary function, converting panics into coded
// errors. Panics with http.ErrAbortHandler propagate so the server can
// abort the connection.
func (h *Handler) invoke(ctx context.Context, request any) (_ any, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(r) //nolint:forbidigo
			}
			retErr = Errorf(CodeInternal, "handler panicked: %v", r)
		}
	}()
	response, err := h.unary(ctx, request)
	if err != nil {
		return nil, wrapIfUncoded(err)
	}
	return response, nil
}

// send marshals the response message and writes it, gzipping large bodies
// when the client accepts gzip.
func (h *Handler) send(responseWriter http.ResponseWriter, request *http.Request, codec Codec, message any) {
	data, err := codec.Marshal(message)
	if err != nil {
		writeError(responseWriter, codec, Errorf(CodeInternal, "marshal response: %w", err))
		return
	}
	header := responseWriter.Header()
	header.Set(headerContentType, contentTypeFromCodecName(codec.Name()))
	if h.compressResponses &&
		len(data) >= h.compressMinBytes &&
		acceptsGzip(request.Header.Get(headerAcceptEncoding)) {
		compressed, err := gzipCompress(data)
		if err != nil {
			writeError(responseWriter, codec, Errorf(CodeInternal, "compress response: %w", err))
			return
		}
		data = compressed
		header.Set(headerContentEncoding, compressionGzip)
	}
	_, _ = responseWriter.Write(data)
}

type handlerConfig struct {
	Codecs            map[string]Codec
	CompressResponses bool
	CompressMinBytes  int
	ReadMaxBytes      int64
}

func newHandlerConfig(options []HandlerOption) *handlerConfig {
	config := &handlerConfig{
		Codecs: map[string]Codec{
			codecNameProto: &protoBinaryCodec{},
			codecNameJSON:  &jsonCodec{},
		},
		CompressResponses: true,
		CompressMinBytes:  defaultCompressMinBytes,
	}
	for _, option := range options {
		option.applyToHandler(config)
	}
	return config
}
