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
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
)

const clientUserAgent = "picorpc-go/" + Version

// Client is a reusable, concurrency-safe client for a single unary
// procedure. Depending on the procedure's type parameters, it exposes a
// typed [Client.Call] method; generated code wraps one Client per method.
//
// By default, clients marshal requests with the binary protobuf codec,
// send them uncompressed, and ask servers to gzip responses.
type Client[Req, Res any] struct {
	httpClient       HTTPClient
	url              string
	codec            Codec
	codecs           readOnlyCodecs
	compressRequests bool
	compressMinBytes int
	readMaxBytes     int64
	err              error
}

// NewClient constructs a new [Client]. The URL must be the procedure's full
// URL, ending in "/package.Service/Method"; generated code joins the
// server's base URL with the procedure name.
//
// Configuration errors (a malformed URL, an unregistered codec name) are
// reported by the first call to [Client.Call], which keeps generated
// constructors simple.
func NewClient[Req, Res any](httpClient HTTPClient, rawURL string, options ...ClientOption) *Client[Req, Res] {
	client := &Client[Req, Res]{httpClient: httpClient}
	config, err := newClientConfig(rawURL, options)
	if err != nil {
		client.err = err
		return client
	}
	client.url = config.URL.String()
	client.codec = config.Codecs[config.CodecName]
	client.codecs = newReadOnlyCodecs(config.Codecs)
	client.compressRequests = config.CompressRequests
	client.compressMinBytes = config.CompressMinBytes
	client.readMaxBytes = config.ReadMaxBytes
	return client
}

// Call invokes the remote procedure and returns its response.
func (c *Client[Req, Res]) Call(ctx context.Context, request *Req) (*Res, error) {
	if c.err != nil {
		return nil, c.err
	}
	data, err := c.codec.Marshal(request)
	if err != nil {
		return nil, Errorf(CodeInternal, "marshal request: %w", err)
	}
	contentEncoding := ""
	if c.compressRequests && len(data) >= c.compressMinBytes {
		compressed, err := gzipCompress(data)
		if err != nil {
			return nil, Errorf(CodeInternal, "compress request: %w", err)
		}
		data = compressed
		contentEncoding = compressionGzip
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return nil, NewError(CodeInternal, err)
	}
	httpRequest.Header.Set(headerContentType, contentTypeFromCodecName(c.codec.Name()))
	httpRequest.Header.Set(headerUserAgent, clientUserAgent)
	httpRequest.Header.Set(headerAcceptEncoding, compressionGzip)
	if contentEncoding != "" {
		httpRequest.Header.Set(headerContentEncoding, contentEncoding)
	}
	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		err = wrapIfContextError(err)
		if _, ok := asError(err); ok {
			return nil, err
		}
		return nil, NewError(CodeUnavailable, err)
	}
	defer func() {
		// Drain before closing so the connection can be reused.
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()
	bodyReader := io.Reader(response.Body)
	if c.readMaxBytes > 0 {
		bodyReader = io.LimitReader(response.Body, c.readMaxBytes+1)
	}
	buffer := getBuffer()
	defer putBuffer(buffer)
	if _, err := buffer.ReadFrom(bodyReader); err != nil {
		err = wrapIfContextError(err)
		if _, ok := asError(err); ok {
			return nil, err
		}
		return nil, Errorf(CodeUnavailable, "read response body: %w", err)
	}
	if c.readMaxBytes > 0 && int64(buffer.Len()) > c.readMaxBytes {
		return nil, errMessageTooLarge(c.readMaxBytes)
	}
	body := buffer.Bytes()
	switch encoding := response.Header.Get(headerContentEncoding); encoding {
	case "", compressionIdentity:
	case compressionGzip:
		if body, err = gzipDecompress(body, c.readMaxBytes); err != nil {
			return nil, err
		}
	default:
		return nil, Errorf(CodeInternal, "unknown Content-Encoding %q in response", encoding)
	}
	if response.StatusCode != http.StatusOK {
		return nil, readError(response.StatusCode, c.codecs, response.Header.Get(headerContentType), body)
	}
	message := new(Res)
	if err := c.codec.Unmarshal(body, message); err != nil {
		return nil, Errorf(CodeInternal, "unmarshal response: %w", err)
	}
	return message, nil
}

type clientConfig struct {
	URL              *url.URL
	Codecs           map[string]Codec
	CodecName        string
	CompressRequests bool
	CompressMinBytes int
	ReadMaxBytes     int64
}

func newClientConfig(rawURL string, options []ClientOption) (*clientConfig, *Error) {
	uri, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, NewError(CodeUnavailable, err)
	}
	if err := validateProcedure(uri.Path); err != nil {
		return nil, NewError(CodeInternal, err)
	}
	config := &clientConfig{
		URL: uri,
		Codecs: map[string]Codec{
			codecNameProto: &protoBinaryCodec{},
			codecNameJSON:  &jsonCodec{},
		},
		CodecName:        codecNameProto,
		CompressMinBytes: defaultCompressMinBytes,
	}
	for _, option := range options {
		option.applyToClient(config)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *clientConfig) validate() *Error {
	if c.CodecName == "" {
		return Errorf(CodeUnknown, "no codec configured")
	}
	if _, ok := c.Codecs[c.CodecName]; !ok {
		return Errorf(CodeUnknown, "no registered codec named %q", c.CodecName)
	}
	return nil
}
