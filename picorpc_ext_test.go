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

package picorpc_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	picorpc "github.com/picorpc/picorpc"
	"github.com/picorpc/picorpc/cborcodec"
	"github.com/picorpc/picorpc/internal/assert"
	"github.com/picorpc/picorpc/internal/memhttp"
	"github.com/picorpc/picorpc/internal/memhttp/memhttptest"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	echoProcedure = "/pico.test.v1.EchoService/Echo"
	sealProcedure = "/pico.test.v1.SealService/Seal"
)

func newEchoServer(tb testing.TB, options ...picorpc.HandlerOption) *memhttp.Server {
	tb.Helper()
	handler := picorpc.NewUnaryHandler(
		echoProcedure,
		func(_ context.Context, request *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
			if len(request.Value) == 0 {
				return nil, picorpc.NewError(
					picorpc.CodeInvalidArgument,
					errors.New("empty payload"),
				)
			}
			return wrapperspb.Bytes(append([]byte("pong: "), request.Value...)), nil
		},
		options...,
	)
	mux := http.NewServeMux()
	mux.Handle(echoProcedure, handler)
	return memhttptest.NewServer(tb, mux)
}

func TestServerClientProto(t *testing.T) {
	t.Parallel()
	server := newEchoServer(t)
	client := picorpc.NewClient[wrapperspb.BytesValue, wrapperspb.BytesValue](
		server.Client(),
		server.URL()+echoProcedure,
	)

	t.Run("round_trip", func(t *testing.T) {
		t.Parallel()
		response, err := client.Call(context.Background(), wrapperspb.Bytes([]byte("hi")))
		assert.Nil(t, err)
		assert.Equal(t, response.Value, []byte("pong: hi"))
	})
	t.Run("error_code_crosses_the_wire", func(t *testing.T) {
		t.Parallel()
		_, err := client.Call(context.Background(), wrapperspb.Bytes(nil))
		assert.NotNil(t, err)
		assert.Equal(t, picorpc.CodeOf(err), picorpc.CodeInvalidArgument)
		assert.True(t, strings.Contains(err.Error(), "empty payload"))
	})
	t.Run("http1", func(t *testing.T) {
		t.Parallel()
		http1Client := &http.Client{Transport: server.TransportHTTP1()}
		client := picorpc.NewClient[wrapperspb.BytesValue, wrapperspb.BytesValue](
			http1Client,
			server.URL()+echoProcedure,
		)
		response, err := client.Call(context.Background(), wrapperspb.Bytes([]byte("one")))
		assert.Nil(t, err)
		assert.Equal(t, response.Value, []byte("pong: one"))
	})
}

func TestServerClientGzip(t *testing.T) {
	t.Parallel()
	server := newEchoServer(t, picorpc.WithCompressMinBytes(8))
	client := picorpc.NewClient[wrapperspb.BytesValue, wrapperspb.BytesValue](
		server.Client(),
		server.URL()+echoProcedure,
		picorpc.WithGzip(),
		picorpc.WithCompressMinBytes(8),
	)
	payload := bytes.Repeat([]byte("abc"), 2048)
	response, err := client.Call(context.Background(), wrapperspb.Bytes(payload))
	assert.Nil(t, err)
	assert.Equal(t, response.Value, append([]byte("pong: "), payload...))
}

func TestServerClientContextErrors(t *testing.T) {
	t.Parallel()
	server := newEchoServer(t)
	client := picorpc.NewClient[wrapperspb.BytesValue, wrapperspb.BytesValue](
		server.Client(),
		server.URL()+echoProcedure,
	)

	t.Run("canceled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.Call(ctx, wrapperspb.Bytes([]byte("hi")))
		assert.NotNil(t, err)
		assert.Equal(t, picorpc.CodeOf(err), picorpc.CodeCanceled)
	})
	t.Run("deadline_exceeded", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		_, err := client.Call(ctx, wrapperspb.Bytes([]byte("hi")))
		assert.NotNil(t, err)
		assert.Equal(t, picorpc.CodeOf(err), picorpc.CodeDeadlineExceeded)
	})
}

// sealedFrame round-trips through the JSON codec with a hex-encoded
// payload field.
type sealedFrame struct {
	Name string `json:"name"`
	Data []byte `json:"data" codec:"hex"`
}

func newSealServer(tb testing.TB, options ...picorpc.HandlerOption) *memhttp.Server {
	tb.Helper()
	handler := picorpc.NewUnaryHandler(
		sealProcedure,
		func(_ context.Context, request *sealedFrame) (*sealedFrame, error) {
			return &sealedFrame{Name: request.Name + "!", Data: request.Data}, nil
		},
		options...,
	)
	mux := http.NewServeMux()
	mux.Handle(sealProcedure, handler)
	return memhttptest.NewServer(tb, mux)
}

func TestServerClientTaggedJSON(t *testing.T) {
	t.Parallel()
	server := newSealServer(t)

	t.Run("round_trip", func(t *testing.T) {
		t.Parallel()
		client := picorpc.NewClient[sealedFrame, sealedFrame](
			server.Client(),
			server.URL()+sealProcedure,
			picorpc.WithCodecName("json"),
		)
		response, err := client.Call(context.Background(), &sealedFrame{
			Name: "box",
			Data: []byte{0xde, 0xad, 0xbe, 0xef},
		})
		assert.Nil(t, err)
		assert.Equal(t, response.Name, "box!")
		assert.Equal(t, response.Data, []byte{0xde, 0xad, 0xbe, 0xef})
	})
	t.Run("payload_is_hex_on_the_wire", func(t *testing.T) {
		t.Parallel()
		response, err := server.Client().Post(
			server.URL()+sealProcedure,
			"application/json",
			strings.NewReader(`{"name":"box","data":"0xdeadbeef"}`),
		)
		assert.Nil(t, err)
		defer response.Body.Close()
		body, err := io.ReadAll(response.Body)
		assert.Nil(t, err)
		assert.Equal(t, response.StatusCode, http.StatusOK)
		assert.True(t, strings.Contains(string(body), `"0xdeadbeef"`))
	})
}

func TestServerClientCBOR(t *testing.T) {
	t.Parallel()
	server := newSealServer(t, picorpc.WithCodec(cborcodec.New()))
	client := picorpc.NewClient[sealedFrame, sealedFrame](
		server.Client(),
		server.URL()+sealProcedure,
		picorpc.WithCodec(cborcodec.New()),
	)
	response, err := client.Call(context.Background(), &sealedFrame{
		Name: "box",
		Data: []byte{1, 2, 3},
	})
	assert.Nil(t, err)
	assert.Equal(t, response.Name, "box!")
	assert.Equal(t, response.Data, []byte{1, 2, 3})
}
