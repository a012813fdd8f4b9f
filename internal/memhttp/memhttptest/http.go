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

// Package memhttptest wires [memhttp] servers into the testing package's
// lifecycle.
package memhttptest

import (
	"context"
	"log"
	"net/http"
	"testing"

	"github.com/picorpc/picorpc/internal/memhttp"
)

// NewServer constructs a [memhttp.Server] with defaults suitable for tests:
// it logs runtime errors to the provided testing.TB, and it automatically
// shuts down the server when the test completes. Shutdown errors fail the
// test.
func NewServer(tb testing.TB, handler http.Handler, options ...memhttp.Option) *memhttp.Server {
	tb.Helper()
	logger := log.New(&testWriter{tb}, "" /* prefix */, log.Lshortfile)
	options = append([]memhttp.Option{memhttp.WithErrorLog(logger)}, options...)
	server := memhttp.NewServer(handler, options...)
	tb.Cleanup(func() {
		if err := server.Shutdown(context.Background()); err != nil {
			tb.Error(err)
		}
	})
	return server
}

// testWriter funnels the server's error log into the test log.
type testWriter struct {
	tb testing.TB
}

func (w *testWriter) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}
