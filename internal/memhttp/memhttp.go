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

// Package memhttp provides an HTTP server that serves in-memory pipes
// instead of TCP sockets, so tests can exercise full client-server round
// trips without opening ports.
package memhttp

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server is a net/http server that uses in-memory pipes instead of TCP. It
// supports HTTP/2 via h2c, and otherwise uses the same configuration as the
// zero value of [http.Server].
type Server struct {
	server         http.Server
	listener       *pipeListener
	url            string
	cleanupTimeout time.Duration

	serveGroup sync.WaitGroup
	serveErr   error
}

type config struct {
	ErrorLog       *log.Logger
	CleanupTimeout time.Duration
}

// An Option configures a Server.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) { f(cfg) }

// WithErrorLog sets [http.Server.ErrorLog].
func WithErrorLog(logger *log.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.ErrorLog = logger
	})
}

// WithCleanupTimeout customizes the default five-second timeout for the
// server's Cleanup method.
func WithCleanupTimeout(timeout time.Duration) Option {
	return optionFunc(func(cfg *config) {
		cfg.CleanupTimeout = timeout
	})
}

// NewServer starts a Server that serves the given handler.
func NewServer(handler http.Handler, options ...Option) *Server {
	cfg := config{CleanupTimeout: 5 * time.Second}
	for _, option := range options {
		option.apply(&cfg)
	}
	listener := newPipeListener("1.2.3.4") // httptest.DefaultRemoteAddr
	server := &Server{
		server: http.Server{
			Handler:           h2c.NewHandler(handler, &http2.Server{}),
			ReadHeaderTimeout: 5 * time.Second,
			ErrorLog:          cfg.ErrorLog,
		},
		listener:       listener,
		url:            "http://" + listener.Addr().String(),
		cleanupTimeout: cfg.CleanupTimeout,
	}
	server.serveGroup.Add(1)
	go func() {
		defer server.serveGroup.Done()
		server.serveErr = server.server.Serve(listener)
	}()
	return server
}

// Transport returns an [http2.Transport] that dials the server's in-memory
// pipes. Callers may reconfigure the returned transport without affecting
// other transports.
func (s *Server) Transport() *http2.Transport {
	return &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			return s.listener.DialContext(ctx, network, addr)
		},
		AllowHTTP: true,
	}
}

// TransportHTTP1 returns an [http.Transport] that dials the server's
// in-memory pipes and speaks HTTP/1.1.
func (s *Server) TransportHTTP1() *http.Transport {
	return &http.Transport{
		DialContext: s.listener.DialContext,
		// Keep-alive connections can outlive the test and hang shutdown.
		DisableKeepAlives: true,
	}
}

// Client returns an [http.Client] that speaks HTTP/2 over the server's
// in-memory pipes. Callers may reconfigure the returned client without
// affecting other clients.
func (s *Server) Client() *http.Client {
	return &http.Client{Transport: s.Transport()}
}

// URL returns the server's URL.
func (s *Server) URL() string {
	return s.url
}

// Shutdown gracefully shuts down the server, without interrupting any
// active connections. See [http.Server.Shutdown] for details.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	return s.Wait()
}

// Cleanup calls Shutdown with the configured cleanup timeout, five seconds
// by default.
func (s *Server) Cleanup() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Close closes the server's listener without waiting for connections to
// finish.
func (s *Server) Close() error {
	return s.server.Close()
}

// Wait blocks until the server exits, swallowing the expected
// [http.ErrServerClosed].
func (s *Server) Wait() error {
	s.serveGroup.Wait()
	if !errors.Is(s.serveErr, http.ErrServerClosed) {
		return s.serveErr
	}
	return nil
}
