// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ssrserve

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/thediveo/ssrserve/logging"
	"github.com/thediveo/ssrserve/pages"
)

// Default timeouts of a Server.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 5 * time.Second
)

// NewMux returns a request multiplexer serving the star count function
// endpoint at pages.StarCountFunctionPath and everything else from site.
func NewMux(site http.Handler, starCount http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(pages.StarCountFunctionPath, starCount)
	mux.Handle("/", site)
	return mux
}

// Server runs an HTTP server for a handler until stopped.
type Server struct {
	addr            string
	handler         http.Handler
	log             *slog.Logger
	writeTimeout    time.Duration
	shutdownTimeout time.Duration

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	done     chan error
}

// ServerOption sets optional properties at the time of creating a Server.
type ServerOption func(*Server)

// WithServerLogger sets the logger for reporting the server's lifecycle.
func WithServerLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithWriteTimeout sets the maximum duration for writing a response, which
// also bounds rendering a page.
func WithWriteTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.writeTimeout = d
	}
}

// WithShutdownTimeout sets how long Stop waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// NewServer returns a new Server for the specified handler, listening at addr,
// such as ":8888", when started.
func NewServer(addr string, handler http.Handler, opts ...ServerOption) *Server {
	s := &Server{
		addr:            addr,
		handler:         handler,
		log:             logging.Discard(),
		writeTimeout:    DefaultWriteTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens on the server's address and then serves requests in the
// background. It returns an error if the server has already been started or
// cannot listen.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("server already started")
	}
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.srv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	s.done = make(chan error, 1)
	s.log.Info("server listening", slog.String("address", l.Addr().String()))
	go func(srv *http.Server, done chan<- error) {
		err := srv.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
		close(done)
	}(s.srv, s.done)
	return nil
}

// Addr returns the address the server listens on, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Done returns a channel delivering the server's final error, if any, once it
// has stopped serving. Done returns nil if the server hasn't been started.
func (s *Server) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Stop gracefully shuts down the server, waiting at most for the shutdown
// timeout for in-flight requests to complete. Stopping a server that isn't
// running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.log.Warn("graceful shutdown failed", slog.String("error", err.Error()))
		return srv.Close()
	}
	return nil
}
