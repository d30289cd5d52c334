// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package server exposes the dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"taskgate/internal/dispatch"
	"taskgate/internal/tasks"
)

const (
	DefaultMaxBodyBytes    int64 = 1 << 20
	defaultShutdownTimeout       = 10 * time.Second
)

// Dispatcher is the subset of dispatch.Dispatcher the transport needs.
type Dispatcher interface {
	Handle(ctx context.Context, task string) (*dispatch.Outcome, error)
	Invoke(ctx context.Context, id string, args map[string]interface{}) (*dispatch.Outcome, error)
	Registry() *tasks.Registry
}

var _ Dispatcher = (*dispatch.Dispatcher)(nil)

// Options configures a Server.
type Options struct {
	Logger          zerolog.Logger
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
}

// Server routes HTTP requests into a Dispatcher.
type Server struct {
	dispatcher      Dispatcher
	logger          zerolog.Logger
	maxBodyBytes    int64
	shutdownTimeout time.Duration
	handler         http.Handler
}

// New creates a server around d.
func New(d Dispatcher, opts Options) (*Server, error) {
	if d == nil {
		return nil, errors.New("server: nil dispatcher")
	}
	s := &Server{
		dispatcher:      d,
		logger:          opts.Logger,
		maxBodyBytes:    opts.MaxBodyBytes,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}

	mux := http.NewServeMux()
	s.routes(mux)
	s.handler = s.withRequestID(s.withAccessLog(s.withRecovery(mux)))
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /operations", s.handleOperations)
	mux.HandleFunc("POST /operations/{id}", s.handleInvoke)
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
