// Package viewserver exposes chat topics over HTTP: scanned listings as JSON
// and a live feed over WebSocket.
package viewserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/ridge/redchat/tlog"
	"go.uber.org/zap"
	"time"
)

const gracefulShutdownTimeout = 5 * time.Second

var listenConfig = net.ListenConfig{
	KeepAlive: 3 * time.Minute,
}

// Listen opens a listener on the address. An address prefixed with "unix:"
// is a path to a UNIX domain socket; anything else, optionally prefixed with
// "tcp:", is a TCP [host]:port.
func Listen(address string) (net.Listener, error) {
	network := "tcp"
	if proto, rest, ok := strings.Cut(address, ":"); ok {
		switch proto {
		case "unix":
			network = "unix"
			address = rest
		case "tcp":
			address = rest
		}
	}
	return listenConfig.Listen(context.Background(), network, address)
}

// Server serves the view API on a listener
type Server struct {
	listener net.Listener
	handler  http.Handler

	// handlers in flight, hijacked WebSocket connections included
	active sync.WaitGroup
}

// NewServer creates a Server
func NewServer(listener net.Listener, config Config) *Server {
	return &Server{
		listener: listener,
		handler:  Handler(config),
	}
}

// Addr returns the address the server listens on
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Run serves requests until the context is closed, then shuts down
// gracefully, waiting for up to gracefulShutdownTimeout for requests in
// flight. Live feeds are disconnected.
func (s *Server) Run(ctx context.Context) error {
	ctx = tlog.With(ctx, zap.Stringer("httpServer", s.listener.Addr()))
	logger := tlog.Get(ctx)

	return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
		// requests outlive ctx during graceful shutdown
		reqCtx, reqCancel := context.WithCancel(detach(ctx))

		server := http.Server{
			Handler:     s.track(s.handler),
			ErrorLog:    must.OK1(zap.NewStdLogAt(logger, zap.WarnLevel)),
			BaseContext: func(net.Listener) context.Context { return reqCtx },
			ConnContext: func(ctx context.Context, conn net.Conn) context.Context {
				return tlog.With(ctx, zap.Stringer("remoteAddr", conn.RemoteAddr()))
			},
			ReadHeaderTimeout: 10 * time.Second,
		}

		spawn("serve", parallel.Fail, func(ctx context.Context) error {
			logger.Info("Serving requests")
			err := server.Serve(s.listener)
			// ErrServerClosed is the expected outcome of Shutdown below
			if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		})

		spawn("shutdown", parallel.Fail, func(ctx context.Context) error {
			<-ctx.Done()
			logger.Info("Shutting down")

			shutdownCtx, cancel := context.WithTimeout(reqCtx, gracefulShutdownTimeout)
			defer cancel()
			defer reqCancel()
			defer server.Close()

			if err := server.Shutdown(shutdownCtx); err != nil && shutdownCtx.Err() != nil {
				logger.Info("Shutdown timed out", zap.Error(err))
				return err
			}

			// hijacked connections are invisible to Shutdown
			reqCancel()
			s.active.Wait()

			logger.Info("Shutdown complete")
			return ctx.Err()
		})

		return nil
	})
}

func (s *Server) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.active.Add(1)
		defer s.active.Done()
		next.ServeHTTP(w, r)
	})
}

// detach returns a context carrying the values of ctx but never closed
func detach(ctx context.Context) context.Context {
	return detached{Context: ctx}
}

type detached struct {
	context.Context //nolint:containedctx // wraps a context to drop its lifespan
}

func (detached) Deadline() (time.Time, bool) {
	return time.Time{}, false
}

func (detached) Done() <-chan struct{} {
	return nil
}

func (detached) Err() error {
	return nil
}
