// Package server accepts TCP connections for the NFS/MOUNT RPC listener
// and drives each one through the record-marking and dispatch layers: an
// accept loop, one goroutine per connection, and graceful shutdown with
// a bounded drain. Each connection processes its requests serially,
// one record in, one reply out, rather than pipelining multiple
// in-flight calls on the same TCP stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/go-nfsd/exportd/internal/dispatch"
	"github.com/go-nfsd/exportd/internal/logger"
	"github.com/go-nfsd/exportd/internal/metrics"
	"github.com/go-nfsd/exportd/internal/rpc"
)

// Config holds the tunables Serve needs beyond the dispatcher itself.
type Config struct {
	// Addr is the host:port the TCP listener binds.
	Addr string

	// IdleTimeout closes a connection that sends no request for this
	// long. Zero disables the idle timeout.
	IdleTimeout time.Duration

	// ShutdownTimeout bounds how long Serve waits for in-flight
	// connections to finish once its context is cancelled.
	ShutdownTimeout time.Duration
}

// Server accepts connections and dispatches their RPC requests. One
// instance serves the lifetime of the process.
type Server struct {
	cfg    Config
	disp   *dispatch.Dispatcher
	metric *metrics.Metrics

	mu       sync.Mutex
	listener net.Listener

	active sync.WaitGroup
}

// New builds a Server. metric may be nil to disable metrics collection.
func New(cfg Config, disp *dispatch.Dispatcher, metric *metrics.Metrics) *Server {
	return &Server{cfg: cfg, disp: disp, metric: metric}
}

// Serve binds the listener and accepts connections until ctx is
// cancelled, then waits up to ShutdownTimeout for in-flight connections
// to finish before returning.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info("nfs server listening", "address", ln.Addr().String())

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return s.drain()
			default:
				logger.Warn("accept failed", "error", err)
				continue
			}
		}

		s.metric.ConnectionAccepted()
		s.active.Add(1)
		go func() {
			defer s.active.Done()
			defer s.metric.ConnectionClosed()
			s.serveConn(ctx, conn)
		}()
	}
}

// drain waits for active connections to finish, up to ShutdownTimeout.
func (s *Server) drain() error {
	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("server: shutdown timed out waiting for connections to drain")
	}
}

// serveConn reads and dispatches requests serially on one connection
// until the client disconnects, an I/O error occurs, or ctx is
// cancelled. Requests on a single connection are handled one at a time:
// NFS clients depend on in-order delivery of dependent operations (a
// CREATE followed by a WRITE to the handle it just minted), and the FSAL
// gives no ordering guarantee across concurrent calls against the same
// path.
func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	clientAddr := conn.RemoteAddr().String()
	connID := xid.New().String()
	logger.Debug("connection accepted", "client", clientAddr, "conn", connID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("recovered panic in connection loop", "client", clientAddr, "conn", connID, "panic", fmt.Sprint(r))
		}
		_ = conn.Close()
		logger.Debug("connection closed", "client", clientAddr, "conn", connID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.cfg.IdleTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				logger.Warn("set read deadline failed", "client", clientAddr, "error", err)
			}
		}

		record, release, err := rpc.ReadRecord(conn, clientAddr)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("connection closed by client", "client", clientAddr, "conn", connID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Debug("connection idle timeout", "client", clientAddr, "conn", connID)
			} else {
				logger.Debug("error reading record", "client", clientAddr, "conn", connID, "error", err)
			}
			return
		}

		s.metric.RequestStarted()
		s.metric.RecordBytes("read", len(record))
		start := time.Now()

		reply, err := s.disp.Dispatch(ctx, clientAddr, record)
		release()
		s.metric.RequestFinished()

		if err != nil {
			logger.Warn("dispatch error", "client", clientAddr, "error", err)
			return
		}
		if reply == nil {
			// Unreadable CALL header with no xid to reply against: the
			// protocol gives us nothing to answer with, so the
			// connection is no longer usable.
			logger.Warn("dropping connection after unrepliable request", "client", clientAddr)
			return
		}

		s.metric.RecordRequest("rpc", "dispatch", "ok", time.Since(start).Seconds())
		s.metric.RecordBytes("write", len(reply))

		if s.cfg.IdleTimeout > 0 {
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
				logger.Warn("set write deadline failed", "client", clientAddr, "error", err)
			}
		}
		if err := rpc.WriteRecord(conn, reply); err != nil {
			logger.Debug("error writing reply", "client", clientAddr, "error", err)
			return
		}
	}
}

// Addr returns the address the listener is bound to, or empty if Serve
// hasn't bound one yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
