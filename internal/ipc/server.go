package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"caster/internal/daemon"
	"caster/internal/logging"
)

// Server exposes daemon control over a unix domain socket using JSON-RPC.
type Server struct {
	path   string
	logger *slog.Logger
	ln     net.Listener
	rpc    *rpc.Server

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer binds the control socket and registers the RPC service. A stale
// socket file left behind by a crashed daemon is removed before binding.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, fmt.Errorf("daemon is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := bindSocket(path)
	if err != nil {
		return nil, err
	}

	serverCtx, cancel := context.WithCancel(ctx)
	srv := &Server{
		path:   path,
		logger: logger,
		ln:     ln,
		rpc:    rpc.NewServer(),
		ctx:    serverCtx,
		cancel: cancel,
	}
	svc := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: serverCtx}
	if err := srv.rpc.RegisterName("Caster", svc); err != nil {
		cancel()
		ln.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}
	return srv, nil
}

// bindSocket replaces any stale socket file and restricts the fresh one to
// the owning user, since the socket carries unauthenticated control commands.
func bindSocket(path string) (net.Listener, error) {
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}
	return ln, nil
}

// Serve accepts connections until Close is called.
func (s *Server) Serve() {
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("ipc accept failed", logging.Error(err))
			continue
		}
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	s.rpc.ServeCodec(jsonrpc.NewServerCodec(conn))
}

// Close stops accepting connections, waits for in-flight calls, and removes
// the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.ln != nil {
		s.ln.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove ipc socket",
			logging.String(logging.FieldEventType, "ipc_socket_cleanup_failed"),
			logging.String(logging.FieldImpact, "stale socket is removed on next daemon start"),
			logging.Error(err))
	}
}
