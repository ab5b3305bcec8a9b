// internal/intake/server.go
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tendant/simple-scanmatch/internal/correlate"
	"github.com/tendant/simple-scanmatch/internal/metrics"
	"github.com/tendant/simple-scanmatch/internal/scan"
)

// maxMessageSize bounds the single read taken from a scanner connection.
const maxMessageSize = 1024

var ErrAlreadyStarted = errors.New("intake server already started")

// Processor decides the outcome of a parsed scan.
type Processor interface {
	Process(ctx context.Context, evt scan.Event) correlate.Outcome
}

type Options struct {
	// MaxConns caps concurrently handled connections. Zero means 16.
	MaxConns int
	// ReadTimeout bounds the wait for a scanner's message. Zero waits forever.
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// Server accepts scanner connections. Each connection carries exactly one
// "<code>,<data>" message and is closed after it is read.
type Server struct {
	proc   Processor
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	cancel context.CancelFunc
	done   chan struct{}
}

func New(proc Processor, opts Options) *Server {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 16
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		proc:   proc,
		opts:   opts,
		logger: opts.Logger.With("component", "intake"),
	}
}

// Start binds addr and begins accepting connections in the background.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.ln = ln
	s.cancel = cancel
	s.done = make(chan struct{})

	s.logger.Info("listening", "addr", ln.Addr().String(), "max_conns", s.opts.MaxConns, "read_timeout", s.opts.ReadTimeout)
	go s.acceptLoop(ctx, ln, semaphore.NewWeighted(int64(s.opts.MaxConns)), s.done)
	return nil
}

// Stop closes the listener and waits for the accept loop to exit. Handlers
// already running are not waited for.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}
	s.cancel()
	err := s.ln.Close()
	<-s.done

	s.ln = nil
	s.cancel = nil
	s.done = nil
	s.logger.Info("server socket closed")
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

// Addr is the bound address, or nil when stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, sem *semaphore.Weighted, done chan struct{}) {
	defer close(done)
	s.logger.Info("accepting connections")

	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		conn, err := ln.Accept()
		if err != nil {
			sem.Release(1)
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("socket error", "err", err)
			continue
		}

		go func() {
			defer sem.Release(1)
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	metrics.ConnectionStarted()
	defer metrics.ConnectionDone()

	source := remoteHost(conn.RemoteAddr())
	logger := s.logger.With("source", source)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scan handler panicked", "panic", r)
		}
	}()

	message, err := s.readMessage(conn)
	_ = conn.Close()
	if err != nil {
		logger.Warn("read scan message failed", "err", err)
		return
	}
	logger.Info("received message", "message", message)

	evt, err := scan.Parse(source, message)
	if err != nil {
		metrics.RecordMalformed()
		logger.Warn("dropping malformed scan message", "message", message, "err", err)
		return
	}
	metrics.RecordScan(string(evt.Symbology))
	logger.Debug("barcode value", "barcode", evt.Barcode, "symbology", evt.Symbology)

	s.proc.Process(context.Background(), evt)
}

func (s *Server) readMessage(conn net.Conn) (string, error) {
	if s.opts.ReadTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			return "", fmt.Errorf("set read deadline: %w", err)
		}
	}
	buf := make([]byte, maxMessageSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err == nil {
			err = errors.New("empty message")
		}
		return "", err
	}
	return strings.TrimRight(string(buf[:n]), "\r\n"), nil
}

func remoteHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
