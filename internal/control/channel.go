// internal/control/channel.go
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tendant/simple-scanmatch/internal/config"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

const (
	maxCommandSize = 1024
	connTimeout    = 5 * time.Second
)

// Station is the lifecycle the control channel drives.
type Station interface {
	Start(ctx context.Context, cfg config.Station) error
	Stop(ctx context.Context) error
	Status() schema.RunState
}

// Channel accepts one command per connection and handles connections one
// at a time, which serializes every run state change.
type Channel struct {
	station Station
	logger  *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

func New(station Station, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{station: station, logger: logger.With("component", "control")}
}

// Listen binds the control address.
func (c *Channel) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	c.mu.Lock()
	c.ln = ln
	c.mu.Unlock()
	c.logger.Info("Listening for control commands...", "addr", ln.Addr().String())
	return nil
}

func (c *Channel) Addr() net.Addr {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return nil
	}
	return c.ln.Addr()
}

// Serve handles commands until ctx is done. Listen must be called first.
func (c *Channel) Serve(ctx context.Context) error {
	c.mu.Lock()
	ln := c.ln
	c.mu.Unlock()
	if ln == nil {
		return errors.New("control channel is not listening")
	}

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			c.logger.Error("Control socket error", "err", err)
			continue
		}
		c.handle(ctx, conn)
	}
}

func (c *Channel) ListenAndServe(ctx context.Context, addr string) error {
	if err := c.Listen(addr); err != nil {
		return err
	}
	return c.Serve(ctx)
}

func (c *Channel) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(connTimeout))

	buf := make([]byte, maxCommandSize)
	n, err := conn.Read(buf)
	if n == 0 {
		if err != nil && !errors.Is(err, io.EOF) {
			c.logger.Warn("read control command failed", "err", err)
		}
		return
	}

	cmd, err := ParseCommand(string(buf[:n]))
	if err != nil {
		if errors.Is(err, ErrUnknownCommand) {
			c.logger.Debug("ignoring control command", "err", err)
		} else {
			c.logger.Warn("ignoring control command", "err", err)
		}
		return
	}

	switch cmd.Kind {
	case KindStatus:
		if _, err := io.WriteString(conn, string(c.station.Status())); err != nil {
			c.logger.Warn("write status reply failed", "err", err)
		}
	case KindStart:
		if err := c.station.Start(ctx, cmd.Station); err != nil {
			c.logger.Debug("start command not applied", "err", err)
		}
	case KindStop:
		if err := c.station.Stop(ctx); err != nil {
			c.logger.Debug("stop command not applied", "err", err)
		}
	}
}
