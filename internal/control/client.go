// internal/control/client.go
package control

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"
)

// Send delivers one command and returns whatever the channel replies
// before closing the connection (empty for START and STOP).
func Send(ctx context.Context, addr string, cmd Command, timeout time.Duration) (string, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("connect to control channel %s: %w", addr, err)
	}
	defer conn.Close()

	if timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}
	if _, err := io.WriteString(conn, cmd.String()); err != nil {
		return "", fmt.Errorf("send %s: %w", cmd.Kind, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("read %s reply: %w", cmd.Kind, err)
	}
	return string(reply), nil
}
