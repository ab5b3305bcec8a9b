// internal/notify/notifier.go
package notify

import (
	"context"
	"io"
	"log/slog"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/tendant/simple-scanmatch/internal/metrics"
)

// Notifier sends one-shot status messages to a local observer over TCP.
// Each message uses its own connection. Nothing is queued or retried: if
// the observer is not listening the message is dropped.
type Notifier struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger
	// limits "not reachable" warnings while the observer is absent
	warn *rate.Limiter
}

// New returns a Notifier for addr. An empty addr disables delivery.
func New(addr string, timeout time.Duration, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		addr:    addr,
		timeout: timeout,
		logger:  logger.With("component", "notifier", "addr", addr),
		warn:    rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

func (n *Notifier) Addr() string { return n.addr }

// Notify delivers message once. Failures are logged and otherwise ignored.
func (n *Notifier) Notify(ctx context.Context, message string) {
	if n == nil || n.addr == "" {
		return
	}

	dialer := net.Dialer{Timeout: n.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", n.addr)
	if err != nil {
		n.dropped(message, err)
		return
	}
	defer conn.Close()

	if n.timeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(n.timeout))
	}
	if _, err := io.WriteString(conn, message); err != nil {
		n.dropped(message, err)
	}
}

func (n *Notifier) dropped(message string, err error) {
	metrics.RecordSinkFailure("notify")
	if n.warn.Allow() {
		n.logger.Warn("status receiver is not running", "err", err)
		return
	}
	n.logger.Debug("status message dropped", "message", message, "err", err)
}
