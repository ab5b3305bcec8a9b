package notify

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) (net.Listener, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan string, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			data, _ := io.ReadAll(conn)
			_ = conn.Close()
			received <- string(data)
		}
	}()
	return ln, received
}

func TestNotifyDeliversOneMessagePerConnection(t *testing.T) {
	ln, received := listen(t)
	n := New(ln.Addr().String(), time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	n.Notify(context.Background(), "RUNNING")
	n.Notify(context.Background(), "Success,xxAB1234567890123yyyy")

	for _, want := range []string{"RUNNING", "Success,xxAB1234567890123yyyy"} {
		select {
		case got := <-received:
			require.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestNotifyReceiverAbsentIsSwallowed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	var logs bytes.Buffer
	n := New(addr, 500*time.Millisecond, slog.New(slog.NewTextHandler(&logs, nil)))

	done := make(chan struct{})
	go func() {
		n.Notify(context.Background(), "STOPPED")
		n.Notify(context.Background(), "STOPPED")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Notify blocked with no receiver")
	}
	require.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("status receiver is not running")))
}

func TestNotifyEmptyAddressIsNoop(t *testing.T) {
	var n *Notifier
	n.Notify(context.Background(), "RUNNING")
	New("", time.Second, nil).Notify(context.Background(), "RUNNING")
}

type recordingSink struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingSink) Notify(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func TestMirrorHandlerForwardsInfoAndAbove(t *testing.T) {
	var out bytes.Buffer
	sink := &recordingSink{}
	logger := slog.New(NewMirrorHandler(slog.NewTextHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}), sink))

	logger.Debug("not mirrored")
	logger.Info("Listening", "addr", "0.0.0.0:25251")
	logger.With("component", "intake").Warn("Socket error")

	require.Equal(t, []string{"LOG,Listening addr=0.0.0.0:25251", "LOG,Socket error"}, sink.messages)
	require.Contains(t, out.String(), "not mirrored")
	require.Contains(t, out.String(), "component=intake")
}
