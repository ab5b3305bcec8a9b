package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-scanmatch/internal/config"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		raw  string
		want Command
		err  error
	}{
		{raw: "STATUS", want: Command{Kind: KindStatus}},
		{raw: "STATUS\n", want: Command{Kind: KindStatus}},
		{raw: "STOP", want: Command{Kind: KindStop}},
		{
			raw:  "START,192.168.0.116,25251,C:/logs/message_log.db",
			want: Command{Kind: KindStart, Station: config.Station{IP: "192.168.0.116", Port: 25251, LogFile: "C:/logs/message_log.db"}},
		},
		{raw: "START,192.168.0.116,25251", err: ErrMalformedCommand},
		{raw: "START,192.168.0.116,port,log.db", err: ErrMalformedCommand},
		{raw: "STOPNOW", err: ErrUnknownCommand},
		{raw: "RESTART", err: ErrUnknownCommand},
		{raw: "", err: ErrUnknownCommand},
	}

	for _, tc := range tests {
		got, err := ParseCommand(tc.raw)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err, "raw=%q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tc.raw)
		require.Equal(t, tc.want, got)
	}
}

func TestCommandStringRoundTrip(t *testing.T) {
	cmd := Command{Kind: KindStart, Station: config.Station{IP: "10.0.0.9", Port: 4000, LogFile: "/tmp/log.db"}}
	require.Equal(t, "START,10.0.0.9,4000,/tmp/log.db", cmd.String())

	parsed, err := ParseCommand(cmd.String())
	require.NoError(t, err)
	require.Equal(t, cmd, parsed)
	require.Equal(t, "STOP", Command{Kind: KindStop}.String())
}

type fakeStation struct {
	mu      sync.Mutex
	running bool
	starts  []config.Station
	stops   int
}

func (f *fakeStation) Start(_ context.Context, cfg config.Station) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return errors.New("already running")
	}
	f.running = true
	f.starts = append(f.starts, cfg)
	return nil
}

func (f *fakeStation) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return errors.New("not running")
	}
	f.running = false
	f.stops++
	return nil
}

func (f *fakeStation) Status() schema.RunState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return schema.RunStateRunning
	}
	return schema.RunStateStopped
}

func (f *fakeStation) calls() ([]config.Station, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]config.Station(nil), f.starts...), f.stops
}

func startChannel(t *testing.T, station Station) string {
	t.Helper()
	ch := New(station, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, ch.Listen("127.0.0.1:0"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return ch.Addr().String()
}

func send(t *testing.T, addr string, cmd Command) string {
	t.Helper()
	reply, err := Send(context.Background(), addr, cmd, 2*time.Second)
	require.NoError(t, err)
	return reply
}

func TestChannelDrivesStation(t *testing.T) {
	station := &fakeStation{}
	addr := startChannel(t, station)
	cfg := config.Station{IP: "127.0.0.1", Port: 25251, LogFile: "log.db"}

	require.Equal(t, "STOPPED", send(t, addr, Command{Kind: KindStatus}))

	require.Empty(t, send(t, addr, Command{Kind: KindStart, Station: cfg}))
	require.Equal(t, "RUNNING", send(t, addr, Command{Kind: KindStatus}))

	// second START is a no-op
	send(t, addr, Command{Kind: KindStart, Station: cfg})
	starts, _ := station.calls()
	require.Len(t, starts, 1)

	require.Empty(t, send(t, addr, Command{Kind: KindStop}))
	require.Equal(t, "STOPPED", send(t, addr, Command{Kind: KindStatus}))
	send(t, addr, Command{Kind: KindStop})
	starts, stops := station.calls()
	require.Equal(t, 1, stops)
	require.Equal(t, []config.Station{cfg}, starts)
}

func TestChannelIgnoresUnknownAndMalformed(t *testing.T) {
	station := &fakeStation{}
	addr := startChannel(t, station)

	for _, raw := range []string{"HELLO", "START,only-ip", ""} {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		_, err = io.WriteString(conn, raw)
		require.NoError(t, err)
		require.NoError(t, conn.(*net.TCPConn).CloseWrite())
		reply, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.Empty(t, reply)
		require.NoError(t, conn.Close())
	}

	require.Equal(t, "STOPPED", send(t, addr, Command{Kind: KindStatus}), "channel keeps serving after bad input")
	starts, _ := station.calls()
	require.Empty(t, starts)
}

func TestChannelServeRequiresListen(t *testing.T) {
	ch := New(&fakeStation{}, nil)
	require.Error(t, ch.Serve(context.Background()))
	require.Nil(t, ch.Addr())
}

func TestSendUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Send(context.Background(), addr, Command{Kind: KindStatus}, time.Second)
	require.Error(t, err)
}
