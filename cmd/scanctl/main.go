// cmd/scanctl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/tendant/simple-scanmatch/internal/bus"
	"github.com/tendant/simple-scanmatch/internal/config"
	"github.com/tendant/simple-scanmatch/internal/control"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

const usage = `usage: scanctl <command> [flags]

commands:
  status                               print RUNNING or STOPPED
  start --ip IP --port N --log-file F  start the scan intake
  stop                                 stop the scan intake
  send --addr HOST:PORT CODE DATA      act as a scanner and send one scan
  watch --nats-url URL                 print outcome events from NATS
`

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "status":
		err = runControl(ctx, args, control.KindStatus)
	case "start":
		err = runControl(ctx, args, control.KindStart)
	case "stop":
		err = runControl(ctx, args, control.KindStop)
	case "send":
		err = runSend(ctx, args)
	case "watch":
		err = runWatch(ctx, args, logger)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fatal(logger, os.Args[1]+" failed", err)
	}
}

func runControl(ctx context.Context, args []string, kind control.Kind) error {
	fs := flag.NewFlagSet(string(kind), flag.ExitOnError)
	addr := fs.String("control-addr", getenv("CONTROL_ADDR", "127.0.0.1:9999"), "control channel address")
	timeout := fs.Duration("timeout", 5*time.Second, "connection timeout")
	ip := fs.String("ip", getenv("SCAN_IP", "192.168.0.116"), "scan intake bind address (start)")
	port := fs.Int("port", 25251, "scan intake port (start)")
	logFile := fs.String("log-file", getenv("AUDIT_LOG", "./data/scan_log.db"), "audit log path (start)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd := control.Command{Kind: kind}
	if kind == control.KindStart {
		cmd.Station = config.Station{IP: *ip, Port: *port, LogFile: *logFile}
		if err := cmd.Station.Validate(); err != nil {
			return err
		}
	}

	reply, err := control.Send(ctx, *addr, cmd, *timeout)
	if err != nil {
		return err
	}
	if reply != "" {
		fmt.Println(reply)
	}
	return nil
}

func runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	addr := fs.String("addr", "127.0.0.1:25251", "scan intake address")
	timeout := fs.Duration("timeout", 5*time.Second, "connection timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("send expects CODE and DATA, got %d arguments", fs.NArg())
	}

	dialer := net.Dialer{Timeout: *timeout}
	conn, err := dialer.DialContext(ctx, "tcp", *addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", *addr, err)
	}
	defer conn.Close()

	_, err = io.WriteString(conn, fs.Arg(0)+","+fs.Arg(1))
	return err
}

func runWatch(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	natsURL := fs.String("nats-url", getenv("NATS_URL", "nats://127.0.0.1:4222"), "NATS server")
	subject := fs.String("subject", getenv("OUTCOME_SUBJECT", "scans.outcomes"), "outcome subject")
	if err := fs.Parse(args); err != nil {
		return err
	}

	nc, err := bus.Connect(*natsURL)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	out := json.NewEncoder(os.Stdout)
	if _, err := nc.SubscribeJSON(*subject, func(_ context.Context, data []byte) {
		if err := schema.ValidateOutcomeJSON(data); err != nil {
			logger.Warn("outcome event does not match contract", "err", err)
			return
		}
		var evt schema.OutcomeEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			logger.Warn("decode outcome event failed", "err", err)
			return
		}
		_ = out.Encode(evt)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", *subject, err)
	}

	stateSubject := *subject + ".state"
	if _, err := nc.SubscribeJSON(stateSubject, func(_ context.Context, data []byte) {
		if err := schema.ValidateRunStateJSON(data); err != nil {
			logger.Warn("run state event does not match contract", "err", err)
			return
		}
		var evt schema.RunStateEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			logger.Warn("decode run state event failed", "err", err)
			return
		}
		_ = out.Encode(evt)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", stateSubject, err)
	}

	logger.Info("watching", "nats_url", *natsURL, "subject", *subject, "state_subject", stateSubject)
	<-ctx.Done()
	return nil
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
