// cmd/scanserver/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-scanmatch/internal/api"
	"github.com/tendant/simple-scanmatch/internal/bus"
	"github.com/tendant/simple-scanmatch/internal/config"
	"github.com/tendant/simple-scanmatch/internal/control"
	"github.com/tendant/simple-scanmatch/internal/intake"
	"github.com/tendant/simple-scanmatch/internal/metrics"
	"github.com/tendant/simple-scanmatch/internal/notify"
	"github.com/tendant/simple-scanmatch/internal/station"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()
	_ = godotenv.Load(*envFile)

	cfg, err := LoadConfig()
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}

	base := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	notifier := notify.New(cfg.NotifyAddr, cfg.NotifyTimeout, slog.New(base))
	logger := slog.New(notify.NewMirrorHandler(base, notifier))
	slog.SetDefault(logger)

	logger.Info("scan station starting", "control_addr", cfg.ControlAddr, "notify_addr", cfg.NotifyAddr, "http_addr", cfg.HTTPAddr, "station_file", cfg.StationFile, "max_scan_conns", cfg.MaxScanConns, "scan_read_timeout", cfg.ScanReadTimeout)
	metrics.Register()

	store := config.NewStore(cfg.StationFile)
	stationCfg, err := store.Load(cfg.Defaults)
	if err != nil {
		fatal(logger, "load station config", err, "path", store.Path())
	}
	logger.Info("loaded station config", "ip", stationCfg.IP, "port", stationCfg.Port, "log_file", stationCfg.LogFile)

	opts := station.Options{
		Store:    store,
		Notifier: notifier,
		Logger:   logger,
		Intake: intake.Options{
			MaxConns:    cfg.MaxScanConns,
			ReadTimeout: cfg.ScanReadTimeout,
			Logger:      logger,
		},
	}
	if cfg.NATSURL != "" {
		nc, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
		}
		defer nc.Close()
		publisher := bus.NewPublisher(nc, cfg.OutcomeSubject)
		opts.Publisher = publisher
		logger.Info("connected to NATS", "nats_url", cfg.NATSURL, "outcome_subject", publisher.OutcomeSubject(), "state_subject", publisher.StateSubject())
	}
	st := station.New(stationCfg, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := control.New(st, logger)
	if err := ctrl.Listen(cfg.ControlAddr); err != nil {
		fatal(logger, "listen for control commands", err, "addr", cfg.ControlAddr)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Serve(gctx) })

	if cfg.HTTPAddr != "" {
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(st, logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http api listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.AutoStart {
		if err := st.Start(ctx, stationCfg); err != nil {
			logger.Error("autostart failed", "err", err)
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("station exited with error", "err", err)
	}
	if st.Status() == schema.RunStateRunning {
		_ = st.Stop(context.Background())
	}
	logger.Info("Server shut down.")
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
