// Package station owns the scan intake lifecycle: run state, the audit log
// for the current run, and the correlation engine serving it.
package station

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/tendant/simple-scanmatch/internal/auditlog"
	"github.com/tendant/simple-scanmatch/internal/config"
	"github.com/tendant/simple-scanmatch/internal/correlate"
	"github.com/tendant/simple-scanmatch/internal/intake"
	"github.com/tendant/simple-scanmatch/internal/metrics"
	"github.com/tendant/simple-scanmatch/internal/process"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

var (
	ErrAlreadyRunning = errors.New("server is already running")
	ErrNotRunning     = errors.New("server is not running")
)

// AuditLog is the per-run outcome store.
type AuditLog interface {
	correlate.LogSink
	Recent(ctx context.Context, limit int) ([]schema.AuditRecord, error)
	Close() error
}

// EventPublisher emits structured outcome and run state events.
type EventPublisher interface {
	correlate.Publisher
	PublishRunState(ctx context.Context, event schema.RunStateEvent) error
}

type ConfigSaver interface {
	Save(st config.Station) error
}

type Options struct {
	Store     ConfigSaver
	Notifier  correlate.StatusSink
	Publisher EventPublisher
	Intake    intake.Options
	Logger    *slog.Logger
	// OpenAudit defaults to auditlog.Open.
	OpenAudit func(path string) (AuditLog, error)
}

type Station struct {
	opts   Options
	logger *slog.Logger
	state  *process.RunState

	mu     sync.Mutex
	cfg    config.Station
	audit  AuditLog
	server *intake.Server
}

func New(initial config.Station, opts Options) *Station {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OpenAudit == nil {
		opts.OpenAudit = func(path string) (AuditLog, error) { return auditlog.Open(path) }
	}
	if opts.Intake.Logger == nil {
		opts.Intake.Logger = opts.Logger
	}
	return &Station{
		opts:   opts,
		logger: opts.Logger.With("component", "station"),
		state:  process.NewRunState(),
		cfg:    initial,
	}
}

// Start persists cfg, opens its audit log and begins accepting scans with a
// fresh correlation state.
func (s *Station) Start(ctx context.Context, cfg config.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Running() {
		s.logger.Warn("Server is already running.")
		return ErrAlreadyRunning
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("rejecting station config", "err", err)
		return fmt.Errorf("invalid station config: %w", err)
	}

	s.cfg = cfg
	if s.opts.Store != nil {
		if err := s.opts.Store.Save(cfg); err != nil {
			s.logger.Error("persist station config failed", "err", err)
		}
	}

	s.logger.Info("Starting server...", "ip", cfg.IP, "port", cfg.Port, "log_file", cfg.LogFile)
	audit, err := s.opts.OpenAudit(cfg.LogFile)
	if err != nil {
		s.logger.Error("open audit log failed", "log_file", cfg.LogFile, "err", err)
		s.notifyState(ctx, schema.RunStateStopped)
		return fmt.Errorf("open audit log: %w", err)
	}

	engineOpts := []correlate.Option{correlate.WithLogger(s.opts.Logger)}
	if s.opts.Publisher != nil {
		engineOpts = append(engineOpts, correlate.WithPublisher(s.opts.Publisher))
	}
	engine := correlate.NewEngine(audit, s.opts.Notifier, engineOpts...)

	server := intake.New(engine, s.opts.Intake)
	if err := server.Start(cfg.Addr()); err != nil {
		s.logger.Error("Failed to set up server socket", "addr", cfg.Addr(), "err", err)
		if cerr := audit.Close(); cerr != nil {
			s.logger.Warn("close audit log failed", "err", cerr)
		}
		s.notifyState(ctx, schema.RunStateStopped)
		return fmt.Errorf("start intake: %w", err)
	}

	s.audit = audit
	s.server = server
	s.state.MarkRunning()
	metrics.SetRunning(true)
	s.notifyState(ctx, schema.RunStateRunning)
	return nil
}

// Stop closes the intake listener and the audit log. The correlation state
// is discarded with its engine.
func (s *Station) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Running() {
		s.logger.Warn("Server is not running.")
		return ErrNotRunning
	}

	s.logger.Info("Closing server socket...")
	if err := s.server.Stop(); err != nil {
		s.logger.Error("stop intake failed", "err", err)
	}
	if err := s.audit.Close(); err != nil {
		s.logger.Warn("close audit log failed", "err", err)
	}
	s.server = nil
	s.audit = nil

	s.state.MarkStopped()
	metrics.SetRunning(false)
	s.logger.Info("Server stopped.")
	s.notifyState(ctx, schema.RunStateStopped)
	return nil
}

func (s *Station) Status() schema.RunState { return s.state.Get() }

func (s *Station) Since() time.Time { return s.state.Since() }

func (s *Station) Config() config.Station {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// IntakeAddr is the bound scan address while running.
func (s *Station) IntakeAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Addr()
}

// Recent returns the newest audit rows of the current run.
func (s *Station) Recent(ctx context.Context, limit int) ([]schema.AuditRecord, error) {
	s.mu.Lock()
	audit := s.audit
	s.mu.Unlock()
	if audit == nil {
		return nil, ErrNotRunning
	}
	return audit.Recent(ctx, limit)
}

func (s *Station) notifyState(ctx context.Context, state schema.RunState) {
	if s.opts.Notifier != nil {
		s.opts.Notifier.Notify(ctx, string(state))
	}
	if s.opts.Publisher == nil {
		return
	}
	evt := schema.RunStateEvent{
		State:      state,
		IP:         s.cfg.IP,
		Port:       s.cfg.Port,
		LogFile:    s.cfg.LogFile,
		HappenedAt: time.Now().Unix(),
	}
	if err := s.opts.Publisher.PublishRunState(ctx, evt); err != nil {
		metrics.RecordSinkFailure("publish")
		s.logger.Error("publish run state failed", "state", state, "err", err)
	}
}
