// internal/correlate/engine.go
package correlate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-scanmatch/internal/metrics"
	"github.com/tendant/simple-scanmatch/internal/scan"
	"github.com/tendant/simple-scanmatch/pkg/schema"
)

// LogSink persists audit entries.
type LogSink interface {
	Append(ctx context.Context, entry Entry) error
}

// StatusSink delivers status messages to an observer. Delivery is best
// effort and never reports failure to the caller.
type StatusSink interface {
	Notify(ctx context.Context, message string)
}

// Publisher emits structured outcome events.
type Publisher interface {
	PublishOutcome(ctx context.Context, event schema.OutcomeEvent) error
}

// State is the correlation slot. An empty string means no barcode; a real
// barcode is never shorter than scan.MinBarcodeLength.
type State struct {
	Pending       string
	LastCompleted string
}

// Engine pairs each linear barcode scan with the QR scan that follows it.
// Process runs the decision and all of its side effects under one lock, so
// concurrent scans are decided strictly one after another.
type Engine struct {
	mu        sync.Mutex
	state     State
	log       LogSink
	status    StatusSink
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// NewEngine returns an engine with an empty correlation state.
func NewEngine(log LogSink, status StatusSink, opts ...Option) *Engine {
	e := &Engine{
		log:    log,
		status: status,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process decides the outcome of evt, updates the correlation state, then
// appends the audit entry and notifies the status sink. Sink failures are
// logged; they never undo the decision.
func (e *Engine) Process(ctx context.Context, evt scan.Event) Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.decide(evt)
	metrics.RecordOutcome(string(out.Kind))

	logger := e.logger.With("outcome_id", out.ID, "source", out.SourceAddress, "kind", out.Kind)
	switch out.Kind {
	case schema.OutcomeBadScan:
		logger.Warn("bad scan", "barcode", out.Barcode)
	case schema.OutcomeBarcodeScanned:
		logger.Info("barcode scanned, waiting for QR code", "barcode", out.Barcode)
	case schema.OutcomeSuccess:
		logger.Info("codes match", "barcode", out.Barcode)
	default:
		logger.Warn("correlation failure", "barcode", out.Barcode, "pending", out.Pending)
	}

	if e.log != nil {
		if err := e.log.Append(ctx, out.Entry()); err != nil {
			metrics.RecordSinkFailure("audit")
			logger.Error("append audit entry failed", "err", err)
		}
	}
	if e.status != nil {
		e.status.Notify(ctx, out.Notification())
	}
	if e.publisher != nil {
		if err := e.publisher.PublishOutcome(ctx, out.Event()); err != nil {
			metrics.RecordSinkFailure("publish")
			logger.Error("publish outcome failed", "err", err)
		}
	}
	return out
}

// decide applies the matching rules. Callers hold e.mu.
func (e *Engine) decide(evt scan.Event) Outcome {
	out := Outcome{
		ID:            uuid.NewString(),
		SourceAddress: evt.SourceAddress,
		Symbology:     evt.Symbology,
		RawPayload:    evt.RawPayload,
		Barcode:       evt.Barcode,
		Timestamp:     e.now(),
	}

	if !evt.Valid() {
		out.Kind = schema.OutcomeBadScan
		return out
	}

	pending := e.state.Pending
	linear := evt.Symbology == schema.SymbologyCode39

	switch {
	case pending == "" && linear:
		out.Kind = schema.OutcomeBarcodeScanned
		e.state.Pending = evt.Barcode
	case pending == "":
		out.Kind = schema.OutcomeFailureNoPriorScan
	case linear:
		out.Kind = schema.OutcomeFailureOverwritten
		out.Pending = pending
		e.state.Pending = evt.Barcode
	default:
		out.Pending = pending
		if evt.Barcode == pending {
			out.Kind = schema.OutcomeSuccess
		} else {
			out.Kind = schema.OutcomeFailureMismatch
		}
		e.state.LastCompleted = pending
		e.state.Pending = ""
	}
	return out
}
