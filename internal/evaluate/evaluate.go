// Package evaluate drives repeated detector evaluation as actions arrive.
// A single goroutine owns the loop: ingest one action, run the registry,
// de-duplicate, emit. The buffer is never mutated concurrently with a
// detector pass.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/detect"
	"github.com/gzhole/agentwatch/internal/enrich"
)

// State of the evaluation loop.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateEvaluating
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateEvaluating:
		return "evaluating"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Source supplies canonical actions. Next blocks until an action is
// available, the source is exhausted (io.EOF), or ctx is done.
type Source interface {
	Next(ctx context.Context) (action.Action, error)
}

// Result is one emission from the loop: the warnings that survived
// de-duplication on a pass, plus the derived outcome and any semantic
// assessment.
type Result struct {
	Session    string             `json:"session"`
	Warnings   []detect.Warning   `json:"warnings"`
	Outcome    detect.Outcome     `json:"outcome"`
	Assessment *enrich.Assessment `json:"assessment,omitempty"`
	// Degraded is set when enrichment was enabled but failed or timed
	// out; the deterministic warnings above are unaffected.
	Degraded  bool      `json:"degraded,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Sink receives results as they are produced.
type Sink interface {
	Emit(Result)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Result)

func (f SinkFunc) Emit(r Result) { f(r) }

// Options tune the evaluation loop. The zero value means: no throttling,
// fire-once de-duplication, no enrichment.
type Options struct {
	// Cooldown re-arms a fired signal after the duration elapses. Zero
	// keeps the fire-once-per-session default.
	Cooldown time.Duration
	// MaxRate caps evaluation passes per second regardless of action
	// arrival rate. Actions are still ingested when a pass is skipped.
	// Zero disables throttling.
	MaxRate float64
	// Enricher, when set to a non-nil provider, is dispatched after each
	// emitting pass with EnrichTimeout.
	Enricher      enrich.Enricher
	EnrichTimeout time.Duration
	Logger        *zap.Logger
}

const defaultEnrichTimeout = 10 * time.Second

// Evaluator owns the streaming evaluation loop for one session.
type Evaluator struct {
	buffer   *action.Buffer
	registry *detect.Registry
	source   Source
	sink     Sink

	dedup         *dedup
	limiter       *rate.Limiter
	enricher      enrich.Enricher
	enrichTimeout time.Duration
	log           *zap.Logger

	session string
	state   atomic.Int32
}

// New builds an evaluator over the buffer, registry, and source. The sink
// receives every pass that produced fresh warnings.
func New(buf *action.Buffer, reg *detect.Registry, src Source, sink Sink, opts Options) *Evaluator {
	e := &Evaluator{
		buffer:        buf,
		registry:      reg,
		source:        src,
		sink:          sink,
		dedup:         newDedup(opts.Cooldown),
		enricher:      opts.Enricher,
		enrichTimeout: opts.EnrichTimeout,
		log:           opts.Logger,
		session:       uuid.NewString(),
	}
	if opts.MaxRate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.MaxRate), 1)
	}
	if e.enrichTimeout <= 0 {
		e.enrichTimeout = defaultEnrichTimeout
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Session returns the identifier stamped onto every result of this run.
func (e *Evaluator) Session() string { return e.session }

// State returns the loop's current state.
func (e *Evaluator) State() State { return State(e.state.Load()) }

// Run drives the loop until the source is exhausted or ctx is cancelled;
// both end the run cleanly with a nil error. Run may be called once.
func (e *Evaluator) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateWaiting)) {
		return errors.New("evaluator already started")
	}
	defer e.state.Store(int32(StateStopped))

	for {
		a, err := e.source.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return nil
		default:
			return fmt.Errorf("action source: %w", err)
		}

		e.buffer.Append(a)

		if e.limiter != nil && !e.limiter.Allow() {
			continue
		}

		e.state.Store(int32(StateEvaluating))
		e.pass(ctx)
		e.state.Store(int32(StateWaiting))

		if ctx.Err() != nil {
			return nil
		}
	}
}

// pass runs one evaluation over a fresh snapshot and emits surviving
// warnings.
func (e *Evaluator) pass(ctx context.Context) {
	snap := e.buffer.Snapshot()
	warnings := e.registry.CheckAll(snap)
	for _, d := range e.registry.Diagnostics() {
		e.log.Warn("detector fault", zap.String("detector", d.Detector), zap.Error(d.Err))
	}

	fresh := e.dedup.filter(warnings, time.Now())
	if len(fresh) == 0 {
		return
	}

	res := Result{
		Session:   e.session,
		Warnings:  fresh,
		Outcome:   detect.Aggregate(fresh),
		EmittedAt: time.Now(),
	}
	if e.enricher != nil {
		res.Assessment, res.Degraded = e.assess(ctx, fresh, snap)
	}
	e.sink.Emit(res)
}

// assess dispatches enrichment off the critical path with its own timeout.
// A timeout or provider failure returns no assessment and marks the result
// degraded; the deterministic output is never delayed past the timeout.
func (e *Evaluator) assess(ctx context.Context, warnings []detect.Warning, snap action.Snapshot) (*enrich.Assessment, bool) {
	actx, cancel := context.WithTimeout(ctx, e.enrichTimeout)
	defer cancel()

	type outcome struct {
		a   *enrich.Assessment
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		a, err := e.enricher.Assess(actx, warnings, snap)
		ch <- outcome{a, err}
	}()

	select {
	case o := <-ch:
		if o.err != nil {
			e.log.Warn("enrichment failed", zap.Error(o.err))
			return nil, true
		}
		return o.a, false
	case <-actx.Done():
		e.log.Warn("enrichment timed out", zap.Duration("timeout", e.enrichTimeout))
		return nil, true
	}
}
