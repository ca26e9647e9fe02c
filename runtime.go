package tesmx

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/comalice/tesmx/internal/core"
	"github.com/comalice/tesmx/internal/metrics"
)

// CommandHandler interprets one command. Handlers perform the side effects
// the machine describes and may call Send reentrantly.
type CommandHandler[C Tagged] func(cmd C) error

type listenerEntry struct {
	id uint64
	fn func()
}

type handlerEntry[C Tagged] struct {
	id uint64
	fn CommandHandler[C]
}

// Runtime owns the current state of one machine instance and dispatches the
// commands its transitions emit.
//
// Commands are delivered strictly in emission order by a single drain loop. A
// Send issued while a drain is active (reentrantly from a handler or from
// another goroutine) commits its transition and enqueues its commands, then
// returns; the active drain delivers them after everything queued before.
// Until the first command handler is registered commands are held in the
// queue; the first AddHandler flushes them, including the initial commands.
// Once that has happened, commands emitted while no handler is registered are
// dropped.
type Runtime[S, M, C Tagged] struct {
	machine   *Machine[S, M, C]
	id        string
	log       zerolog.Logger
	metrics   *metrics.Runtime
	tracer    trace.Tracer
	clock     func() time.Time
	observers []func(Commit)

	history *core.Log[HistoryEntry[S, M, C]]

	mu        sync.Mutex
	state     S
	seq       uint64
	queue     core.Queue[C]
	draining  bool
	flushed   bool
	listeners []listenerEntry
	handlers  []handlerEntry[C]
	nextID    uint64
}

// New creates a runtime in the machine's initial state. The initial commands
// are queued until the first command handler is added.
func New[S, M, C Tagged](m *Machine[S, M, C], opts ...Option) (*Runtime[S, M, C], error) {
	o := options{
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("")
	}

	var mx *metrics.Runtime
	if o.registry != nil {
		var err error
		if mx, err = metrics.NewRuntime(o.registry, m.Name()); err != nil {
			return nil, err
		}
	}

	state, cmds := m.Initial()
	if isNil(state) {
		return nil, configErrorf(m.Name(), "initializer returned a nil state")
	}

	r := &Runtime[S, M, C]{
		machine: m,
		id:      o.id,
		log: o.logger.With().
			Str("machine", m.Name()).
			Str("runtime_id", o.id).
			Logger(),
		metrics:   mx,
		tracer:    o.tracer,
		clock:     o.clock,
		observers: o.observers,
		history:   core.NewLog[HistoryEntry[S, M, C]](o.history),
		state:     state,
	}
	r.queue.Push(cmds...)
	r.metrics.Enqueued(len(cmds))
	r.log.Debug().
		Str("state", state.Tag()).
		Int("commands", len(cmds)).
		Msg("runtime created")
	return r, nil
}

// ID returns the runtime identifier.
func (r *Runtime[S, M, C]) ID() string { return r.id }

// Name returns the machine name.
func (r *Runtime[S, M, C]) Name() string { return r.machine.Name() }

// Machine returns the machine definition.
func (r *Runtime[S, M, C]) Machine() *Machine[S, M, C] { return r.machine }

// State returns the current state.
func (r *Runtime[S, M, C]) State() S {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Pending returns the number of commands waiting for delivery.
func (r *Runtime[S, M, C]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queue.Len()
}

// History returns the retained transitions, oldest first.
func (r *Runtime[S, M, C]) History() []HistoryEntry[S, M, C] {
	return r.history.Entries()
}

// Subscribe registers a listener called after every committed transition. The
// returned function unsubscribes; calling it more than once is harmless.
func (r *Runtime[S, M, C]) Subscribe(fn func()) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, listenerEntry{id: id, fn: fn})
	r.mu.Unlock()
	r.metrics.ListenerAdded()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.listeners = slices.DeleteFunc(r.listeners, func(l listenerEntry) bool { return l.id == id })
			r.mu.Unlock()
			r.metrics.ListenerRemoved()
		})
	}
}

// AddHandler registers a command handler. The first handler ever added
// receives every command held since New before AddHandler returns; delivery
// errors are logged. The returned function removes the handler and is
// idempotent.
func (r *Runtime[S, M, C]) AddHandler(h CommandHandler[C]) (remove func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers = append(r.handlers, handlerEntry[C]{id: id, fn: h})
	r.flushed = true
	r.mu.Unlock()

	if err := r.drain(); err != nil {
		r.log.Warn().Err(err).Msg("flushing held commands")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.handlers = slices.DeleteFunc(r.handlers, func(e handlerEntry[C]) bool { return e.id == id })
			r.mu.Unlock()
		})
	}
}

// Send applies msg to the current state. On success the new state and history
// entry are committed, listeners are notified and the emitted commands are
// delivered. On error nothing is committed. Errors returned by command
// handlers during delivery are joined and returned; the transition stays
// committed.
func (r *Runtime[S, M, C]) Send(msg M) error {
	return r.SendContext(context.Background(), msg)
}

// SendContext is Send with a parent context for tracing.
func (r *Runtime[S, M, C]) SendContext(ctx context.Context, msg M) error {
	_, span := r.tracer.Start(ctx, "tesmx.send", trace.WithAttributes(
		attribute.String("tesmx.machine", r.machine.Name()),
		attribute.String("tesmx.message", tagOf(msg)),
	))
	defer span.End()

	r.mu.Lock()
	from := r.state
	next, cmds, unhandled, err := r.machine.step(msg, from)
	if err != nil {
		r.mu.Unlock()
		r.failed(span, msg, from, err)
		return err
	}
	r.seq++
	seq := r.seq
	at := r.clock()
	r.history.Record(HistoryEntry[S, M, C]{
		Seq:      seq,
		At:       at,
		From:     from,
		Msg:      msg,
		To:       next,
		Commands: slices.Clone(cmds),
	})
	r.state = next
	r.queue.Push(cmds...)
	listeners := slices.Clone(r.listeners)
	r.mu.Unlock()

	if unhandled {
		r.reported(span, msg, from)
	}
	r.metrics.Transition(metrics.OutcomeApplied)
	r.metrics.Enqueued(len(cmds))
	span.SetAttributes(
		attribute.String("tesmx.from", from.Tag()),
		attribute.String("tesmx.to", next.Tag()),
		attribute.Int("tesmx.commands", len(cmds)),
	)
	r.log.Debug().
		Uint64("seq", seq).
		Str("from", from.Tag()).
		Str("msg", tagOf(msg)).
		Str("to", next.Tag()).
		Int("commands", len(cmds)).
		Msg("transition")

	if len(r.observers) > 0 {
		c := Commit{
			Machine:   r.machine.Name(),
			RuntimeID: r.id,
			Seq:       seq,
			At:        at,
			Edge:      Edge{From: from.Tag(), Msg: tagOf(msg), To: next.Tag()},
			Commands:  make([]string, len(cmds)),
		}
		for i, cmd := range cmds {
			c.Commands[i] = tagOf(cmd)
		}
		for _, obs := range r.observers {
			obs(c)
		}
	}
	for _, l := range listeners {
		l.fn()
	}

	if err := r.drain(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "command handler failed")
		return err
	}
	return nil
}

// reported runs the Report callback for a message accepted without a handler.
// The transition is committed unchanged before this runs, outside the lock.
func (r *Runtime[S, M, C]) reported(span trace.Span, msg M, state S) {
	span.SetAttributes(attribute.Bool("tesmx.unhandled", true))
	r.log.Warn().
		Str("state", state.Tag()).
		Str("msg", tagOf(msg)).
		Msg("unhandled message reported")
	r.machine.policy.notify(r.machine.name, msg, state)
}

func (r *Runtime[S, M, C]) failed(span trace.Span, msg M, state S, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	ev := r.log.Warn()
	outcome := metrics.OutcomeUnhandled
	var he *HandlerError
	if errors.As(err, &he) {
		outcome = metrics.OutcomeFailed
		ev = r.log.Error().Bytes("stack", he.Stack)
	}
	r.metrics.Transition(outcome)
	ev.Err(err).
		Str("state", tagOf(state)).
		Str("msg", tagOf(msg)).
		Msg("transition rejected")
}

// drain delivers queued commands until the queue is empty. Before the first
// handler is added it does nothing; afterwards a command popped while no
// handler is registered is dropped. Only one drain runs at a time; a call that
// finds one active returns immediately.
func (r *Runtime[S, M, C]) drain() error {
	r.mu.Lock()
	if r.draining || !r.flushed || r.queue.Len() == 0 {
		r.mu.Unlock()
		return nil
	}
	r.draining = true
	r.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			r.mu.Lock()
			r.draining = false
			r.mu.Unlock()
			panic(p)
		}
	}()

	var errs []error
	for {
		r.mu.Lock()
		cmd, ok := r.queue.Pop()
		if !ok {
			r.draining = false
			r.mu.Unlock()
			break
		}
		handlers := slices.Clone(r.handlers)
		r.mu.Unlock()

		r.metrics.Dispatched()
		if len(handlers) == 0 {
			r.log.Debug().Str("command", cmd.Tag()).Msg("command dropped, no handler registered")
			continue
		}
		for _, h := range handlers {
			if err := h.fn(cmd); err != nil {
				r.metrics.CommandError()
				r.log.Error().Err(err).Str("command", cmd.Tag()).Msg("command handler failed")
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
