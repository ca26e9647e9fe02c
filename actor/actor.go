package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/tesmx"
	"github.com/comalice/tesmx/internal/metrics"
)

var (
	// ErrStopped is returned for messages sent after Stop, and to waiters
	// whose message was still queued when the actor stopped.
	ErrStopped = errors.New("actor: stopped")
	// ErrNotStarted is returned by Stop on an actor that was never started.
	ErrNotStarted = errors.New("actor: not started")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("actor: already started")
)

// Config configures an Actor.
type Config[M tesmx.Tagged] struct {
	// TickRate batches messages and applies them at fixed boundaries. Zero
	// applies them as soon as they arrive.
	TickRate time.Duration
	// OnError receives errors of messages sent with Send. The default logs
	// them.
	OnError func(msg M, err error)
	// Logger defaults to a discarding logger.
	Logger *zerolog.Logger
	// Registerer, when set, exposes the mailbox depth.
	Registerer prometheus.Registerer
}

// envelope adds sequencing metadata to a mailbox item.
type envelope[S, M, C tesmx.Tagged] struct {
	seq  uint64
	msg  M
	do   func(*tesmx.Runtime[S, M, C])
	done chan error
}

// Actor owns a runtime and applies its messages on one goroutine.
type Actor[S, M, C tesmx.Tagged] struct {
	rt       *tesmx.Runtime[S, M, C]
	tickRate time.Duration
	onError  func(M, error)
	log      zerolog.Logger
	mailbox  *metrics.Mailbox

	mu      sync.Mutex
	batch   []envelope[S, M, C]
	seq     uint64
	applied uint64
	batches uint64
	started bool
	stopped bool
	wake    chan struct{}

	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates an actor around rt. The actor does nothing until Start.
func New[S, M, C tesmx.Tagged](rt *tesmx.Runtime[S, M, C], cfg Config[M]) *Actor[S, M, C] {
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	a := &Actor[S, M, C]{
		rt:       rt,
		tickRate: cfg.TickRate,
		onError:  cfg.OnError,
		log: log.With().
			Str("component", "actor").
			Str("machine", rt.Name()).
			Str("runtime_id", rt.ID()).
			Logger(),
		wake: make(chan struct{}, 1),
	}
	if cfg.Registerer != nil {
		mb, err := metrics.NewMailbox(cfg.Registerer, rt.Name())
		if err != nil {
			a.log.Warn().Err(err).Msg("mailbox metrics disabled")
		}
		a.mailbox = mb
	}
	if a.onError == nil {
		a.onError = func(msg M, err error) {
			a.log.Error().Err(err).Str("msg", msg.Tag()).Msg("message rejected")
		}
	}
	return a
}

// Runtime returns the owned runtime. Its accessors are safe from any
// goroutine; registration should go through Do to keep ordering.
func (a *Actor[S, M, C]) Runtime() *tesmx.Runtime[S, M, C] { return a.rt }

// Start launches the owner goroutine. It stops when ctx is cancelled or Stop
// is called.
func (a *Actor[S, M, C]) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return ErrStopped
	}
	if a.started {
		return ErrAlreadyStarted
	}
	a.started = true

	ctx, a.cancel = context.WithCancel(ctx)
	a.group, ctx = errgroup.WithContext(ctx)
	a.group.Go(func() error {
		a.loop(ctx)
		return nil
	})
	a.log.Debug().Dur("tick_rate", a.tickRate).Msg("actor started")
	return nil
}

// Stop cancels the owner goroutine and waits for it. Messages still queued
// are dropped; their waiters receive ErrStopped.
func (a *Actor[S, M, C]) Stop() error {
	a.mu.Lock()
	if !a.started {
		a.stopped = true
		a.mu.Unlock()
		return ErrNotStarted
	}
	a.stopped = true
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	err := a.group.Wait()
	a.log.Debug().Msg("actor stopped")
	return err
}

// Send queues msg. It never blocks. Errors from applying msg go to the
// configured OnError.
func (a *Actor[S, M, C]) Send(msg M) error {
	return a.enqueue(envelope[S, M, C]{msg: msg})
}

// SendWait queues msg and waits until it is applied, returning the result of
// the runtime Send.
func (a *Actor[S, M, C]) SendWait(ctx context.Context, msg M) error {
	done := make(chan error, 1)
	if err := a.enqueue(envelope[S, M, C]{msg: msg, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the owner goroutine, ordered with the messages around it, and
// waits for it to return. Calling Do from the owner goroutine deadlocks until
// ctx is done.
func (a *Actor[S, M, C]) Do(ctx context.Context, fn func(rt *tesmx.Runtime[S, M, C])) error {
	done := make(chan error, 1)
	if err := a.enqueue(envelope[S, M, C]{do: fn, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Depth returns the number of queued mailbox items.
func (a *Actor[S, M, C]) Depth() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.batch)
}

// Seq returns the sequence number of the last mailbox item applied, zero
// before the first. Sequence numbers start at 1 and follow Send, SendWait and
// Do calls in the order they were accepted.
func (a *Actor[S, M, C]) Seq() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applied
}

// Batches returns the number of mailbox batches processed.
func (a *Actor[S, M, C]) Batches() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.batches
}

func (a *Actor[S, M, C]) enqueue(e envelope[S, M, C]) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return ErrStopped
	}
	a.seq++
	e.seq = a.seq
	a.batch = append(a.batch, e)
	a.mu.Unlock()
	a.mailbox.Queued(1)

	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// loop is the owner goroutine.
func (a *Actor[S, M, C]) loop(ctx context.Context) {
	defer a.abandon()

	var tick <-chan time.Time
	if a.tickRate > 0 {
		ticker := time.NewTicker(a.tickRate)
		defer ticker.Stop()
		tick = ticker.C
	}
	wake := a.wake
	if tick != nil {
		wake = nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			a.process()
		case <-tick:
			a.process()
		}
	}
}

// process applies one batch.
func (a *Actor[S, M, C]) process() {
	items := a.collect()
	if len(items) == 0 {
		return
	}
	defer a.mailbox.Batch(len(items))

	for _, e := range items {
		a.apply(e)
	}
}

// collect atomically retrieves and clears the batch.
func (a *Actor[S, M, C]) collect() []envelope[S, M, C] {
	a.mu.Lock()
	defer a.mu.Unlock()
	items := a.batch
	a.batch = nil
	if len(items) > 0 {
		a.batches++
	}
	return items
}

func (a *Actor[S, M, C]) apply(e envelope[S, M, C]) {
	if e.do != nil {
		err := a.protect(e.seq, func() { e.do(a.rt) })
		a.finish(e.seq)
		if e.done != nil {
			e.done <- err
		}
		return
	}

	var sendErr error
	if err := a.protect(e.seq, func() { sendErr = a.rt.Send(e.msg) }); err != nil {
		sendErr = err
	}
	a.finish(e.seq)
	switch {
	case e.done != nil:
		e.done <- sendErr
	case sendErr != nil:
		a.log.Debug().Uint64("seq", e.seq).Err(sendErr).Msg("message failed")
		a.onError(e.msg, sendErr)
	}
}

// finish records seq as applied before any waiter is released.
func (a *Actor[S, M, C]) finish(seq uint64) {
	a.mu.Lock()
	a.applied = seq
	a.mu.Unlock()
}

// protect keeps a panicking command handler from killing the owner goroutine.
func (a *Actor[S, M, C]) protect(seq uint64, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Uint64("seq", seq).Interface("panic", r).Msg("recovered panic on actor goroutine")
			err = &PanicError{Seq: seq, Value: r}
		}
	}()
	fn()
	return nil
}

// abandon releases waiters of messages left in the mailbox.
func (a *Actor[S, M, C]) abandon() {
	a.mu.Lock()
	a.stopped = true
	items := a.batch
	a.batch = nil
	a.mu.Unlock()

	if len(items) > 0 {
		a.log.Warn().Int("dropped", len(items)).Msg("mailbox dropped on stop")
		a.mailbox.Batch(len(items))
	}
	for _, e := range items {
		if e.done != nil {
			e.done <- ErrStopped
		}
	}
}

// PanicError reports a panic raised on the owner goroutine outside of a
// transition handler, typically by a command handler.
type PanicError struct {
	// Seq is the sequence number of the mailbox item that panicked.
	Seq   uint64
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("actor: recovered panic in item %d: %v", e.Seq, e.Value)
}
