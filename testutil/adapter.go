package testutil

import (
	"context"
	"time"

	"github.com/comalice/tesmx"
	"github.com/comalice/tesmx/actor"
)

// RuntimeAdapter provides a common interface over the direct runtime and the
// actor so the same scenario can run against both.
type RuntimeAdapter[S, M tesmx.Tagged] interface {
	Start(ctx context.Context) error
	Stop() error
	Send(msg M) error
	State() S
	WaitForStability(timeout time.Duration) error
}

// DirectAdapter wraps a runtime driven from the calling goroutine.
type DirectAdapter[S, M, C tesmx.Tagged] struct {
	rt *tesmx.Runtime[S, M, C]
}

// NewDirectAdapter creates an adapter for rt.
func NewDirectAdapter[S, M, C tesmx.Tagged](rt *tesmx.Runtime[S, M, C]) *DirectAdapter[S, M, C] {
	return &DirectAdapter[S, M, C]{rt: rt}
}

func (a *DirectAdapter[S, M, C]) Start(context.Context) error { return nil }

func (a *DirectAdapter[S, M, C]) Stop() error { return nil }

func (a *DirectAdapter[S, M, C]) Send(msg M) error { return a.rt.Send(msg) }

func (a *DirectAdapter[S, M, C]) State() S { return a.rt.State() }

// WaitForStability returns at once: Send completes the whole drain.
func (a *DirectAdapter[S, M, C]) WaitForStability(time.Duration) error { return nil }

// ActorAdapter wraps an actor owning rt.
type ActorAdapter[S, M, C tesmx.Tagged] struct {
	act *actor.Actor[S, M, C]
}

// NewActorAdapter creates an adapter running rt through an actor.
func NewActorAdapter[S, M, C tesmx.Tagged](rt *tesmx.Runtime[S, M, C], cfg actor.Config[M]) *ActorAdapter[S, M, C] {
	return &ActorAdapter[S, M, C]{act: actor.New(rt, cfg)}
}

func (a *ActorAdapter[S, M, C]) Start(ctx context.Context) error { return a.act.Start(ctx) }

func (a *ActorAdapter[S, M, C]) Stop() error { return a.act.Stop() }

func (a *ActorAdapter[S, M, C]) Send(msg M) error { return a.act.Send(msg) }

func (a *ActorAdapter[S, M, C]) State() S { return a.act.Runtime().State() }

// WaitForStability blocks until every message sent so far is processed.
func (a *ActorAdapter[S, M, C]) WaitForStability(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.act.Do(ctx, func(*tesmx.Runtime[S, M, C]) {})
}
