package benchmarks

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/comalice/tesmx"
	"github.com/comalice/tesmx/actor"
)

func startActor(b *testing.B, tick time.Duration) *actor.Actor[State, Msg, Cmd] {
	b.Helper()
	rt, err := tesmx.New(GenFlatMachine(4, 1))
	if err != nil {
		b.Fatal(err)
	}
	rt.AddHandler(Discard)
	a := actor.New(rt, actor.Config[Msg]{TickRate: tick})
	if err := a.Start(context.Background()); err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = a.Stop() })
	return a
}

func BenchmarkActorSendWait(b *testing.B) {
	a := startActor(b, 0)
	ctx := context.Background()
	b.ReportAllocs()
	for b.Loop() {
		if err := a.SendWait(ctx, Tick); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkActorSend queues every message without waiting and then waits for
// the mailbox to drain with one Do barrier.
func BenchmarkActorSend(b *testing.B) {
	for _, tick := range []time.Duration{0, time.Millisecond} {
		b.Run(fmt.Sprintf("tick=%s", tick), func(b *testing.B) {
			a := startActor(b, tick)
			b.ReportAllocs()
			for b.Loop() {
				if err := a.Send(Tick); err != nil {
					b.Fatal(err)
				}
			}
			if err := a.Do(context.Background(), func(*tesmx.Runtime[State, Msg, Cmd]) {}); err != nil {
				b.Fatal(err)
			}
		})
	}
}

func BenchmarkActorConcurrentSenders(b *testing.B) {
	a := startActor(b, 0)
	const senders = 8
	b.ReportAllocs()
	b.ResetTimer()
	var wg sync.WaitGroup
	per := b.N/senders + 1
	for range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range per {
				if err := a.Send(Tick); err != nil {
					b.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := a.Do(context.Background(), func(*tesmx.Runtime[State, Msg, Cmd]) {}); err != nil {
		b.Fatal(err)
	}
}
