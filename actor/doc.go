// Package actor funnels every message for one tesmx runtime through a single
// owner goroutine.
//
// The runtime itself is safe for concurrent Send, but concurrent senders
// race for the order in which their messages are applied. An Actor removes
// that race: Send stamps each message with a sequence number and appends it
// to a mailbox, and the owner goroutine applies the mailbox strictly in
// sequence order. Command handlers therefore run on the owner goroutine and
// asynchronous effects (timers, I/O) re-enter the machine through Send.
//
// # Delivery modes
//
// With a zero TickRate the owner wakes as soon as a message arrives. With a
// positive TickRate messages are batched and applied at fixed tick
// boundaries, which gives reproducible timing for simulations and tests.
//
// # Example Usage
//
//	rt, _ := tesmx.New(machine)
//	a := actor.New(rt, actor.Config[Msg]{})
//	a.Start(ctx)
//	defer a.Stop()
//	a.Do(ctx, func(rt *tesmx.Runtime[State, Msg, Cmd]) {
//		rt.AddHandler(handler)
//	})
//	a.Send(TimerElapsed{Now: now})
package actor
