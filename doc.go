// Package tesmx runs state machines written as pure transition functions.
//
// A machine is three closed sum types (states, messages, commands) and a
// table of handlers keyed by (state tag, message tag). A handler returns the
// next state and the commands describing the side effects to perform; it
// never performs them itself. A Runtime holds the current state, applies
// messages one at a time and delivers emitted commands in order to the
// registered command handlers, which may send further messages.
//
//	m := tesmx.MustDefine(tesmx.Definition[State, Msg, Cmd]{
//		Name:   "Door",
//		States: tesmx.MustRegistry("Door.states", "open", "closed"),
//		Init:   func() (State, []Cmd) { return Closed{}, nil },
//		Flow:   flow,
//	})
//	rt, err := tesmx.New(m, tesmx.WithHistory(100))
//	rt.AddHandler(effects)
//	err = rt.Send(Knock{})
package tesmx
