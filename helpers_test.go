package tesmx_test

import (
	"github.com/comalice/tesmx"
)

type (
	state = tesmx.Variant[int]
	msg   = tesmx.Variant[string]
	cmd   = tesmx.Variant[string]
)

var pingerStates = tesmx.MustRegistry("pinger.states", "idle", "busy")

func st(tag string, n int) state { return state{Kind: tag, Payload: n} }
func mk(tag string) msg         { return msg{Kind: tag} }
func logc(s string) cmd         { return cmd{Kind: "log", Payload: s} }

// pinger:
//
//	idle --ping--> busy   emits c1 c2 c3
//	busy --pong--> idle   emits back
//	idle --burst(x)--> idle emits x
//	idle --boom--> panic
//	* --noop--> ignored (fallback)
//	* --pong--> stray (fallback; busy overrides)
func pingerDefinition() tesmx.Definition[state, msg, cmd] {
	return tesmx.Definition[state, msg, cmd]{
		Name:   "pinger",
		States: pingerStates,
		Init: func() (state, []cmd) {
			return st("idle", 0), []cmd{logc("init")}
		},
		Flow: tesmx.Flow[state, msg, cmd]{
			"idle": {
				"ping": func(_ msg, s state) (state, []cmd) {
					return st("busy", s.Payload+1), []cmd{logc("c1"), logc("c2"), logc("c3")}
				},
				"burst": func(m msg, s state) (state, []cmd) {
					return st("idle", s.Payload+1), []cmd{logc(m.Payload)}
				},
				"boom": func(msg, state) (state, []cmd) {
					panic("boom")
				},
			},
			"busy": {
				"pong": func(_ msg, s state) (state, []cmd) {
					return st("idle", s.Payload), []cmd{logc("back")}
				},
			},
		},
		Fallback: tesmx.Handlers[state, msg, cmd]{
			"noop": tesmx.Ignore[state, msg, cmd],
			"pong": func(_ msg, s state) (state, []cmd) {
				return s, []cmd{logc("stray")}
			},
		},
	}
}

func newPinger(t interface{ Fatal(...any) }, opts ...tesmx.Option) *tesmx.Runtime[state, msg, cmd] {
	m, err := tesmx.Define(pingerDefinition())
	if err != nil {
		t.Fatal(err)
	}
	rt, err := tesmx.New(m, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return rt
}

func payloads(cmds []cmd) []string {
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.Payload
	}
	return out
}
