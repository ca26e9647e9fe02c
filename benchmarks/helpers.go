// Package benchmarks provides generated machines for performance benchmarks.
package benchmarks

import (
	"fmt"

	"github.com/comalice/tesmx"
)

// State, Msg and Cmd carry an int payload under a generated tag.
type (
	State = tesmx.Variant[int]
	Msg   = tesmx.Variant[int]
	Cmd   = tesmx.Variant[int]
)

// Tick is the message every generated machine handles.
var Tick = Msg{Kind: "tick"}

// GenFlatMachine creates n states s0..s(n-1) cycling on "tick". Every
// transition emits cmds commands.
func GenFlatMachine(n, cmds int) *tesmx.Machine[State, Msg, Cmd] {
	if n < 1 {
		n = 1
	}
	tags := make([]string, n)
	for i := range tags {
		tags[i] = fmt.Sprintf("s%d", i)
	}
	flow := tesmx.Flow[State, Msg, Cmd]{}
	for i, tag := range tags {
		next := tags[(i+1)%n]
		flow[tag] = tesmx.Handlers[State, Msg, Cmd]{
			"tick": func(_ Msg, s State) (State, []Cmd) {
				var out []Cmd
				if cmds > 0 {
					out = make([]Cmd, cmds)
					for j := range out {
						out[j] = Cmd{Kind: "work", Payload: j}
					}
				}
				return State{Kind: next, Payload: s.Payload + 1}, out
			},
		}
	}
	return tesmx.MustDefine(tesmx.Definition[State, Msg, Cmd]{
		Name:   fmt.Sprintf("flat_%d", n),
		States: tesmx.MustRegistry("flat.states", tags...),
		Init:   func() (State, []Cmd) { return State{Kind: tags[0]}, nil },
		Flow:   flow,
	})
}

// GenWideMachine creates one state handling n message tags m0..m(n-1) plus
// "tick", and a second state that only has the fallback handlers. It measures
// lookup cost as the table grows.
func GenWideMachine(n int) *tesmx.Machine[State, Msg, Cmd] {
	row := tesmx.Handlers[State, Msg, Cmd]{}
	fallback := tesmx.Handlers[State, Msg, Cmd]{}
	for i := range n {
		row[fmt.Sprintf("m%d", i)] = tesmx.Ignore[State, Msg, Cmd]
		fallback[fmt.Sprintf("m%d", i)] = tesmx.Ignore[State, Msg, Cmd]
	}
	row["tick"] = func(_ Msg, s State) (State, []Cmd) { return State{Kind: "side", Payload: s.Payload}, nil }
	fallback["tick"] = func(_ Msg, s State) (State, []Cmd) { return State{Kind: "main", Payload: s.Payload}, nil }
	return tesmx.MustDefine(tesmx.Definition[State, Msg, Cmd]{
		Name:     fmt.Sprintf("wide_%d", n),
		States:   tesmx.MustRegistry("wide.states", "main", "side"),
		Init:     func() (State, []Cmd) { return State{Kind: "main"}, nil },
		Flow:     tesmx.Flow[State, Msg, Cmd]{"main": row},
		Fallback: fallback,
	})
}

// Discard is a command handler that does nothing.
func Discard(Cmd) error { return nil }
