package tesmx

import (
	"fmt"
	"maps"
	"slices"
)

// Handler computes the next state and the ordered commands for one
// (state tag, message tag) pair. Handlers must be pure: no I/O, no ambient
// mutable state. Every effect is returned as a command.
type Handler[S, M, C Tagged] func(msg M, state S) (S, []C)

// Handlers maps a message tag to its handler.
type Handlers[S, M, C Tagged] map[string]Handler[S, M, C]

// Flow maps a state tag to the handlers explicitly declared for that state.
type Flow[S, M, C Tagged] map[string]Handlers[S, M, C]

// TableView is the read-only, type-erased view of a transition table used by
// introspection tooling.
type TableView interface {
	StateTags() []string
	MessageTags(state string) []string
	IsFallback(state, msg string) bool
}

type cell[S, M, C Tagged] struct {
	handler  Handler[S, M, C]
	fallback bool
}

// Table is the precomputed two-level lookup state tag -> message tag ->
// handler. It is immutable once built.
type Table[S, M, C Tagged] struct {
	states []string
	rows   map[string]map[string]cell[S, M, C]
}

// BuildTable merges the explicit per-state handlers with the fallback handlers.
// For every tag in stateTags it starts from flow[tag] and adds each fallback
// handler whose message tag the state does not handle explicitly. Explicit
// entries always win.
func BuildTable[S, M, C Tagged](flow Flow[S, M, C], fallback Handlers[S, M, C], stateTags []string) (*Table[S, M, C], error) {
	t := &Table[S, M, C]{
		states: slices.Clone(stateTags),
		rows:   make(map[string]map[string]cell[S, M, C], len(stateTags)),
	}
	for i, tag := range stateTags {
		if tag == "" {
			return nil, configErrorf("", "state tag %d is empty", i)
		}
		if _, dup := t.rows[tag]; dup {
			return nil, configErrorf("", "duplicate state tag %q", tag)
		}
		t.rows[tag] = nil
	}
	for state := range flow {
		if _, ok := t.rows[state]; !ok {
			return nil, configErrorf("", "handlers declared for undeclared state %q", state)
		}
	}
	for msg, h := range fallback {
		if h == nil {
			return nil, configErrorf("", "nil fallback handler for message %q", msg)
		}
	}

	for _, state := range stateTags {
		row := make(map[string]cell[S, M, C], len(flow[state])+len(fallback))
		for msg, h := range flow[state] {
			if h == nil {
				return nil, configErrorf("", "nil handler for message %q in state %q", msg, state)
			}
			row[msg] = cell[S, M, C]{handler: h}
		}
		for msg, h := range fallback {
			if _, explicit := row[msg]; !explicit {
				row[msg] = cell[S, M, C]{handler: h, fallback: true}
			}
		}
		t.rows[state] = row
	}
	return t, nil
}

// Lookup returns the handler for a state tag and message tag.
func (t *Table[S, M, C]) Lookup(state, msg string) (Handler[S, M, C], bool) {
	c, ok := t.rows[state][msg]
	return c.handler, ok
}

// StateTags returns the state tags in declaration order.
func (t *Table[S, M, C]) StateTags() []string { return slices.Clone(t.states) }

// MessageTags returns the sorted message tags handled in state.
func (t *Table[S, M, C]) MessageTags(state string) []string {
	return slices.Sorted(maps.Keys(t.rows[state]))
}

// IsFallback reports whether the cell was filled from the fallback handlers.
func (t *Table[S, M, C]) IsFallback(state, msg string) bool {
	return t.rows[state][msg].fallback
}

// Len returns the number of (state, message) cells.
func (t *Table[S, M, C]) Len() int {
	n := 0
	for _, row := range t.rows {
		n += len(row)
	}
	return n
}

// Narrow adapts a handler written against concrete variant types to the
// machine's sum types. The table lookup guarantees the tags match, so a failed
// assertion means the handler was registered under the wrong tag.
func Narrow[MM, SS any, S, M, C Tagged](fn func(msg MM, state SS) (S, []C)) Handler[S, M, C] {
	return func(msg M, state S) (S, []C) {
		mm, ok := any(msg).(MM)
		if !ok {
			panic(fmt.Sprintf("tesmx: handler expects message %T, got %T", *new(MM), msg))
		}
		ss, ok := any(state).(SS)
		if !ok {
			panic(fmt.Sprintf("tesmx: handler expects state %T, got %T", *new(SS), state))
		}
		return fn(mm, ss)
	}
}

// On registers a narrowed handler for (state, msg) in flow. All type
// parameters are inferred from the arguments.
func On[S, M, C Tagged, MM, SS any](flow Flow[S, M, C], state, msg string, fn func(msg MM, state SS) (S, []C)) {
	row := flow[state]
	if row == nil {
		row = make(Handlers[S, M, C])
		flow[state] = row
	}
	row[msg] = Narrow[MM, SS, S, M, C](fn)
}

// OnAny registers a fallback handler narrowed on the message only; it sees the
// full state union.
func OnAny[S, M, C Tagged, MM any](fallback Handlers[S, M, C], msg string, fn func(msg MM, state S) (S, []C)) {
	fallback[msg] = Narrow[MM, S, S, M, C](fn)
}

// Ignore is a handler that keeps the state and emits nothing.
func Ignore[S, M, C Tagged](_ M, state S) (S, []C) {
	return state, nil
}

// Lift embeds a child update function into a parent machine. The child message
// and state are extracted from the parent values, the child result is written
// back with wrap and child commands are mapped into parent commands. When the
// child returns its input state unchanged the parent state value is returned
// as is, which keeps cheap equality checks valid.
func Lift[S, M, C Tagged, CM any, CS comparable, CC any](
	msgOf func(M) CM,
	stateOf func(S) CS,
	wrap func(parent S, child CS) S,
	cmdOf func(CC) C,
	update func(msg CM, state CS) (CS, []CC),
) Handler[S, M, C] {
	return func(msg M, state S) (S, []C) {
		child := stateOf(state)
		next, childCmds := update(msgOf(msg), child)
		out := state
		if next != child {
			out = wrap(state, next)
		}
		var cmds []C
		if len(childCmds) > 0 {
			cmds = make([]C, len(childCmds))
			for i, c := range childCmds {
				cmds[i] = cmdOf(c)
			}
		}
		return out, cmds
	}
}
