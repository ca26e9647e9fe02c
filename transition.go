package tesmx

import (
	"errors"
	"runtime/debug"
)

// Initializer produces the initial state and the commands to run once a
// command handler is attached.
type Initializer[S, C Tagged] func() (S, []C)

// Policy decides what happens when no handler exists for the current state tag
// and the incoming message tag.
type Policy[S, M Tagged] struct {
	report func(machine string, msg M, state S)
	lenient bool
}

// Fail makes unhandled transitions return *UnhandledTransitionError. It is the
// zero Policy.
func Fail[S, M Tagged]() Policy[S, M] { return Policy[S, M]{} }

// Report makes unhandled transitions call fn and keep the current state with
// no commands. fn may be nil, in which case the message is dropped silently.
// A Runtime calls fn after releasing its lock, so fn may call back into it.
func Report[S, M Tagged](fn func(machine string, msg M, state S)) Policy[S, M] {
	return Policy[S, M]{report: fn, lenient: true}
}

func (p Policy[S, M]) notify(machine string, msg M, state S) {
	if p.report != nil {
		p.report(machine, msg, state)
	}
}

func (p Policy[S, M]) String() string {
	if p.lenient {
		return "report"
	}
	return "fail"
}

// TransitionFunc is the merged, total transition function. Its error is either
// nil, an *UnhandledTransitionError or a *HandlerError.
type TransitionFunc[S, M, C Tagged] func(msg M, state S) (S, []C, error)

// NewTransitionFunc closes over a built table and an unhandled policy. A
// panicking handler is recovered into a *HandlerError and the input state is
// returned unchanged.
func NewTransitionFunc[S, M, C Tagged](t *Table[S, M, C], machine string, p Policy[S, M]) TransitionFunc[S, M, C] {
	step := newStep(t, machine, p)
	return func(msg M, state S) (S, []C, error) {
		next, cmds, unhandled, err := step(msg, state)
		if unhandled {
			p.notify(machine, msg, state)
		}
		return next, cmds, err
	}
}

// stepFunc is a TransitionFunc that leaves the Report callback to its caller.
// unhandled is true when the policy accepted a message without a handler.
type stepFunc[S, M, C Tagged] func(msg M, state S) (next S, cmds []C, unhandled bool, err error)

func newStep[S, M, C Tagged](t *Table[S, M, C], machine string, p Policy[S, M]) stepFunc[S, M, C] {
	return func(msg M, state S) (next S, cmds []C, unhandled bool, err error) {
		defer func() {
			if v := recover(); v != nil {
				next, cmds, unhandled = state, nil, false
				err = &HandlerError{
					Machine: machine,
					State:   tagOf(state),
					Message: tagOf(msg),
					Value:   v,
					Stack:   debug.Stack(),
				}
			}
		}()
		if isNil(state) {
			return state, nil, false, &HandlerError{Machine: machine, State: tagOf(state), Message: tagOf(msg), Value: "current state is nil"}
		}
		h, ok := t.Lookup(state.Tag(), tagOf(msg))
		if !ok {
			if p.lenient {
				return state, nil, true, nil
			}
			return state, nil, false, &UnhandledTransitionError{
				Machine: machine,
				State:   state.Tag(),
				Message: tagOf(msg),
				Payload: msg,
			}
		}
		next, cmds = h(msg, state)
		if isNil(next) {
			return state, nil, false, &HandlerError{Machine: machine, State: state.Tag(), Message: msg.Tag(), Value: "handler returned a nil state"}
		}
		return next, cmds, false, nil
	}
}

// Definition is the declarative input of Define.
type Definition[S, M, C Tagged] struct {
	// Name identifies the machine in errors, logs and metrics.
	Name string
	// States declares every state tag. Required.
	States *Registry
	// Messages optionally declares the message tags; when set every handler
	// key must be declared.
	Messages *Registry
	// Init produces the initial state and commands. Required.
	Init Initializer[S, C]
	// Flow holds the per-state handlers.
	Flow Flow[S, M, C]
	// Fallback handlers apply in every state lacking an explicit entry.
	Fallback Handlers[S, M, C]
	// Policy handles missing entries. The zero value is Fail.
	Policy Policy[S, M]
}

// Machine is a validated machine definition with its precomputed table.
type Machine[S, M, C Tagged] struct {
	name     string
	states   *Registry
	messages *Registry
	init     Initializer[S, C]
	table    *Table[S, M, C]
	policy   Policy[S, M]
	step     stepFunc[S, M, C]
	fn       TransitionFunc[S, M, C]
}

// Define validates d and builds its transition table. Every failure is a
// *ConfigurationError.
func Define[S, M, C Tagged](d Definition[S, M, C]) (*Machine[S, M, C], error) {
	if d.Name == "" {
		return nil, configErrorf("", "machine name is required")
	}
	if d.States == nil || d.States.Len() == 0 {
		return nil, configErrorf(d.Name, "at least one state tag is required")
	}
	if d.Init == nil {
		return nil, configErrorf(d.Name, "initializer is required")
	}
	if d.Messages != nil {
		if err := checkMessages(d.Messages, d.Flow, d.Fallback); err != nil {
			err.Machine = d.Name
			return nil, err
		}
	}

	t, err := BuildTable(d.Flow, d.Fallback, d.States.Tags())
	if err != nil {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			ce.Machine = d.Name
		}
		return nil, err
	}
	return &Machine[S, M, C]{
		name:     d.Name,
		states:   d.States,
		messages: d.Messages,
		init:     d.Init,
		table:    t,
		policy:   d.Policy,
		step:     newStep(t, d.Name, d.Policy),
		fn:       NewTransitionFunc(t, d.Name, d.Policy),
	}, nil
}

// MustDefine is Define for package-level declarations.
func MustDefine[S, M, C Tagged](d Definition[S, M, C]) *Machine[S, M, C] {
	m, err := Define(d)
	if err != nil {
		panic(err)
	}
	return m
}

func checkMessages[S, M, C Tagged](reg *Registry, flow Flow[S, M, C], fallback Handlers[S, M, C]) *ConfigurationError {
	for state, row := range flow {
		for msg := range row {
			if !reg.Has(msg) {
				return configErrorf("", "state %q handles undeclared message %q", state, msg)
			}
		}
	}
	for msg := range fallback {
		if !reg.Has(msg) {
			return configErrorf("", "fallback handles undeclared message %q", msg)
		}
	}
	return nil
}

// Name returns the machine name.
func (m *Machine[S, M, C]) Name() string { return m.name }

// States returns the state registry.
func (m *Machine[S, M, C]) States() *Registry { return m.states }

// Messages returns the message registry, or nil when none was declared.
func (m *Machine[S, M, C]) Messages() *Registry { return m.messages }

// Table returns the precomputed transition table.
func (m *Machine[S, M, C]) Table() *Table[S, M, C] { return m.table }

// Policy returns the unhandled-transition policy.
func (m *Machine[S, M, C]) Policy() Policy[S, M] { return m.policy }

// Initial runs the initializer.
func (m *Machine[S, M, C]) Initial() (S, []C) { return m.init() }

// Func returns the merged transition function.
func (m *Machine[S, M, C]) Func() TransitionFunc[S, M, C] { return m.fn }

// Transition computes the next state and commands without side effects.
func (m *Machine[S, M, C]) Transition(msg M, state S) (S, []C, error) {
	return m.fn(msg, state)
}

// MustTransition is Transition for callers that treat an unhandled
// transition as a programming error.
func (m *Machine[S, M, C]) MustTransition(msg M, state S) (S, []C) {
	next, cmds, err := m.fn(msg, state)
	if err != nil {
		panic(err)
	}
	return next, cmds
}

func isNil[T any](v T) bool { return any(v) == nil }

func tagOf[T Tagged](v T) string {
	if isNil(v) {
		return "<nil>"
	}
	return v.Tag()
}
