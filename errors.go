package tesmx

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration classifies malformed machine definitions.
	ErrConfiguration = errors.New("tesmx: invalid machine configuration")
	// ErrUnhandledTransition classifies (state, message) pairs with no handler.
	ErrUnhandledTransition = errors.New("tesmx: unhandled transition")
	// ErrHandlerPanic classifies transition handlers that panicked.
	ErrHandlerPanic = errors.New("tesmx: transition handler panicked")
	// ErrUnknownCommand classifies commands no routed handler accepts.
	ErrUnknownCommand = errors.New("tesmx: unknown command")
)

// ConfigurationError reports a malformed machine definition detected at
// construction time.
type ConfigurationError struct {
	Machine string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Machine == "" {
		return fmt.Sprintf("tesmx: configuration: %s", e.Reason)
	}
	return fmt.Sprintf("tesmx: configuration of %q: %s", e.Machine, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(machine, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Machine: machine, Reason: fmt.Sprintf(format, args...)}
}

// UnhandledTransitionError is returned when the transition table has no entry
// for the current state tag and the incoming message tag.
type UnhandledTransitionError struct {
	Machine string
	State   string
	Message string
	Payload any
}

func (e *UnhandledTransitionError) Error() string {
	return fmt.Sprintf("tesmx: %s: no transition for message %q in state %q (payload %+v)",
		e.Machine, e.Message, e.State, e.Payload)
}

func (e *UnhandledTransitionError) Is(target error) bool { return target == ErrUnhandledTransition }

// HandlerError wraps a panic raised by a transition handler. The attempted
// transition is discarded.
type HandlerError struct {
	Machine string
	State   string
	Message string
	Value   any
	Stack   []byte
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("tesmx: %s: handler for %q in state %q panicked: %v",
		e.Machine, e.Message, e.State, e.Value)
}

func (e *HandlerError) Is(target error) bool { return target == ErrHandlerPanic }

// Unwrap exposes the panic value when it was itself an error.
func (e *HandlerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// UnknownCommandError is reported by strict routers for command tags that
// have no registered handler.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("tesmx: no handler registered for command %q", e.Command)
}

func (e *UnknownCommandError) Is(target error) bool { return target == ErrUnknownCommand }
