// Package metrics exposes Prometheus instrumentation for machine runtimes.
//
// Every series is labelled by machine name only. Runtime IDs, message payloads
// and state payloads never become labels.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tesmx"

// Outcome labels for transitions.
const (
	OutcomeApplied   = "applied"
	OutcomeUnhandled = "unhandled"
	OutcomeFailed    = "failed"
)

// Runtime holds the series for one machine. A nil *Runtime is valid and
// records nothing.
type Runtime struct {
	transitions   *prometheus.CounterVec
	dispatched    prometheus.Counter
	commandErrors prometheus.Counter
	queueDepth    prometheus.Gauge
	listeners     prometheus.Gauge
	machine       string
}

// NewRuntime registers (or reuses) the runtime collectors on reg and binds
// them to machine. Several runtimes of the same machine share series.
func NewRuntime(reg prometheus.Registerer, machine string) (*Runtime, error) {
	transitions, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Messages processed, by machine and outcome (applied/unhandled/failed).",
	}, []string{"machine", "outcome"}))
	if err != nil {
		return nil, err
	}
	dispatched, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_dispatched_total",
		Help:      "Commands taken off the queue, delivered or dropped, by machine.",
	}, []string{"machine"}))
	if err != nil {
		return nil, err
	}
	cmdErrs, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "command_errors_total",
		Help:      "Command handler invocations that returned an error, by machine.",
	}, []string{"machine"}))
	if err != nil {
		return nil, err
	}
	depth, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Commands waiting for delivery, by machine.",
	}, []string{"machine"}))
	if err != nil {
		return nil, err
	}
	listeners, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "listeners",
		Help:      "Subscribed state listeners, by machine.",
	}, []string{"machine"}))
	if err != nil {
		return nil, err
	}

	return &Runtime{
		transitions:   transitions,
		dispatched:    dispatched.WithLabelValues(machine),
		commandErrors: cmdErrs.WithLabelValues(machine),
		queueDepth:    depth.WithLabelValues(machine),
		listeners:     listeners.WithLabelValues(machine),
		machine:       machine,
	}, nil
}

// register adds c to reg, returning the already registered collector of the
// same type when an identical one exists.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// Transition counts one processed message.
func (m *Runtime) Transition(outcome string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(m.machine, outcome).Inc()
}

// Enqueued adds n commands to the queue depth.
func (m *Runtime) Enqueued(n int) {
	if m == nil || n == 0 {
		return
	}
	m.queueDepth.Add(float64(n))
}

// Dispatched counts one delivered command.
func (m *Runtime) Dispatched() {
	if m == nil {
		return
	}
	m.queueDepth.Dec()
	m.dispatched.Inc()
}

// CommandError counts one failed handler invocation.
func (m *Runtime) CommandError() {
	if m == nil {
		return
	}
	m.commandErrors.Inc()
}

// ListenerAdded tracks a new subscription.
func (m *Runtime) ListenerAdded() {
	if m == nil {
		return
	}
	m.listeners.Inc()
}

// ListenerRemoved tracks a cancelled subscription.
func (m *Runtime) ListenerRemoved() {
	if m == nil {
		return
	}
	m.listeners.Dec()
}

// Mailbox tracks the depth of an actor mailbox. A nil *Mailbox records
// nothing.
type Mailbox struct {
	depth prometheus.Gauge
	ticks prometheus.Counter
}

// NewMailbox registers (or reuses) the mailbox collectors on reg.
func NewMailbox(reg prometheus.Registerer, machine string) (*Mailbox, error) {
	depth, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mailbox_depth",
		Help:      "Messages waiting in actor mailboxes, by machine.",
	}, []string{"machine"}))
	if err != nil {
		return nil, err
	}
	ticks, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mailbox_batches_total",
		Help:      "Mailbox batches processed by actors, by machine.",
	}, []string{"machine"}))
	if err != nil {
		return nil, err
	}
	return &Mailbox{
		depth: depth.WithLabelValues(machine),
		ticks: ticks.WithLabelValues(machine),
	}, nil
}

// Queued adds n waiting messages.
func (m *Mailbox) Queued(n int) {
	if m == nil {
		return
	}
	m.depth.Add(float64(n))
}

// Batch records one processed batch of n messages.
func (m *Mailbox) Batch(n int) {
	if m == nil {
		return
	}
	m.depth.Sub(float64(n))
	m.ticks.Inc()
}
