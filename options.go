package tesmx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	history   int
	logger    zerolog.Logger
	registry  prometheus.Registerer
	tracer    trace.Tracer
	clock     func() time.Time
	id        string
	observers []func(Commit)
}

// Option configures a Runtime.
type Option func(*options)

// WithHistory sets the history bound. A positive bound keeps the most recent
// entries, zero (the default) records nothing, a negative bound keeps every
// entry.
func WithHistory(bound int) Option {
	return func(o *options) {
		o.history = bound
	}
}

// WithLogger configures structured logging. The default logger discards.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics registers the runtime series on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithTracer wraps every Send in a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithClock overrides the clock used to timestamp history entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithID sets the runtime identifier. The default is a random UUID.
func WithID(id string) Option {
	return func(o *options) {
		o.id = id
	}
}

// WithObserver calls fn after every committed transition, before listeners
// are notified. fn runs on the sending goroutine.
func WithObserver(fn func(Commit)) Option {
	return func(o *options) {
		o.observers = append(o.observers, fn)
	}
}
