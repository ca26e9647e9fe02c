package extensibility

import (
	"context"
	"sync"
	"time"
)

// Source produces messages for a runtime. The channel is closed when the
// source stops.
type Source[M any] interface {
	Messages() <-chan M
}

// ChannelSource feeds messages from a Go channel into a runtime or actor.
type ChannelSource[M any] struct {
	ch chan M
}

// NewChannelSource wraps ch. Producers block on an unbuffered ch until Pump
// picks the message up.
func NewChannelSource[M any](ch chan M) *ChannelSource[M] {
	return &ChannelSource[M]{ch: ch}
}

// Messages returns ch.
func (s *ChannelSource[M]) Messages() <-chan M { return s.ch }

// TimerSource emits a message built from the tick time every interval.
// Ticks are dropped while the consumer is behind.
type TimerSource[M any] struct {
	ch       chan M
	build    func(time.Time) M
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewTimerSource starts emitting immediately. Call Stop to release the ticker.
func NewTimerSource[M any](interval time.Duration, build func(time.Time) M) *TimerSource[M] {
	t := &TimerSource[M]{
		ch:     make(chan M, 10),
		build:  build,
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerSource[M]) run() {
	defer close(t.ch)
	for {
		select {
		case now := <-t.ticker.C:
			select {
			case t.ch <- t.build(now):
			default:
			}
		case <-t.stopCh:
			return
		}
	}
}

// Messages returns the receive-only channel.
func (t *TimerSource[M]) Messages() <-chan M { return t.ch }

// Stop halts the ticker and closes the channel. It is safe to call twice.
func (t *TimerSource[M]) Stop() {
	t.stopOnce.Do(func() {
		t.ticker.Stop()
		close(t.stopCh)
	})
}

// Pump forwards every message of src to send until the source closes or ctx
// is done. Send errors go to onError when it is non-nil; they never stop the
// pump.
func Pump[M any](ctx context.Context, src Source[M], send func(M) error, onError func(M, error)) error {
	ch := src.Messages()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if err := send(msg); err != nil && onError != nil {
				onError(msg, err)
			}
		}
	}
}
