package production

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/comalice/tesmx"
)

// Published is a committed transition forwarded to subscribers.
type Published struct {
	tesmx.Commit
}

// ChannelPublisher forwards commits to a Go channel. Publishing never blocks:
// when the channel is full the commit is dropped and counted.
type ChannelPublisher struct {
	mu      sync.RWMutex
	ch      chan<- Published
	closed  bool
	dropped atomic.Uint64
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- Published) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// Observe is a commit observer; pass it to tesmx.WithObserver.
func (p *ChannelPublisher) Observe(c tesmx.Commit) {
	_ = p.Publish(context.Background(), Published{Commit: c})
}

// Publish forwards ev, dropping it on backpressure or after Close.
func (p *ChannelPublisher) Publish(ctx context.Context, ev Published) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return nil
	}
	select {
	case p.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.dropped.Add(1)
		return nil
	}
}

// Dropped returns the number of commits that could not be delivered.
func (p *ChannelPublisher) Dropped() uint64 { return p.dropped.Load() }

// Close closes the output channel. Later commits are dropped.
func (p *ChannelPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}
