package extensibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/comalice/tesmx"
	"github.com/comalice/tesmx/examples/counter"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestChannelSource(t *testing.T) {
	ch := make(chan counter.Msg, 1)
	s := NewChannelSource(ch)
	ch <- counter.Inc{}
	assert.Equal(t, counter.Inc{}, <-s.Messages())
}

func TestTimerSource(t *testing.T) {
	s := NewTimerSource(10*time.Millisecond, func(time.Time) counter.Msg { return counter.Inc{} })
	defer s.Stop()

	for range 2 {
		select {
		case msg := <-s.Messages():
			assert.Equal(t, "inc", msg.Tag())
		case <-time.After(time.Second):
			t.Fatal("no tick received")
		}
	}
}

func TestTimerSource_StopClosesChannel(t *testing.T) {
	s := NewTimerSource(5*time.Millisecond, func(time.Time) counter.Msg { return counter.Inc{} })
	s.Stop()
	s.Stop()
	for range s.Messages() {
	}
}

func TestPump_ForwardsUntilClosed(t *testing.T) {
	rt, err := tesmx.New(counter.Machine)
	require.NoError(t, err)

	ch := make(chan counter.Msg, 4)
	ch <- counter.Inc{}
	ch <- counter.Inc{}
	ch <- counter.Dec{}
	close(ch)

	require.NoError(t, Pump(context.Background(), NewChannelSource(ch), rt.Send, nil))
	assert.Equal(t, 1, rt.State().Value)
}

func TestPump_ReportsSendErrors(t *testing.T) {
	ch := make(chan counter.Msg, 2)
	ch <- counter.Inc{}
	ch <- counter.Dec{}
	close(ch)

	boom := errors.New("boom")
	var failed []string
	err := Pump(context.Background(), NewChannelSource(ch),
		func(m counter.Msg) error {
			if m.Tag() == "dec" {
				return boom
			}
			return nil
		},
		func(m counter.Msg, err error) {
			require.ErrorIs(t, err, boom)
			failed = append(failed, m.Tag())
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"dec"}, failed)
}

func TestPump_StopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Pump(ctx, NewChannelSource(make(chan counter.Msg)), func(counter.Msg) error { return nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
