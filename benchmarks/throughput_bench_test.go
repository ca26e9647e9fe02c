package benchmarks

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/tesmx"
)

func BenchmarkSend(b *testing.B) {
	for _, cmds := range []int{0, 1, 8} {
		b.Run(fmt.Sprintf("commands=%d", cmds), func(b *testing.B) {
			rt, err := tesmx.New(GenFlatMachine(4, cmds))
			if err != nil {
				b.Fatal(err)
			}
			rt.AddHandler(Discard)
			b.ReportAllocs()
			for b.Loop() {
				if err := rt.Send(Tick); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSendWithHistory(b *testing.B) {
	for _, bound := range []int{0, 100, -1} {
		b.Run(fmt.Sprintf("bound=%d", bound), func(b *testing.B) {
			rt, err := tesmx.New(GenFlatMachine(4, 1), tesmx.WithHistory(bound))
			if err != nil {
				b.Fatal(err)
			}
			rt.AddHandler(Discard)
			b.ReportAllocs()
			for b.Loop() {
				if err := rt.Send(Tick); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSendWithMetrics(b *testing.B) {
	rt, err := tesmx.New(GenFlatMachine(4, 1), tesmx.WithMetrics(prometheus.NewRegistry()))
	if err != nil {
		b.Fatal(err)
	}
	rt.AddHandler(Discard)
	b.ReportAllocs()
	for b.Loop() {
		if err := rt.Send(Tick); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSendReentrant measures a handler that sends back into the runtime
// on every other command, so every outer Send drains two transitions.
func BenchmarkSendReentrant(b *testing.B) {
	rt, err := tesmx.New(GenFlatMachine(4, 1))
	if err != nil {
		b.Fatal(err)
	}
	echoed := false
	rt.AddHandler(func(Cmd) error {
		echoed = !echoed
		if !echoed {
			return nil
		}
		return rt.Send(Tick)
	})
	b.ReportAllocs()
	for b.Loop() {
		if err := rt.Send(Tick); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSendParallel(b *testing.B) {
	rt, err := tesmx.New(GenFlatMachine(4, 1))
	if err != nil {
		b.Fatal(err)
	}
	var mu sync.Mutex
	handled := 0
	rt.AddHandler(func(Cmd) error {
		mu.Lock()
		handled++
		mu.Unlock()
		return nil
	})
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if err := rt.Send(Tick); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
