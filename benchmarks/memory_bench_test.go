package benchmarks

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/comalice/tesmx"
)

// BenchmarkMemoryPerRuntime reports the allocation cost of one runtime over a
// shared machine definition.
func BenchmarkMemoryPerRuntime(b *testing.B) {
	for _, n := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("states=%d", n), func(b *testing.B) {
			m := GenFlatMachine(n, 0)
			const runtimes = 1000
			keep := make([]*tesmx.Runtime[State, Msg, Cmd], runtimes)
			for b.Loop() {
				var before, after runtime.MemStats
				runtime.ReadMemStats(&before)
				for i := range keep {
					rt, err := tesmx.New(m, tesmx.WithID("bench"))
					if err != nil {
						b.Fatal(err)
					}
					keep[i] = rt
				}
				runtime.ReadMemStats(&after)
				b.ReportMetric(float64(after.TotalAlloc-before.TotalAlloc)/runtimes, "B/runtime")
			}
		})
	}
}

// BenchmarkMemoryHistory reports what a full history ring costs per entry.
func BenchmarkMemoryHistory(b *testing.B) {
	for _, bound := range []int{100, 10000} {
		b.Run(fmt.Sprintf("bound=%d", bound), func(b *testing.B) {
			m := GenFlatMachine(4, 1)
			for b.Loop() {
				var before, after runtime.MemStats
				runtime.ReadMemStats(&before)
				rt, err := tesmx.New(m, tesmx.WithHistory(bound))
				if err != nil {
					b.Fatal(err)
				}
				rt.AddHandler(Discard)
				for range bound {
					if err := rt.Send(Tick); err != nil {
						b.Fatal(err)
					}
				}
				runtime.ReadMemStats(&after)
				b.ReportMetric(float64(after.TotalAlloc-before.TotalAlloc)/float64(bound), "B/entry")
			}
		})
	}
}
