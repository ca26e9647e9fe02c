// Package testutil holds helpers shared by the runtime and actor test suites.
package testutil

import (
	"sync"

	"github.com/comalice/tesmx"
)

// Recorder is a command handler that remembers every command it receives.
type Recorder[C tesmx.Tagged] struct {
	mu   sync.Mutex
	cmds []C
	fail map[string]error
}

// FailOn makes Handle return err for commands with the given tag. The command
// is still recorded.
func (r *Recorder[C]) FailOn(tag string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail == nil {
		r.fail = make(map[string]error)
	}
	r.fail[tag] = err
}

// Handle records cmd.
func (r *Recorder[C]) Handle(cmd C) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
	return r.fail[cmd.Tag()]
}

// Commands returns a copy of the recorded commands.
func (r *Recorder[C]) Commands() []C {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]C, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// Tags returns the tags of the recorded commands.
func (r *Recorder[C]) Tags() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.cmds))
	for i, c := range r.cmds {
		out[i] = c.Tag()
	}
	return out
}

// Len returns the number of recorded commands.
func (r *Recorder[C]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cmds)
}

// Reset forgets every recorded command.
func (r *Recorder[C]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = nil
}
