package tesmx

import "time"

// HistoryEntry records one committed transition. Entries are never mutated
// after recording.
type HistoryEntry[S, M, C Tagged] struct {
	Seq      uint64
	At       time.Time
	From     S
	Msg      M
	To       S
	Commands []C
}

// Edge is the type-erased tag triple of a recorded transition.
type Edge struct {
	From string
	Msg  string
	To   string
}

// Edge returns the tags of the entry.
func (e HistoryEntry[S, M, C]) Edge() Edge {
	return Edge{From: tagOf(e.From), Msg: tagOf(e.Msg), To: tagOf(e.To)}
}

// EdgesFromHistory extracts the tag triples of entries, oldest first.
func EdgesFromHistory[S, M, C Tagged](entries []HistoryEntry[S, M, C]) []Edge {
	out := make([]Edge, len(entries))
	for i, e := range entries {
		out[i] = e.Edge()
	}
	return out
}

// Commit is the type-erased record of a committed transition handed to
// observers.
type Commit struct {
	Machine   string
	RuntimeID string
	Seq       uint64
	At        time.Time
	Edge
	Commands []string
}
