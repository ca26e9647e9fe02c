package production

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/comalice/tesmx"
)

// Visualizer renders transition tables.
type Visualizer struct{}

// ExportDOT generates Graphviz DOT source. Targets of a handler depend on the
// data it receives, so every state renders as a record listing the messages it
// handles (fallback entries marked with *), and edges come from observed
// transitions. current is highlighted.
func (v *Visualizer) ExportDOT(table tesmx.TableView, observed []tesmx.Edge, current string) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Machine {
  rankdir=LR;
  node [shape=record, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for _, state := range table.StateTags() {
		var msgs []string
		for _, m := range table.MessageTags(state) {
			if table.IsFallback(state, m) {
				m += "*"
			}
			msgs = append(msgs, escapeRecord(m)+`\l`)
		}
		style := ""
		if state == current {
			style = ` style="rounded,filled" fillcolor=lightgreen`
		}
		fmt.Fprintf(&buf, "  %q [label=\"{%s|%s}\"%s];\n", state, escapeRecord(state), strings.Join(msgs, ""), style)
	}

	for _, e := range collectEdges(observed) {
		label := e.Msg
		if e.count > 1 {
			label = fmt.Sprintf("%s (%d)", e.Msg, e.count)
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the table as state tag -> handled message tags.
func (v *Visualizer) ExportJSON(table tesmx.TableView) ([]byte, error) {
	out := make(map[string][]string)
	for _, state := range table.StateTags() {
		out[state] = table.MessageTags(state)
	}
	return json.MarshalIndent(out, "", "  ")
}

type countedEdge struct {
	tesmx.Edge
	count int
}

// collectEdges merges repeated transitions, keeping first-seen order.
func collectEdges(observed []tesmx.Edge) []countedEdge {
	index := make(map[tesmx.Edge]int)
	var edges []countedEdge
	for _, e := range observed {
		if i, ok := index[e]; ok {
			edges[i].count++
			continue
		}
		index[e] = len(edges)
		edges = append(edges, countedEdge{Edge: e, count: 1})
	}
	return edges
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
)

func escapeRecord(s string) string { return recordEscaper.Replace(s) }
