// Package production provides introspection integrations for running
// machines: history export, transition publishing and visualization.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/comalice/tesmx"
)

// ExportedEntry is one history entry rendered to tags and text.
type ExportedEntry struct {
	Seq      uint64    `json:"seq" yaml:"seq"`
	At       time.Time `json:"at" yaml:"at"`
	From     string    `json:"from" yaml:"from"`
	Msg      string    `json:"msg" yaml:"msg"`
	To       string    `json:"to" yaml:"to"`
	Payload  string    `json:"payload,omitempty" yaml:"payload,omitempty"`
	Commands []string  `json:"commands,omitempty" yaml:"commands,omitempty"`
}

// Snapshot is a debugging dump of one runtime. It is not meant to restore
// state.
type Snapshot struct {
	Machine   string          `json:"machine" yaml:"machine"`
	RuntimeID string          `json:"runtime_id" yaml:"runtime_id"`
	Taken     time.Time       `json:"taken" yaml:"taken"`
	State     string          `json:"state" yaml:"state"`
	Value     string          `json:"value" yaml:"value"`
	Pending   int             `json:"pending" yaml:"pending"`
	Entries   []ExportedEntry `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// SnapshotOf captures rt at taken.
func SnapshotOf[S, M, C tesmx.Tagged](rt *tesmx.Runtime[S, M, C], taken time.Time) Snapshot {
	state := rt.State()
	history := rt.History()
	s := Snapshot{
		Machine:   rt.Name(),
		RuntimeID: rt.ID(),
		Taken:     taken,
		State:     state.Tag(),
		Value:     fmt.Sprintf("%+v", state),
		Pending:   rt.Pending(),
		Entries:   make([]ExportedEntry, len(history)),
	}
	for i, e := range history {
		edge := e.Edge()
		out := ExportedEntry{
			Seq:     e.Seq,
			At:      e.At,
			From:    edge.From,
			Msg:     edge.Msg,
			To:      edge.To,
			Payload: fmt.Sprintf("%+v", e.Msg),
		}
		for _, c := range e.Commands {
			out.Commands = append(out.Commands, c.Tag())
		}
		s.Entries[i] = out
	}
	return s
}

// Exporter writes snapshots to a directory and reads them back.
type Exporter struct {
	dir       string
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// NewJSONExporter creates an exporter writing indented JSON, ensuring the
// directory exists.
func NewJSONExporter(dir string) (*Exporter, error) {
	return newExporter(dir, "json",
		func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
		json.Unmarshal)
}

// NewYAMLExporter creates an exporter writing YAML, ensuring the directory
// exists.
func NewYAMLExporter(dir string) (*Exporter, error) {
	return newExporter(dir, "yaml", yaml.Marshal, yaml.Unmarshal)
}

func newExporter(dir, ext string, marshal func(any) ([]byte, error), unmarshal func([]byte, any) error) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &Exporter{dir: dir, ext: ext, marshal: marshal, unmarshal: unmarshal}, nil
}

// Path returns the file a snapshot is written to.
func (x *Exporter) Path(machine, runtimeID string) string {
	return filepath.Join(x.dir, machine+"-"+runtimeID+"."+x.ext)
}

// Save writes the snapshot atomically and returns the file path.
func (x *Exporter) Save(ctx context.Context, s Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := x.marshal(s)
	if err != nil {
		return "", fmt.Errorf("%s marshal: %w", x.ext, err)
	}
	fn := x.Path(s.Machine, s.RuntimeID)
	if err := renameio.WriteFile(fn, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", fn, err)
	}
	return fn, nil
}

// Load reads a snapshot written by Save.
func (x *Exporter) Load(ctx context.Context, machine, runtimeID string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	fn := x.Path(machine, runtimeID)
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("snapshot %s/%s: %w", machine, runtimeID, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var s Snapshot
	if err := x.unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%s unmarshal: %w", x.ext, err)
	}
	return s, nil
}
