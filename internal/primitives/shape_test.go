package primitives

import (
	"strings"
	"testing"
)

const lightYAML = `
name: TrafficLight
states: [green, yellow, red]
messages: [timer_elapsed, reset]
commands: [scheduleNextChange, logChange]
`

func TestParseShape(t *testing.T) {
	s, err := ParseShape([]byte(lightYAML))
	if err != nil {
		t.Fatalf("ParseShape: %v", err)
	}
	if s.Name != "TrafficLight" {
		t.Errorf("Name = %q", s.Name)
	}
	if got := strings.Join(s.States, ","); got != "green,yellow,red" {
		t.Errorf("States = %s", got)
	}
	if len(s.Messages) != 2 || len(s.Commands) != 2 {
		t.Errorf("Messages = %v, Commands = %v", s.Messages, s.Commands)
	}
}

func TestParseShape_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad yaml", "name: [", "yaml unmarshal"},
		{"missing name", "states: [a]", "name is required"},
		{"no states", "name: x", "at least one state"},
		{"empty state", `{name: x, states: [a, ""]}`, "state tag 1 is empty"},
		{"duplicate state", "{name: x, states: [a, b, a]}", `duplicate state tag "a"`},
		{"duplicate message", "{name: x, states: [a], messages: [m, m]}", `duplicate message tag "m"`},
		{"duplicate command", "{name: x, states: [a], commands: [c, c]}", `duplicate command tag "c"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseShape([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestShape_MarshalRoundTrip(t *testing.T) {
	s, err := ParseShape([]byte(lightYAML))
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	back, err := ParseShape(out)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	if ComputeVersion(back) != ComputeVersion(s) {
		t.Errorf("round trip changed the shape:\n%s", out)
	}
}

func TestComputeVersion(t *testing.T) {
	a := Shape{Name: "x", States: []string{"a", "b"}}
	b := Shape{Name: "x", States: []string{"a", "b"}}
	c := Shape{Name: "x", States: []string{"b", "a"}}

	if ComputeVersion(a) != ComputeVersion(b) {
		t.Error("equal shapes must share a version")
	}
	if ComputeVersion(a) == ComputeVersion(c) {
		t.Error("tag order is part of the shape")
	}
	if len(ComputeVersion(a)) != 16 {
		t.Errorf("version %q should be 16 hex digits", ComputeVersion(a))
	}
	a.Version = "v2"
	if ComputeVersion(a) != "v2" {
		t.Errorf("explicit version ignored: %q", ComputeVersion(a))
	}
}
