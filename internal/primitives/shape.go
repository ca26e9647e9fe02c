// Package primitives defines the declarative shape of a machine: its name and
// the closed tag lists of its states, messages and commands.
//
// Shapes are plain data. They are usually embedded as YAML next to the
// machine that implements them and validated once at construction time.
package primitives

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Shape declares the closed sets of tags a machine works with.
type Shape struct {
	Version  string   `json:"version,omitempty" yaml:"version,omitempty"`
	Name     string   `json:"name" yaml:"name"`
	States   []string `json:"states" yaml:"states"`
	Messages []string `json:"messages,omitempty" yaml:"messages,omitempty"`
	Commands []string `json:"commands,omitempty" yaml:"commands,omitempty"`
}

// ParseShape decodes a YAML shape document and validates it.
func ParseShape(data []byte) (Shape, error) {
	var s Shape
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Shape{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Shape{}, err
	}
	return s, nil
}

// Validate checks:
// - non-empty Name
// - at least one state
// - no empty or duplicate tag inside any list
func (s *Shape) Validate() error {
	if s.Name == "" {
		return errors.New("shape name is required")
	}
	if len(s.States) == 0 {
		return errors.New("shape must declare at least one state")
	}
	if err := CheckTags("state", s.States); err != nil {
		return err
	}
	if err := CheckTags("message", s.Messages); err != nil {
		return err
	}
	return CheckTags("command", s.Commands)
}

// CheckTags rejects empty and duplicate tags. kind names the list in errors.
func CheckTags(kind string, tags []string) error {
	seen := make(map[string]int, len(tags))
	for i, tag := range tags {
		if tag == "" {
			return fmt.Errorf("%s tag %d is empty", kind, i)
		}
		if prev, dup := seen[tag]; dup {
			return fmt.Errorf("duplicate %s tag %q (positions %d and %d)", kind, tag, prev, i)
		}
		seen[tag] = i
	}
	return nil
}

// Marshal renders the shape back to YAML.
func (s Shape) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
