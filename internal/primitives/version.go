package primitives

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ComputeVersion returns s.Version when set, else a content hash of the
// shape. Two shapes with the same name and tag lists get the same version.
func ComputeVersion(s Shape) string {
	if s.Version != "" {
		return s.Version
	}
	data, err := json.Marshal(s)
	if err != nil {
		// A Shape only holds strings; Marshal cannot fail.
		panic(fmt.Sprintf("primitives: marshal shape: %v", err))
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
