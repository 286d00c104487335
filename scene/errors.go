package scene

import (
	"errors"
	"fmt"
)

// NamedNodeMissingError reports a required child that a loaded graph lacks.
type NamedNodeMissingError struct {
	Name   string
	Parent string
}

func (e *NamedNodeMissingError) Error() string {
	if e.Parent == "" {
		return fmt.Sprintf("node %q not found", e.Name)
	}
	return fmt.Sprintf("node %q not found under %q", e.Name, e.Parent)
}

// ErrUnsupportedCompression is returned for glTF primitives stored with a
// mesh compression extension this loader cannot decode. Such models have to
// be re-exported without mesh compression.
var ErrUnsupportedCompression = errors.New("unsupported mesh compression, re-export the model uncompressed")
