// Package sequence turns raw compute functions into uniformly described,
// bounds-checked integer sequences that answer with tagged responses.
package sequence

import (
	"fmt"
	"math/big"
	"strings"
)

// ComputeFunc returns the index-th member of a sequence. It is only called
// with indices already validated against the definition's MaxIndex.
type ComputeFunc func(index int) (*big.Int, error)

// Name identifies one implementation of a sequence, e.g. {ID: "pow3", Kind: "go-naive"}.
// Several implementations of the same sequence share an ID.
type Name struct {
	ID   string `json:"id" yaml:"id"`
	Kind string `json:"kind" yaml:"kind"`
}

// ParseName splits "id.kind" at the first dot. A bare "id" has an empty kind.
func ParseName(s string) Name {
	id, kind, _ := strings.Cut(s, ".")
	return Name{ID: id, Kind: kind}
}

func (n Name) String() string {
	if n.Kind == "" {
		return n.ID
	}
	return n.ID + "." + n.Kind
}

// Definition pairs a compute function with its descriptive metadata.
// It is built once at startup and never mutated.
type Definition struct {
	Name        Name
	Title       string
	Description string
	MaxIndex    int
	Compute     ComputeFunc
}

// WithMaxIndex returns a copy of the definition with a different bound.
func (d Definition) WithMaxIndex(maxIndex int) Definition {
	d.MaxIndex = maxIndex
	return d
}

// Validate checks that a definition can be served.
func (d Definition) Validate() error {
	if d.Name.ID == "" {
		return fmt.Errorf("sequence definition requires an ID")
	}
	if strings.Contains(d.Name.ID, ".") {
		return fmt.Errorf("sequence ID %q must not contain '.'", d.Name.ID)
	}
	if d.Compute == nil {
		return fmt.Errorf("sequence %s has no compute function", d.Name)
	}
	if d.MaxIndex < 0 {
		return fmt.Errorf("sequence %s has negative max index %d", d.Name, d.MaxIndex)
	}
	return nil
}
