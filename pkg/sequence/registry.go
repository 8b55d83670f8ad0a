package sequence

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// InfoDelimiter separates entries in a listing.
const InfoDelimiter = "--------------------------------------------------"

// Registry holds the sequences a process serves, in registration order.
type Registry struct {
	mu    sync.RWMutex
	order []*Sequence
	byKey map[Name]*Sequence
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[Name]*Sequence)}
}

// Register adds a sequence. Names must be unique.
func (r *Registry) Register(s *Sequence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[s.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, s.Name())
	}
	r.byKey[s.Name()] = s
	r.order = append(r.order, s)
	return nil
}

// Lookup resolves "id.kind" to that exact implementation, or a bare "id" to
// the first registered implementation of the sequence.
func (r *Registry) Lookup(name string) (*Sequence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.byKey[ParseName(name)]; ok {
		return s, nil
	}
	if !strings.Contains(name, ".") {
		for _, s := range r.order {
			if s.Name().ID == name {
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no available services match the name '%s'", ErrNotFound, name)
}

// List returns the registered sequences in registration order.
func (r *Registry) List() []*Sequence {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Sequence, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered sequences.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Info describes a sequence the way the listing prints it.
type Info struct {
	Name        Name   `json:"name" yaml:"name"`
	Title       string `json:"title" yaml:"title"`
	MaxIndex    int    `json:"max_index" yaml:"max_index"`
	Description string `json:"description" yaml:"description"`
}

// InfoOf collects the descriptive metadata of s.
func InfoOf(s *Sequence) Info {
	return Info{Name: s.Name(), Title: s.Title(), MaxIndex: s.MaxIndex(), Description: s.Description()}
}

// WriteTo prints the info block.
func (i Info) WriteTo(w io.Writer) (int64, error) {
	n, err := fmt.Fprintf(w, "Sequence ID: %s, kind: %s\nName: %s\nMaximal supported index: %d\nDescription:\n%s\n",
		i.Name.ID, i.Name.Kind, i.Title, i.MaxIndex, i.Description)
	return int64(n), err
}

// WriteInfo lists infos under a heading, each preceded by InfoDelimiter.
func WriteInfo(w io.Writer, infos []Info) error {
	if _, err := fmt.Fprintln(w, "Registered sequence implementations:"); err != nil {
		return err
	}
	for _, info := range infos {
		if _, err := fmt.Fprintln(w, InfoDelimiter); err != nil {
			return err
		}
		if _, err := info.WriteTo(w); err != nil {
			return err
		}
	}
	return nil
}

// Infos returns the info of every registered sequence.
func (r *Registry) Infos() []Info {
	list := r.List()
	out := make([]Info, len(list))
	for i, s := range list {
		out[i] = InfoOf(s)
	}
	return out
}

// NewDefaultRegistry registers every built-in sequence backed by engines.
// overrides replaces the MaxIndex of the named implementations.
func NewDefaultRegistry(engines *Engines, overrides map[string]int, opts ...Option) (*Registry, error) {
	reg := NewRegistry()
	for _, def := range engines.Definitions() {
		if maxIndex, ok := overrides[def.Name.String()]; ok {
			def = def.WithMaxIndex(maxIndex)
		}
		s, err := New(def, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create sequence %s: %w", def.Name, err)
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
