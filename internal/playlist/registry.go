package playlist

import (
	"errors"
	"strings"
)

var (
	ErrEmptyName        = errors.New("playlist name cannot be empty")
	ErrPlaylistExists   = errors.New("playlist already exists")
	ErrPlaylistNotFound = errors.New("playlist not found")
)

// Registry holds named sequences in creation order.
type Registry struct {
	lists map[string]*Sequence
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lists: make(map[string]*Sequence),
	}
}

// Create adds an empty sequence under name.
func (r *Registry) Create(name string) (*Sequence, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}
	if _, exists := r.lists[name]; exists {
		return nil, ErrPlaylistExists
	}
	seq := NewSequence()
	r.lists[name] = seq
	r.order = append(r.order, name)
	return seq, nil
}

// Get returns the sequence registered under name.
func (r *Registry) Get(name string) (*Sequence, bool) {
	seq, ok := r.lists[name]
	return seq, ok
}

// Delete drops the sequence registered under name. It reports whether a
// sequence was removed.
func (r *Registry) Delete(name string) bool {
	if _, ok := r.lists[name]; !ok {
		return false
	}
	delete(r.lists, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Names returns playlist names in creation order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of playlists.
func (r *Registry) Len() int {
	return len(r.order)
}
