package inventory

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry stores item definitions keyed by ItemID and provides numeric
// handles for compact references. It is shared between every player's
// inventory, so it is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	items  map[ItemID]*Definition
	byID   map[RegistryID]ItemID
	nextID RegistryID
}

// NewRegistry constructs an empty registry and optionally seeds it with
// initial definitions. Invalid seeds are skipped.
func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{
		items: make(map[ItemID]*Definition, len(defs)),
		byID:  make(map[RegistryID]ItemID, len(defs)),
	}
	for _, d := range defs {
		_ = r.Register(d) // ignore invalid seeds
	}
	return r
}

// Register inserts a definition. A definition is immutable once registered:
// registering a second definition under an existing id is an error, while
// registering the very same pointer again is a no-op.
func (r *Registry) Register(def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[ItemID]*Definition)
	}
	if r.byID == nil {
		r.byID = make(map[RegistryID]ItemID)
	}

	if existing, exists := r.items[def.ID]; exists {
		if existing == def {
			return nil
		}
		return fmt.Errorf("inventory: item %q already registered", def.ID)
	}

	if def.NumericID == 0 {
		r.nextID++
		def.NumericID = r.nextID
	} else {
		if def.NumericID < 0 {
			return errors.New("inventory: numeric id must be positive")
		}
		if owner, collision := r.byID[def.NumericID]; collision && owner != def.ID {
			return errors.New("inventory: numeric id already assigned to another item")
		}
		if def.NumericID > r.nextID {
			r.nextID = def.NumericID
		}
	}

	r.items[def.ID] = def
	r.byID[def.NumericID] = def.ID
	return nil
}

// Lookup returns the definition for the provided ID, if present.
func (r *Registry) Lookup(id ItemID) (*Definition, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.items[id]
	return def, ok
}

// LookupByRegistryID returns a definition using its numeric handle.
func (r *Registry) LookupByRegistryID(id RegistryID) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	def, exists := r.items[key]
	return def, exists
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Export returns the registered definitions sorted by numeric handle,
// suitable for sending to clients.
func (r *Registry) Export() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.items) == 0 {
		return nil
	}
	out := make([]*Definition, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NumericID != out[j].NumericID {
			return out[i].NumericID < out[j].NumericID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
