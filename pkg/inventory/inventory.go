package inventory

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidItem  = errors.New("inventory: invalid item")
	ErrLimitReached = errors.New("inventory: item limit reached")
	ErrDuplicate    = errors.New("inventory: duplicate item")
	ErrInvalidIndex = errors.New("inventory: invalid index")
)

// NoIndex marks the absence of a current slot.
const NoIndex = -1

// AddResult is the outcome of List.AddItem. The numeric values are part of
// the wire format and match the codes observers already know.
type AddResult int

const (
	AddOK AddResult = iota
	AddInvalidItem
	AddLimitReached
	AddDuplicate
)

func (r AddResult) String() string {
	switch r {
	case AddOK:
		return "ok"
	case AddInvalidItem:
		return "invalid_item"
	case AddLimitReached:
		return "limit_reached"
	case AddDuplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Err maps a result to its sentinel error, nil for AddOK.
func (r AddResult) Err() error {
	switch r {
	case AddOK:
		return nil
	case AddInvalidItem:
		return ErrInvalidItem
	case AddLimitReached:
		return ErrLimitReached
	case AddDuplicate:
		return ErrDuplicate
	default:
		return fmt.Errorf("inventory: unknown add result %d", int(r))
	}
}

// Option configures list construction.
type Option func(*List)

// WithItemLimit caps the number of slots. Zero means unlimited.
func WithItemLimit(limit int) Option {
	return func(l *List) {
		if limit < 0 {
			limit = 0
		}
		l.itemLimit = limit
	}
}

// WithDuplicates controls whether two slots may hold the same item type.
func WithDuplicates(allow bool) Option {
	return func(l *List) {
		l.allowDuplicates = allow
	}
}

// List is the ordered collection of a player's slots plus the pointer to the
// current one. It is not safe for concurrent use; it belongs to the game
// thread of its owner.
type List struct {
	registry        *Registry
	slots           []Slot
	current         int
	itemLimit       int
	allowDuplicates bool
}

// NewList creates an empty list resolving item ids through reg.
// Duplicates are allowed and the size is unlimited unless configured
// otherwise.
func NewList(reg *Registry, opts ...Option) *List {
	l := &List{
		registry:        reg,
		slots:           make([]Slot, 0),
		current:         NoIndex,
		allowDuplicates: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// AddItem appends a slot for the item type. Equality for the duplicate
// check is item-type identity only.
func (l *List) AddItem(id ItemID) AddResult {
	def, ok := l.registry.Lookup(id)
	if id == "" || !ok {
		return AddInvalidItem
	}
	if l.itemLimit > 0 && len(l.slots) >= l.itemLimit {
		return AddLimitReached
	}
	if !l.allowDuplicates && l.Contains(id) {
		return AddDuplicate
	}
	l.slots = append(l.slots, Slot{
		Item:       id,
		Definition: def,
		Placement:  DefaultPlacement(id),
	})
	return AddOK
}

// RemoveAt deletes the slot at index and returns it. Removing the current
// slot leaves the list without a current slot; removing a slot before the
// current one shifts the pointer so it keeps naming the same slot.
func (l *List) RemoveAt(index int) (Slot, error) {
	if !l.IsValidIndex(index) {
		return Slot{}, fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	removed := l.slots[index]
	l.slots = append(l.slots[:index], l.slots[index+1:]...)
	switch {
	case len(l.slots) == 0, index == l.current:
		l.current = NoIndex
	case index < l.current:
		l.current--
	}
	return removed, nil
}

// Get returns a copy of the slot at index.
func (l *List) Get(index int) (Slot, bool) {
	if !l.IsValidIndex(index) {
		return Slot{}, false
	}
	return l.slots[index], true
}

// Count returns the number of slots.
func (l *List) Count() int {
	return len(l.slots)
}

// IsValidIndex reports whether index names a slot.
func (l *List) IsValidIndex(index int) bool {
	return index >= 0 && index < len(l.slots)
}

// Contains reports whether any slot holds the item type.
func (l *List) Contains(id ItemID) bool {
	for _, s := range l.slots {
		if s.Item == id {
			return true
		}
	}
	return false
}

// Slots returns a copy of all slots in order.
func (l *List) Slots() []Slot {
	out := make([]Slot, len(l.slots))
	copy(out, l.slots)
	return out
}

// Current returns the current index, or NoIndex.
func (l *List) Current() int {
	return l.current
}

// CurrentSlot returns a copy of the current slot.
func (l *List) CurrentSlot() (Slot, bool) {
	return l.Get(l.current)
}

// SetCurrent moves the current pointer. NoIndex clears it.
func (l *List) SetCurrent(index int) error {
	if index != NoIndex && !l.IsValidIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	l.current = index
	return nil
}

// SetRepresentation records (or, with the empty id, clears) the live actor
// of the slot at index.
func (l *List) SetRepresentation(index int, id RepresentationID) error {
	if !l.IsValidIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	l.slots[index].Representation = id
	return nil
}

// SetPlacement replaces the placement snapshot of the slot at index. The
// snapshot's item is forced to the slot's item type.
func (l *List) SetPlacement(index int, data PlacementData) error {
	if !l.IsValidIndex(index) {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	data.Item = l.slots[index].Item
	l.slots[index].Placement = data
	return nil
}

// ItemLimit returns the configured limit, 0 meaning unlimited.
func (l *List) ItemLimit() int {
	return l.itemLimit
}

// AllowsDuplicates reports the duplicate policy.
func (l *List) AllowsDuplicates() bool {
	return l.allowDuplicates
}
