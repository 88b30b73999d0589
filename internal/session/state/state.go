// Package state holds the client-side session state: cart lines, selected
// discounts, delivery context and the last billing summary.
package state

import (
	"slices"
	"sync"

	"github.com/xenking/pizza-cart/internal/domain/cart"
	"github.com/xenking/pizza-cart/internal/domain/delivery"
	"github.com/xenking/pizza-cart/internal/domain/pricing"
)

// Change is a bit mask describing which part of the store changed.
type Change uint8

const (
	ChangeItems Change = 1 << iota
	ChangeDiscounts
	ChangeDelivery
	ChangeAddress
	ChangeSummary
	ChangeLoading
)

// Inputs is the set of changes that invalidate the billing summary.
const Inputs = ChangeItems | ChangeDiscounts | ChangeDelivery | ChangeAddress

// Has reports whether any bit of o is set in c.
func (c Change) Has(o Change) bool { return c&o != 0 }

// Listener is notified after a write has been applied.
type Listener func(Change)

// DeliveryContext is the active fulfilment mode and address.
type DeliveryContext struct {
	Type delivery.Type
	// Selected is false until the user picks a type explicitly.
	Selected  bool
	AddressID string
}

// Snapshot is a consistent copy of the store for rendering.
type Snapshot struct {
	Items          []cart.Item
	Discounts      []string
	Delivery       DeliveryContext
	Summary        *pricing.Summary
	Generation     uint64
	Loading        bool
	SummaryLoading bool
}

// Store is the single source of truth for one storefront session.
//
// Every change to the summary inputs (items, discounts, delivery type,
// address) advances the generation and drops the current summary, so a
// summary computed for older inputs is never returned.
type Store struct {
	mu sync.RWMutex

	items []cart.Item
	// lastSeq is the newest mutation token applied per item id.
	lastSeq map[string]uint64
	seq     uint64

	discounts []string
	delivery  DeliveryContext

	summary        *pricing.Summary
	summaryGen     uint64
	gen            uint64
	loading        bool
	summaryLoading bool

	listeners map[uint64]Listener
	nextSub   uint64
}

// New creates an empty store with the given initial delivery type. The type
// starts unselected.
func New(initial delivery.Type) *Store {
	return &Store{
		lastSeq:   make(map[string]uint64),
		delivery:  DeliveryContext{Type: initial},
		listeners: make(map[uint64]Listener),
	}
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Listeners run synchronously on the writing goroutine
// after the store lock has been released.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// update runs fn under the write lock and notifies listeners with the
// returned change mask. Input changes invalidate the summary.
func (s *Store) update(fn func() Change) {
	s.mu.Lock()
	c := fn()
	if c.Has(Inputs) {
		s.gen++
		if s.summary != nil {
			s.summary = nil
			c |= ChangeSummary
		}
	}
	var ls []Listener
	if c != 0 {
		ls = make([]Listener, 0, len(s.listeners))
		for _, l := range s.listeners {
			ls = append(ls, l)
		}
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(c)
	}
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.items, func(it cart.Item) bool { return it.ID == id })
}

// SetItems replaces the whole cart, as after a refetch.
func (s *Store) SetItems(items []cart.Item) {
	s.update(func() Change {
		next := make([]cart.Item, 0, len(items))
		seen := make(map[string]int, len(items))
		for _, it := range items {
			// Last entry for an id wins, keeping the first position.
			if i, ok := seen[it.ID]; ok {
				next[i] = it.Clone()
				continue
			}
			seen[it.ID] = len(next)
			next = append(next, it.Clone())
		}
		s.items = next
		return ChangeItems
	})
}

// AddItem appends item, or replaces the existing entry with the same id in
// place.
func (s *Store) AddItem(item cart.Item) {
	s.update(func() Change {
		s.putLocked(item)
		return ChangeItems
	})
}

// UpdateItem replaces the item with the given id. It returns false and
// changes nothing when the id is not in the cart.
func (s *Store) UpdateItem(id string, item cart.Item) bool {
	found := false
	s.update(func() Change {
		i := s.indexOf(id)
		if i < 0 {
			return 0
		}
		found = true
		item.ID = id
		s.items[i] = item.Clone()
		return ChangeItems
	})
	return found
}

// RemoveItem deletes the item with the given id and reports whether it was
// present.
func (s *Store) RemoveItem(id string) bool {
	found := false
	s.update(func() Change {
		found = s.removeLocked(id)
		if !found {
			return 0
		}
		return ChangeItems
	})
	return found
}

// BeginMutation issues a token for a mutation of item id. Tokens increase
// monotonically across the store.
func (s *Store) BeginMutation(id string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// PutItemAt upserts item if seq is not older than the last token applied to
// the same id. It reports whether the write was applied.
func (s *Store) PutItemAt(seq uint64, item cart.Item) bool {
	applied := false
	s.update(func() Change {
		if seq < s.lastSeq[item.ID] {
			return 0
		}
		s.lastSeq[item.ID] = seq
		s.putLocked(item)
		applied = true
		return ChangeItems
	})
	return applied
}

// RemoveItemAt removes id if seq is not older than the last token applied to
// it. It reports whether the removal was applied.
func (s *Store) RemoveItemAt(seq uint64, id string) bool {
	applied := false
	s.update(func() Change {
		if seq < s.lastSeq[id] {
			return 0
		}
		s.lastSeq[id] = seq
		applied = true
		if !s.removeLocked(id) {
			return 0
		}
		return ChangeItems
	})
	return applied
}

func (s *Store) putLocked(item cart.Item) {
	if i := s.indexOf(item.ID); i >= 0 {
		s.items[i] = item.Clone()
		return
	}
	s.items = append(s.items, item.Clone())
}

func (s *Store) removeLocked(id string) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = slices.Delete(s.items, i, i+1)
	return true
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []cart.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneItems(s.items)
}

// Item returns the cart line with the given id.
func (s *Store) Item(id string) (cart.Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return cart.Item{}, false
	}
	return s.items[i].Clone(), true
}

// CartIDs returns the ids of the cart lines in order. It never returns nil.
func (s *Store) CartIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cart.IDs(s.items)
}

// AddDiscount selects discount id. Adding a selected id is a no-op and
// returns false.
func (s *Store) AddDiscount(id string) bool {
	added := false
	s.update(func() Change {
		if slices.Contains(s.discounts, id) {
			return 0
		}
		s.discounts = append(s.discounts, id)
		added = true
		return ChangeDiscounts
	})
	return added
}

// RemoveDiscount deselects discount id and reports whether it was selected.
func (s *Store) RemoveDiscount(id string) bool {
	removed := false
	s.update(func() Change {
		i := slices.Index(s.discounts, id)
		if i < 0 {
			return 0
		}
		s.discounts = slices.Delete(s.discounts, i, i+1)
		removed = true
		return ChangeDiscounts
	})
	return removed
}

// HasDiscount reports whether id is selected.
func (s *Store) HasDiscount(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.discounts, id)
}

// Discounts returns the selected discount ids in selection order.
func (s *Store) Discounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.discounts)
}

// SetDeliveryType switches the delivery type and marks it selected.
func (s *Store) SetDeliveryType(t delivery.Type) {
	s.update(func() Change {
		if s.delivery.Type == t && s.delivery.Selected {
			return 0
		}
		s.delivery.Type = t
		s.delivery.Selected = true
		return ChangeDelivery
	})
}

// SetDeliveryTypeSelected sets the selection flag without changing the type.
func (s *Store) SetDeliveryTypeSelected(selected bool) {
	s.update(func() Change {
		if s.delivery.Selected == selected {
			return 0
		}
		s.delivery.Selected = selected
		return ChangeDelivery
	})
}

// SetAddress selects the delivery address.
func (s *Store) SetAddress(id string) {
	s.update(func() Change {
		if s.delivery.AddressID == id {
			return 0
		}
		s.delivery.AddressID = id
		return ChangeAddress
	})
}

// ClearAddress drops the selected address.
func (s *Store) ClearAddress() { s.SetAddress("") }

// Delivery returns the current delivery context.
func (s *Store) Delivery() DeliveryContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delivery
}

// Generation returns the current input generation.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// SetSummary overwrites the summary for the current generation. A nil
// summary means no valid summary exists for the current inputs.
func (s *Store) SetSummary(summary *pricing.Summary) {
	s.update(func() Change {
		return s.setSummaryLocked(s.gen, summary)
	})
}

// SetSummaryFor stores summary only if gen is still the current generation.
// It reports whether the summary was stored.
func (s *Store) SetSummaryFor(gen uint64, summary *pricing.Summary) bool {
	applied := false
	s.update(func() Change {
		if gen != s.gen {
			return 0
		}
		applied = true
		return s.setSummaryLocked(gen, summary)
	})
	return applied
}

func (s *Store) setSummaryLocked(gen uint64, summary *pricing.Summary) Change {
	if s.summary == nil && summary == nil {
		return 0
	}
	s.summary = summary
	s.summaryGen = gen
	return ChangeSummary
}

// Summary returns the billing summary for the current inputs, or nil.
func (s *Store) Summary() *pricing.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSummaryLocked()
}

func (s *Store) currentSummaryLocked() *pricing.Summary {
	if s.summaryGen != s.gen {
		return nil
	}
	return s.summary
}

// SetLoading toggles the flag shown while a mutation is in flight.
func (s *Store) SetLoading(v bool) {
	s.update(func() Change {
		if s.loading == v {
			return 0
		}
		s.loading = v
		return ChangeLoading
	})
}

// SetSummaryLoading toggles the flag shown while pricing is in flight.
func (s *Store) SetSummaryLoading(v bool) {
	s.update(func() Change {
		if s.summaryLoading == v {
			return 0
		}
		s.summaryLoading = v
		return ChangeLoading
	})
}

// Loading reports whether a mutation is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// SummaryLoading reports whether a pricing request is in flight.
func (s *Store) SummaryLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summaryLoading
}

// Snapshot returns a consistent copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Items:          cloneItems(s.items),
		Discounts:      slices.Clone(s.discounts),
		Delivery:       s.delivery,
		Summary:        s.currentSummaryLocked(),
		Generation:     s.gen,
		Loading:        s.loading,
		SummaryLoading: s.summaryLoading,
	}
}

func cloneItems(items []cart.Item) []cart.Item {
	out := make([]cart.Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
