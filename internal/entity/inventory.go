package entity

import (
	"maps"
	"slices"
)

// Inventory counts consumables by item id.
type Inventory map[string]int

// Count returns how many of an item are held.
func (inv Inventory) Count(id string) int { return inv[id] }

// Take removes one item and reports whether one was held.
func (inv Inventory) Take(id string) bool {
	if inv[id] <= 0 {
		return false
	}
	inv[id]--
	if inv[id] == 0 {
		delete(inv, id)
	}
	return true
}

// Add adds n items.
func (inv Inventory) Add(id string, n int) {
	if n > 0 {
		inv[id] += n
	}
}

// IDs returns the held item ids in sorted order.
func (inv Inventory) IDs() []string {
	return slices.Sorted(maps.Keys(inv))
}

// Clone returns a copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	maps.Copy(out, inv)
	return out
}
