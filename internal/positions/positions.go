// Package positions keeps sibling ordering inside a catalog container.
//
// A container's display order is position ascending with the id as tie-breaker.
// Every function here is pure. Callers persist the returned updates in one
// transaction through Store.
package positions

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

const (
	Backward = -1
	Forward  = 1
)

// Item is one child of a container.
type Item struct {
	ID       uuid.UUID
	Position int
}

// Update assigns a new position to a row.
type Update struct {
	ID       uuid.UUID
	Position int
}

// Plan is the outcome of Move. Moved is false when the item already sat at the
// boundary in the requested direction; Updates is then empty.
type Plan struct {
	Moved   bool
	Updates []Update
}

// Less orders two items by position, then id.
func Less(a, b Item) bool {
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Sorted returns a copy of items in display order.
func Sorted(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// NextPosition returns the position that appends after every existing item.
func NextPosition(items []Item) int {
	if len(items) == 0 {
		return 0
	}
	max := items[0].Position
	for _, it := range items[1:] {
		if it.Position > max {
			max = it.Position
		}
	}
	return max + 1
}

// Move swaps the item with its neighbour in the delta direction. Containers
// holding duplicate positions are first renumbered 0..n-1 in display order so
// the swap is well defined; those renumbered rows are part of the plan.
func Move(items []Item, id uuid.UUID, delta int) (Plan, error) {
	if delta != Backward && delta != Forward {
		return Plan{}, pkgerrors.New(pkgerrors.CodeValidation, "position delta must be -1 or +1").
			WithDetails(map[string]any{"delta": delta})
	}

	sorted := Sorted(items)
	idx := -1
	for i, it := range sorted {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Plan{}, pkgerrors.New(pkgerrors.CodeInvariant, "item is not part of the container").
			WithDetails(map[string]any{"id": id.String()})
	}

	target := idx + delta
	if target < 0 || target >= len(sorted) {
		return Plan{Moved: false}, nil
	}

	working := make([]int, len(sorted))
	for i, it := range sorted {
		working[i] = it.Position
	}
	if hasDuplicates(sorted) {
		for i := range working {
			working[i] = i
		}
	}
	working[idx], working[target] = working[target], working[idx]

	plan := Plan{Moved: true}
	for i, it := range sorted {
		if working[i] != it.Position {
			plan.Updates = append(plan.Updates, Update{ID: it.ID, Position: working[i]})
		}
	}
	return plan, nil
}

// Apply returns a copy of items with the plan's updates written in.
func Apply(items []Item, plan Plan) []Item {
	byID := make(map[uuid.UUID]int, len(plan.Updates))
	for _, u := range plan.Updates {
		byID[u.ID] = u.Position
	}
	out := make([]Item, len(items))
	for i, it := range items {
		if pos, ok := byID[it.ID]; ok {
			it.Position = pos
		}
		out[i] = it
	}
	return out
}

func hasDuplicates(sorted []Item) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Position == sorted[i-1].Position {
			return true
		}
	}
	return false
}
