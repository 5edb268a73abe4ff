package model

import "fmt"

// Mode selects how a list is ordered.
type Mode string

// List modes.
const (
	ModeSort       Mode = "sort"
	ModeTournament Mode = "tournament"
)

// List is a user-curated, ordered set of items. The store owns persistence;
// the engine only ever sees snapshots.
type List struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
	// Items order is the manual sort order.
	Items []Item `json:"items"`
	// Query holds canonical query text; empty means identity.
	Query   string `json:"query,omitempty"`
	Mode    Mode   `json:"mode"`
	Version int64  `json:"version"`
}

// Clone returns a deep copy of the list.
func (l List) Clone() List {
	out := l
	out.Items = CloneItems(l.Items)
	return out
}

// Index maps item ids to their position in Items.
func (l List) Index() map[string]int {
	idx := make(map[string]int, len(l.Items))
	for i, it := range l.Items {
		idx[it.ID] = i
	}
	return idx
}

// Validate checks item invariants and id uniqueness.
func (l List) Validate() error {
	return ValidateItems(l.Items)
}

// ValidateItems checks each item and rejects repeated ids.
func ValidateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
