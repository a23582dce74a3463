package workflow

import (
	"intake/internal/records"
	"intake/internal/registry"
)

// ItemView is a copy of one registered item, safe to read off the control
// loop.
type ItemView struct {
	Path       string
	Name       string
	State      registry.State
	Enabled    bool
	Candidates []records.Record
}

// ItemsInState snapshots the items currently bucketed under state, in
// insertion order.
func (c *Coordinator) ItemsInState(state registry.State) []ItemView {
	var views []ItemView
	_ = c.call(func() error {
		for _, item := range c.registry.ItemsInState(state) {
			views = append(views, ItemView{
				Path:       item.Path,
				Name:       item.Name(),
				State:      item.State,
				Enabled:    item.Enabled,
				Candidates: append([]records.Record(nil), item.Candidates...),
			})
		}
		return nil
	})
	return views
}

// Item snapshots a single registered item by path.
func (c *Coordinator) Item(path string) (ItemView, bool) {
	var view ItemView
	var found bool
	_ = c.call(func() error {
		item := c.registry.Find(path)
		if item == nil {
			return nil
		}
		found = true
		view = ItemView{
			Path:       item.Path,
			Name:       item.Name(),
			State:      item.State,
			Enabled:    item.Enabled,
			Candidates: append([]records.Record(nil), item.Candidates...),
		}
		return nil
	})
	return view, found
}

// Counts snapshots the per-state item counts.
func (c *Coordinator) Counts() map[registry.State]int {
	counts := make(map[registry.State]int, len(registry.AllStates()))
	_ = c.call(func() error {
		for _, state := range registry.AllStates() {
			counts[state] = c.registry.CountInState(state)
		}
		return nil
	})
	return counts
}

// Remaining snapshots the batch progress counter.
func (c *Coordinator) Remaining() int {
	var remaining int
	_ = c.call(func() error {
		remaining = c.remaining
		return nil
	})
	return remaining
}

// BatchID snapshots the identifier of the current batch, empty before the
// first ProcessBatch.
func (c *Coordinator) BatchID() string {
	var id string
	_ = c.call(func() error {
		id = c.batchID
		return nil
	})
	return id
}

// Folder snapshots the currently selected transcripts folder.
func (c *Coordinator) Folder() string {
	var folder string
	_ = c.call(func() error {
		folder = c.folder
		return nil
	})
	return folder
}
