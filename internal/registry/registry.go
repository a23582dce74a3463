package registry

import (
	"errors"
	"fmt"
	"path/filepath"

	"intake/internal/records"
)

// ErrTerminalState is returned when a transition is attempted on an item that
// already reached a terminal state.
var ErrTerminalState = errors.New("item is in a terminal state")

// ErrUnknownItem is returned when a transition targets a path that was never
// registered.
var ErrUnknownItem = errors.New("unknown transcript item")

// Item tracks one discovered transcript file through the processing states.
type Item struct {
	// Path is the absolute path of the backing file and the item's identity.
	Path string
	// State is the current lifecycle state; mutated only via Registry.SetState.
	State State
	// Candidates holds the matched remote records in gateway order: empty,
	// one exact, or several fuzzy.
	Candidates []records.Record
	// Enabled is false once the item no longer accepts interaction.
	Enabled bool
}

// Name returns the file name of the backing transcript.
func (i *Item) Name() string {
	return filepath.Base(i.Path)
}

// Registry is the authoritative mapping of discovered files to their current
// processing state. Every registered file lives in exactly one state bucket;
// moving between buckets is atomic with respect to readers. The registry
// itself is not goroutine safe: the processing coordinator owns it and
// serializes all access on its control loop.
type Registry struct {
	byPath  map[string]*Item
	buckets map[State][]*Item
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.reset()
	return r
}

func (r *Registry) reset() {
	r.byPath = make(map[string]*Item)
	r.buckets = make(map[State][]*Item, len(allStates))
	for _, state := range allStates {
		r.buckets[state] = nil
	}
}

// Add registers a newly discovered file at the given initial state. The item
// starts enabled unless the initial state is terminal.
func (r *Registry) Add(path string, initial State) (*Item, error) {
	if _, exists := r.byPath[path]; exists {
		return nil, fmt.Errorf("transcript already registered: %s", path)
	}
	item := &Item{
		Path:    path,
		State:   initial,
		Enabled: !initial.IsTerminal(),
	}
	r.byPath[path] = item
	r.buckets[initial] = append(r.buckets[initial], item)
	return item, nil
}

// Find returns the registered item for path, or nil.
func (r *Registry) Find(path string) *Item {
	return r.byPath[path]
}

// SetState atomically moves the item into the new state's bucket. Terminal
// items reject further transitions with ErrTerminalState. Entering a state
// with a relocation folder copies the backing file into that subfolder of the
// source directory (created on demand); the original file stays in place. The
// state transition is applied before the copy, so a copy failure never leaves
// the bucket partition inconsistent.
func (r *Registry) SetState(item *Item, newState State) error {
	if item == nil {
		return ErrUnknownItem
	}
	current, exists := r.byPath[item.Path]
	if !exists || current != item {
		return ErrUnknownItem
	}
	if item.State.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminalState, item.Name(), item.State)
	}
	if item.State == newState {
		return nil
	}

	r.removeFromBucket(item)
	item.State = newState
	r.buckets[newState] = append(r.buckets[newState], item)
	if newState.IsTerminal() {
		item.Enabled = false
	}

	if folder := newState.RelocationFolder(); folder != "" {
		if err := copyIntoSubfolder(item.Path, folder); err != nil {
			return fmt.Errorf("relocate %s: %w", item.Name(), err)
		}
	}
	return nil
}

func (r *Registry) removeFromBucket(item *Item) {
	bucket := r.buckets[item.State]
	for i, candidate := range bucket {
		if candidate == item {
			r.buckets[item.State] = append(bucket[:i:i], bucket[i+1:]...)
			return
		}
	}
}

// ItemsInState returns the items currently bucketed under state, in insertion
// order.
func (r *Registry) ItemsInState(state State) []*Item {
	bucket := r.buckets[state]
	out := make([]*Item, len(bucket))
	copy(out, bucket)
	return out
}

// CountInState returns the number of items bucketed under state.
func (r *Registry) CountInState(state State) int {
	return len(r.buckets[state])
}

// Len returns the total number of registered items.
func (r *Registry) Len() int {
	return len(r.byPath)
}

// Clear empties all buckets; used when starting a new batch.
func (r *Registry) Clear() {
	r.reset()
}
