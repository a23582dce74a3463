package workflow

import "intake/internal/registry"

// Event is a view-facing notification emitted by the coordinator. Consumers
// type-switch over the concrete kinds below.
type Event interface {
	event()
}

// ItemStateChanged reports that one transcript moved to a new state.
type ItemStateChanged struct {
	Path  string
	State registry.State
}

// BatchProgress reports the number of files whose matching task has not yet
// concluded.
type BatchProgress struct {
	Remaining int
}

// BatchComplete carries the summary counts emitted once every file has
// reached a terminal state and nothing is left awaiting review.
type BatchComplete struct {
	Uploaded  int
	Flagged   int
	NoMatches int
	Failed    int
}

// BatchError surfaces a failure the user must act on without any item state
// change, such as an exhausted upload.
type BatchError struct {
	Path    string
	Message string
}

func (ItemStateChanged) event() {}
func (BatchProgress) event()    {}
func (BatchComplete) event()    {}
func (BatchError) event()       {}
