package registry

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// State represents the lifecycle of a discovered transcript file.
type State string

const (
	StateWaiting         State = "waiting"
	StateProcessing      State = "processing"
	StateNeedsAttention  State = "needs_attention"
	StateFlagged         State = "flagged"
	StateNoMatchesFound  State = "no_matches_found"
	StateFailedToProcess State = "failed_to_process"
	StateUploaded        State = "uploaded"
)

var allStates = []State{
	StateWaiting,
	StateProcessing,
	StateNeedsAttention,
	StateFlagged,
	StateNoMatchesFound,
	StateFailedToProcess,
	StateUploaded,
}

var terminalStates = map[State]struct{}{
	StateFlagged:         {},
	StateNoMatchesFound:  {},
	StateFailedToProcess: {},
	StateUploaded:        {},
}

// relocationFolders maps terminal states to the source-directory subfolder the
// backing file is copied into. failed_to_process deliberately has no entry.
var relocationFolders = map[State]string{
	StateFlagged:        "flagged_transcripts",
	StateNoMatchesFound: "no_matches_found",
	StateUploaded:       "uploaded_transcripts",
}

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// IsTerminal reports whether the state locks the item from further action.
func (s State) IsTerminal() bool {
	_, ok := terminalStates[s]
	return ok
}

// RelocationFolder returns the subfolder name files entering this state are
// copied into, or "" when the state performs no file operation.
func (s State) RelocationFolder() string {
	return relocationFolders[s]
}

var labelCaser = cases.Title(language.English)

// Label renders the state for display ("needs_attention" -> "Needs Attention").
func (s State) Label() string {
	return labelCaser.String(strings.ReplaceAll(string(s), "_", " "))
}
