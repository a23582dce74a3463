package transcripts

// Action is the merge policy applied when a local transcript collides with an
// existing remote one. The zero value means no action was selected.
type Action string

const (
	ActionNone      Action = ""
	ActionAppend    Action = "append"
	ActionPrepend   Action = "prepend"
	ActionOverwrite Action = "overwrite"
)

// Actions returns the selectable merge actions in display order.
func Actions() []Action {
	return []Action{ActionAppend, ActionPrepend, ActionOverwrite}
}

// Label renders the action for menus.
func (a Action) Label() string {
	switch a {
	case ActionAppend:
		return "Append file transcript AFTER the existing entry"
	case ActionPrepend:
		return "Prepend file transcript BEFORE the existing entry"
	case ActionOverwrite:
		return "Overwrite the existing entry with the file transcript"
	default:
		return string(a)
	}
}
