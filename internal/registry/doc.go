// Package registry maintains the bucketed file-to-state mapping every
// discovered transcript moves through.
//
// Each registered file belongs to exactly one state bucket at all times; the
// union of buckets equals the registered set. Transitions go through a single
// SetState operation that also performs the terminal-state side effects:
// disabling the item and copying the backing file into a state-named
// subfolder (flagged_transcripts, no_matches_found, uploaded_transcripts).
// failed_to_process is terminal but performs no file operation. Terminal items
// deterministically reject further transitions.
package registry
