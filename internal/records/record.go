package records

import (
	"fmt"
	"strings"
)

// Record is an interview record held in the remote store. The core treats it
// as immutable; all writes go through the gateway's update operation.
type Record struct {
	ID            string
	InterviewCode string
	Project       string
	Transcript    string
}

// HasTranscript reports whether the record already carries transcript text.
func (r Record) HasTranscript() bool {
	return strings.TrimSpace(r.Transcript) != ""
}

// DisplayString renders the record the way review prompts present it.
func (r Record) DisplayString() string {
	if strings.TrimSpace(r.Project) == "" {
		return fmt.Sprintf("Interview code %q", r.InterviewCode)
	}
	return fmt.Sprintf("Interview code %q, from project %q", r.InterviewCode, r.Project)
}
