package records

import "context"

// Service is the record store capability the matching and upload code depends
// on. The concrete HTTP client implements it; tests substitute stubs.
type Service interface {
	// ExactLookup returns the record whose interview code equals key, or nil.
	ExactLookup(ctx context.Context, key string) (*Record, error)
	// FuzzyLookup returns every record whose interview code contains any of
	// the given terms (logical OR).
	FuzzyLookup(ctx context.Context, terms []string) ([]Record, error)
	// UpdateTranscript writes text into the record's transcript field.
	UpdateTranscript(ctx context.Context, recordID, text string) error
	// Authorize probes the store with a one-record fetch to validate
	// credentials. Failures are classified into the exported sentinels.
	Authorize(ctx context.Context) error
}
