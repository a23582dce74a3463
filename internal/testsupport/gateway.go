package testsupport

import (
	"context"
	"sync"

	"intake/internal/records"
)

// TranscriptUpdate captures one UpdateTranscript call against the stub.
type TranscriptUpdate struct {
	RecordID string
	Text     string
}

// Gateway is an in-memory records.Service for tests. Behavior is overridden
// per test through the exported funcs; calls are counted under a lock so
// concurrent matching tasks can share one stub.
type Gateway struct {
	mu sync.Mutex

	ExactFunc     func(ctx context.Context, key string) (*records.Record, error)
	FuzzyFunc     func(ctx context.Context, terms []string) ([]records.Record, error)
	UpdateFunc    func(ctx context.Context, recordID, text string) error
	AuthorizeFunc func(ctx context.Context) error

	exactCalls int
	fuzzyCalls int
	fuzzyTerms [][]string
	updates    []TranscriptUpdate
}

var _ records.Service = (*Gateway)(nil)

func (g *Gateway) ExactLookup(ctx context.Context, key string) (*records.Record, error) {
	g.mu.Lock()
	g.exactCalls++
	fn := g.ExactFunc
	g.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, key)
}

func (g *Gateway) FuzzyLookup(ctx context.Context, terms []string) ([]records.Record, error) {
	g.mu.Lock()
	g.fuzzyCalls++
	g.fuzzyTerms = append(g.fuzzyTerms, append([]string(nil), terms...))
	fn := g.FuzzyFunc
	g.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, terms)
}

func (g *Gateway) UpdateTranscript(ctx context.Context, recordID, text string) error {
	g.mu.Lock()
	g.updates = append(g.updates, TranscriptUpdate{RecordID: recordID, Text: text})
	fn := g.UpdateFunc
	g.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, recordID, text)
}

func (g *Gateway) Authorize(ctx context.Context) error {
	g.mu.Lock()
	fn := g.AuthorizeFunc
	g.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// ExactCalls returns how many exact lookups were made.
func (g *Gateway) ExactCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.exactCalls
}

// FuzzyCalls returns how many fuzzy lookups were made.
func (g *Gateway) FuzzyCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fuzzyCalls
}

// FuzzyTerms returns the terms passed to each fuzzy lookup, in call order.
func (g *Gateway) FuzzyTerms() [][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([][]string, len(g.fuzzyTerms))
	copy(out, g.fuzzyTerms)
	return out
}

// Updates returns every transcript update made against the stub.
func (g *Gateway) Updates() []TranscriptUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]TranscriptUpdate, len(g.updates))
	copy(out, g.updates)
	return out
}
