package matching

import (
	"context"
	"log/slog"

	"intake/internal/config"
	"intake/internal/logging"
	"intake/internal/records"
)

// Matcher resolves a transcript file stem to candidate records in the remote
// store: an exact interview-code match short-circuits, otherwise substring
// terms derived from the stem drive a fuzzy query.
type Matcher struct {
	gateway   records.Service
	extractor *Extractor
	logger    *slog.Logger
}

// New constructs a Matcher. The gateway is injected rather than held as
// ambient state so tests can substitute stubs.
func New(gateway records.Service, cfg config.Matching, logger *slog.Logger) (*Matcher, error) {
	extractor, err := NewExtractor(cfg.ParticipantTypes)
	if err != nil {
		return nil, err
	}
	return &Matcher{
		gateway:   gateway,
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "matcher"),
	}, nil
}

// FindMatchingRecords attempts to find records matching the given file stem.
//
// The returned bool reports whether an exact match was found; when true the
// candidate list contains exactly that record and fuzzy search was never
// attempted. An empty list with exact=false covers both "nothing extractable
// from the stem" and "fuzzy search found nothing".
func (m *Matcher) FindMatchingRecords(ctx context.Context, stem string) ([]records.Record, bool, error) {
	exact, err := m.gateway.ExactLookup(ctx, stem)
	if err != nil {
		return nil, false, err
	}
	if exact != nil {
		m.logger.Debug("exact match found", logging.String("stem", stem), logging.String("record_id", exact.ID))
		return []records.Record{*exact}, true, nil
	}

	info := m.extractor.Extract(stem)
	if !info.Extractable() {
		m.logger.Debug("no participant info extractable", logging.String("stem", stem))
		return nil, false, nil
	}

	matches, err := m.gateway.FuzzyLookup(ctx, info.SearchTerms())
	if err != nil {
		return nil, false, err
	}
	deduped := dedupeByID(matches)
	m.logger.Debug("fuzzy search finished",
		logging.String("stem", stem),
		logging.Int("candidates", len(deduped)),
	)
	return deduped, false, nil
}

// dedupeByID removes duplicate records, preserving first-seen order.
func dedupeByID(matches []records.Record) []records.Record {
	seen := make(map[string]struct{}, len(matches))
	unique := make([]records.Record, 0, len(matches))
	for _, record := range matches {
		if _, ok := seen[record.ID]; ok {
			continue
		}
		seen[record.ID] = struct{}{}
		unique = append(unique, record)
	}
	return unique
}
