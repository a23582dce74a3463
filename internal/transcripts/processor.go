package transcripts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"intake/internal/logging"
	"intake/internal/matching"
	"intake/internal/records"
	"intake/internal/registry"
)

// MatchResult is the outcome of matching one transcript file.
type MatchResult struct {
	Path       string
	Candidates []records.Record
	Exact      bool
}

// Processor orchestrates matching and uploading for single transcripts, with
// bounded immediate retries around every gateway call.
type Processor struct {
	gateway    records.Service
	matcher    *matching.Matcher
	maxRetries int
	logger     *slog.Logger
}

// NewProcessor constructs a Processor. maxRetries values below 1 are clamped
// to 1 attempt.
func NewProcessor(gateway records.Service, matcher *matching.Matcher, maxRetries int, logger *slog.Logger) *Processor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Processor{
		gateway:    gateway,
		matcher:    matcher,
		maxRetries: maxRetries,
		logger:     logging.NewComponentLogger(logger, "transcript-processor"),
	}
}

// ProcessSingle matches one transcript file against the record store. The
// whole matcher call is retried immediately up to the configured bound; the
// final error is returned once attempts are exhausted.
func (p *Processor) ProcessSingle(ctx context.Context, path string) (MatchResult, error) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		candidates, exact, err := p.matcher.FindMatchingRecords(ctx, stem)
		if err == nil {
			p.logger.Info("transcript matched",
				logging.String("path", path),
				logging.Int("candidates", len(candidates)),
				logging.Bool("exact", exact),
			)
			return MatchResult{Path: path, Candidates: candidates, Exact: exact}, nil
		}
		lastErr = err
		p.logger.Warn("matching attempt failed",
			logging.String("path", path),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}
	return MatchResult{}, fmt.Errorf("match %s after %d attempts: %w", filepath.Base(path), p.maxRetries, lastErr)
}

// DetermineState classifies a match outcome into the item's next state. The
// bool reports whether the item should be disabled for interaction.
//
// An exact match with a clean remote transcript slot is auto-finalized;
// anything ambiguous (fuzzy candidates) or conflicting (exact but the remote
// already has content) needs a human decision.
func DetermineState(candidates []records.Record, exact bool) (registry.State, bool) {
	switch {
	case exact && !candidates[0].HasTranscript():
		return registry.StateUploaded, true
	case len(candidates) == 0:
		return registry.StateNoMatchesFound, true
	default:
		return registry.StateNeedsAttention, false
	}
}

// Prepare computes the final transcript text. Without an existing remote
// transcript the local text is returned unchanged regardless of action. With
// one, the chosen action decides how the two combine; an unselected action is
// a programming error at this point, since validation should have required one.
func Prepare(local, existing string, action Action) (string, error) {
	if existing == "" {
		return local, nil
	}
	switch action {
	case ActionAppend:
		return existing + "\n" + local, nil
	case ActionPrepend:
		return local + "\n" + existing, nil
	case ActionOverwrite:
		return local, nil
	default:
		return "", fmt.Errorf("invalid transcript action: %q", action)
	}
}

// Upload writes text into the record's transcript field, retried like
// matching.
func (p *Processor) Upload(ctx context.Context, record records.Record, text string) error {
	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		err := p.gateway.UpdateTranscript(ctx, record.ID, text)
		if err == nil {
			p.logger.Info("transcript uploaded", logging.String("record_id", record.ID))
			return nil
		}
		lastErr = err
		p.logger.Warn("upload attempt failed",
			logging.String("record_id", record.ID),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
	}
	return fmt.Errorf("upload to record %s after %d attempts: %w", record.ID, p.maxRetries, lastErr)
}

// ReadTranscript reads the transcript text from a file.
func ReadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript: %w", err)
	}
	return string(data), nil
}

// ValidateText reports whether the transcript text looks like a real
// transcript rather than an empty or placeholder file.
func ValidateText(text string) bool {
	return len(strings.Fields(text)) > 10
}

// AlreadyUploaded reports whether the local transcript is already contained
// in the existing remote text, meaning an upload would be redundant.
func AlreadyUploaded(local, existing string) bool {
	if existing == "" || strings.TrimSpace(local) == "" {
		return false
	}
	return strings.Contains(existing, local)
}
