package transcripts_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"intake/internal/config"
	"intake/internal/logging"
	"intake/internal/matching"
	"intake/internal/records"
	"intake/internal/registry"
	"intake/internal/testsupport"
	"intake/internal/transcripts"
)

func newProcessor(t *testing.T, gateway records.Service, maxRetries int) *transcripts.Processor {
	t.Helper()
	matcher, err := matching.New(gateway, config.Default().Matching, logging.NewNop())
	if err != nil {
		t.Fatalf("matching.New: %v", err)
	}
	return transcripts.NewProcessor(gateway, matcher, maxRetries, logging.NewNop())
}

func TestDetermineState(t *testing.T) {
	clean := records.Record{ID: "rec1", InterviewCode: "SME_0012"}
	taken := records.Record{ID: "rec2", InterviewCode: "SME_0013", Transcript: "existing"}

	cases := []struct {
		name        string
		candidates  []records.Record
		exact       bool
		wantState   registry.State
		wantDisable bool
	}{
		{"no matches", nil, false, registry.StateNoMatchesFound, true},
		{"exact clean slot", []records.Record{clean}, true, registry.StateUploaded, true},
		{"exact with existing transcript", []records.Record{taken}, true, registry.StateNeedsAttention, false},
		{"fuzzy candidates", []records.Record{clean, taken}, false, registry.StateNeedsAttention, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state, disable := transcripts.DetermineState(tc.candidates, tc.exact)
			if state != tc.wantState || disable != tc.wantDisable {
				t.Fatalf("DetermineState = (%s, %v), want (%s, %v)", state, disable, tc.wantState, tc.wantDisable)
			}
		})
	}
}

func TestPrepare(t *testing.T) {
	cases := []struct {
		name     string
		local    string
		existing string
		action   transcripts.Action
		want     string
	}{
		{"append", "B", "A", transcripts.ActionAppend, "A\nB"},
		{"prepend", "B", "A", transcripts.ActionPrepend, "B\nA"},
		{"overwrite", "B", "A", transcripts.ActionOverwrite, "B"},
		{"no existing ignores action", "B", "", transcripts.ActionNone, "B"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := transcripts.Prepare(tc.local, tc.existing, tc.action)
			if err != nil {
				t.Fatalf("Prepare failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Prepare = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrepareRejectsUnselectedAction(t *testing.T) {
	if _, err := transcripts.Prepare("B", "A", transcripts.ActionNone); err == nil {
		t.Fatal("expected error for unselected action with existing transcript")
	}
}

func TestProcessSingleRetriesThenSucceeds(t *testing.T) {
	failures := 2
	gateway := &testsupport.Gateway{
		ExactFunc: func(ctx context.Context, key string) (*records.Record, error) {
			if failures > 0 {
				failures--
				return nil, errors.New("transient")
			}
			return &records.Record{ID: "rec1", InterviewCode: key}, nil
		},
	}

	processor := newProcessor(t, gateway, 3)
	result, err := processor.ProcessSingle(context.Background(), "/batch/SME_0012.txt")
	if err != nil {
		t.Fatalf("ProcessSingle failed: %v", err)
	}
	if !result.Exact || len(result.Candidates) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if gateway.ExactCalls() != 3 {
		t.Fatalf("expected 3 attempts, got %d", gateway.ExactCalls())
	}
}

func TestProcessSingleExhaustsRetries(t *testing.T) {
	wantErr := errors.New("gateway down")
	gateway := &testsupport.Gateway{
		ExactFunc: func(ctx context.Context, key string) (*records.Record, error) {
			return nil, wantErr
		},
	}

	processor := newProcessor(t, gateway, 3)
	_, err := processor.ProcessSingle(context.Background(), "/batch/SME_0012.txt")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected final gateway error, got %v", err)
	}
	if gateway.ExactCalls() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", gateway.ExactCalls())
	}
}

func TestUploadRetries(t *testing.T) {
	failures := 1
	gateway := &testsupport.Gateway{
		UpdateFunc: func(ctx context.Context, recordID, text string) error {
			if failures > 0 {
				failures--
				return errors.New("transient")
			}
			return nil
		},
	}

	processor := newProcessor(t, gateway, 2)
	record := records.Record{ID: "rec1"}
	if err := processor.Upload(context.Background(), record, "text"); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if got := len(gateway.Updates()); got != 2 {
		t.Fatalf("expected 2 update attempts, got %d", got)
	}
}

func TestUploadExhaustsRetries(t *testing.T) {
	gateway := &testsupport.Gateway{
		UpdateFunc: func(ctx context.Context, recordID, text string) error {
			return errors.New("still down")
		},
	}

	processor := newProcessor(t, gateway, 3)
	err := processor.Upload(context.Background(), records.Record{ID: "rec1"}, "text")
	if err == nil {
		t.Fatal("expected upload error after retries")
	}
	if got := len(gateway.Updates()); got != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", got)
	}
}

func TestReadTranscript(t *testing.T) {
	dir := testsupport.TranscriptFolder(t, map[string]string{"a.txt": "transcript body"})
	text, err := transcripts.ReadTranscript(dir + "/a.txt")
	if err != nil {
		t.Fatalf("ReadTranscript failed: %v", err)
	}
	if text != "transcript body" {
		t.Fatalf("unexpected text: %q", text)
	}

	if _, err := transcripts.ReadTranscript(dir + "/missing.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateText(t *testing.T) {
	if transcripts.ValidateText("too short") {
		t.Fatal("short text should be invalid")
	}
	long := strings.Repeat("word ", 11)
	if !transcripts.ValidateText(long) {
		t.Fatal("11 words should be valid")
	}
}

func TestAlreadyUploaded(t *testing.T) {
	if !transcripts.AlreadyUploaded("the interview", "prefix the interview suffix") {
		t.Fatal("contained text should count as uploaded")
	}
	if transcripts.AlreadyUploaded("the interview", "different content") {
		t.Fatal("unrelated text should not count as uploaded")
	}
	if transcripts.AlreadyUploaded("anything", "") {
		t.Fatal("empty existing text should not count as uploaded")
	}
}
