package matching_test

import (
	"context"
	"errors"
	"testing"

	"intake/internal/config"
	"intake/internal/logging"
	"intake/internal/matching"
	"intake/internal/records"
	"intake/internal/testsupport"
)

func newMatcher(t *testing.T, gateway records.Service) *matching.Matcher {
	t.Helper()
	m, err := matching.New(gateway, config.Default().Matching, logging.NewNop())
	if err != nil {
		t.Fatalf("matching.New: %v", err)
	}
	return m
}

func TestExtractTriple(t *testing.T) {
	extractor, err := matching.NewExtractor([]string{"sme", "fls", "mop"})
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}

	cases := []struct {
		stem string
		want matching.StemInfo
	}{
		{
			stem: "FLS_0423_240112_1530",
			want: matching.StemInfo{ParticipantType: "FLS", Code: "0423", Timestamp: "240112_1530"},
		},
		{
			stem: "interview with sme 0012 final",
			want: matching.StemInfo{ParticipantType: "SME", Code: "0012"},
		},
		{
			stem: "random_file",
			want: matching.StemInfo{},
		},
	}

	for _, tc := range cases {
		if got := extractor.Extract(tc.stem); got != tc.want {
			t.Errorf("Extract(%q) = %+v, want %+v", tc.stem, got, tc.want)
		}
	}
}

func TestSearchTerms(t *testing.T) {
	info := matching.StemInfo{ParticipantType: "FLS", Code: "0423", Timestamp: "240112_1530"}
	terms := info.SearchTerms()
	if len(terms) != 2 || terms[0] != "FLS_0423" || terms[1] != "FLS_0423_240112_1530" {
		t.Fatalf("unexpected terms: %v", terms)
	}

	info.Timestamp = ""
	terms = info.SearchTerms()
	if len(terms) != 1 || terms[0] != "FLS_0423" {
		t.Fatalf("unexpected terms without timestamp: %v", terms)
	}
}

func TestExactMatchShortCircuits(t *testing.T) {
	gateway := &testsupport.Gateway{
		ExactFunc: func(ctx context.Context, key string) (*records.Record, error) {
			return &records.Record{ID: "rec1", InterviewCode: key}, nil
		},
	}

	matcher := newMatcher(t, gateway)
	candidates, exact, err := matcher.FindMatchingRecords(context.Background(), "SME_0012")
	if err != nil {
		t.Fatalf("FindMatchingRecords failed: %v", err)
	}
	if !exact {
		t.Fatal("expected exact match")
	}
	if len(candidates) != 1 || candidates[0].ID != "rec1" {
		t.Fatalf("unexpected candidates: %v", candidates)
	}
	if gateway.FuzzyCalls() != 0 {
		t.Fatal("fuzzy search must not run after an exact match")
	}
}

func TestFuzzyFallbackDeduplicates(t *testing.T) {
	gateway := &testsupport.Gateway{
		FuzzyFunc: func(ctx context.Context, terms []string) ([]records.Record, error) {
			return []records.Record{
				{ID: "rec1", InterviewCode: "FLS_0423_240112_1530"},
				{ID: "rec2", InterviewCode: "FLS_0423_230101_0900"},
				{ID: "rec1", InterviewCode: "FLS_0423_240112_1530"},
			}, nil
		},
	}

	matcher := newMatcher(t, gateway)
	candidates, exact, err := matcher.FindMatchingRecords(context.Background(), "FLS_0423_240112_1530")
	if err != nil {
		t.Fatalf("FindMatchingRecords failed: %v", err)
	}
	if exact {
		t.Fatal("expected fuzzy result")
	}
	if len(candidates) != 2 || candidates[0].ID != "rec1" || candidates[1].ID != "rec2" {
		t.Fatalf("dedupe broke ordering: %v", candidates)
	}

	terms := gateway.FuzzyTerms()
	if len(terms) != 1 || len(terms[0]) != 2 || terms[0][0] != "FLS_0423" || terms[0][1] != "FLS_0423_240112_1530" {
		t.Fatalf("unexpected search terms: %v", terms)
	}
}

func TestUnextractableStemSkipsFuzzy(t *testing.T) {
	gateway := &testsupport.Gateway{}

	matcher := newMatcher(t, gateway)
	candidates, exact, err := matcher.FindMatchingRecords(context.Background(), "random_file")
	if err != nil {
		t.Fatalf("FindMatchingRecords failed: %v", err)
	}
	if exact || len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %v exact=%v", candidates, exact)
	}
	if gateway.FuzzyCalls() != 0 {
		t.Fatal("fuzzy search should not run for unextractable stems")
	}
}

func TestGatewayErrorPropagates(t *testing.T) {
	wantErr := errors.New("boom")
	gateway := &testsupport.Gateway{
		ExactFunc: func(ctx context.Context, key string) (*records.Record, error) {
			return nil, wantErr
		},
	}

	matcher := newMatcher(t, gateway)
	if _, _, err := matcher.FindMatchingRecords(context.Background(), "SME_0012"); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped gateway error, got %v", err)
	}
}
