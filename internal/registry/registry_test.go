package registry_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"intake/internal/registry"
	"intake/internal/testsupport"
)

func checkPartition(t *testing.T, r *registry.Registry, wantTotal int) {
	t.Helper()
	seen := make(map[string]registry.State)
	total := 0
	for _, state := range registry.AllStates() {
		for _, item := range r.ItemsInState(state) {
			if prev, dup := seen[item.Path]; dup {
				t.Fatalf("item %s in both %s and %s buckets", item.Path, prev, state)
			}
			if item.State != state {
				t.Fatalf("item %s bucketed under %s but reports state %s", item.Path, state, item.State)
			}
			seen[item.Path] = state
			total++
		}
	}
	if total != wantTotal {
		t.Fatalf("bucket union has %d items, want %d", total, wantTotal)
	}
	if r.Len() != wantTotal {
		t.Fatalf("registry reports %d items, want %d", r.Len(), wantTotal)
	}
}

func TestBucketPartitionInvariant(t *testing.T) {
	dir := testsupport.TranscriptFolder(t, map[string]string{
		"a.txt": "alpha",
		"b.txt": "bravo",
		"c.txt": "charlie",
	})

	r := registry.New()
	var items []*registry.Item
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		item, err := r.Add(filepath.Join(dir, name), registry.StateWaiting)
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		items = append(items, item)
	}
	checkPartition(t, r, 3)

	transitions := []registry.State{
		registry.StateProcessing,
		registry.StateNeedsAttention,
		registry.StateFlagged,
	}
	for _, state := range transitions {
		if err := r.SetState(items[0], state); err != nil {
			t.Fatalf("SetState(%s) failed: %v", state, err)
		}
		checkPartition(t, r, 3)
	}
}

func TestAddDuplicateRejected(t *testing.T) {
	r := registry.New()
	if _, err := r.Add("/tmp/x.txt", registry.StateWaiting); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if _, err := r.Add("/tmp/x.txt", registry.StateWaiting); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestTerminalStatesLockAndDisable(t *testing.T) {
	dir := testsupport.TranscriptFolder(t, map[string]string{"a.txt": "alpha"})
	r := registry.New()
	item, err := r.Add(filepath.Join(dir, "a.txt"), registry.StateProcessing)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !item.Enabled {
		t.Fatal("item should start enabled")
	}

	if err := r.SetState(item, registry.StateUploaded); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}
	if item.Enabled {
		t.Fatal("terminal state should disable the item")
	}

	err = r.SetState(item, registry.StateFlagged)
	if !errors.Is(err, registry.ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
	if item.State != registry.StateUploaded {
		t.Fatalf("state mutated by rejected transition: %s", item.State)
	}
}

func TestRelocationCopiesFile(t *testing.T) {
	dir := testsupport.TranscriptFolder(t, map[string]string{"a.txt": "alpha"})
	src := filepath.Join(dir, "a.txt")

	r := registry.New()
	item, err := r.Add(src, registry.StateNeedsAttention)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := r.SetState(item, registry.StateFlagged); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	copied := filepath.Join(dir, "flagged_transcripts", "a.txt")
	data, err := os.ReadFile(copied)
	if err != nil {
		t.Fatalf("copied file missing: %v", err)
	}
	if string(data) != "alpha" {
		t.Fatalf("copied contents mismatch: %q", data)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("original file must remain in place: %v", err)
	}
}

func TestFailedToProcessDoesNotRelocate(t *testing.T) {
	dir := testsupport.TranscriptFolder(t, map[string]string{"a.txt": "alpha"})
	r := registry.New()
	item, err := r.Add(filepath.Join(dir, "a.txt"), registry.StateProcessing)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := r.SetState(item, registry.StateFailedToProcess); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			t.Fatalf("unexpected subfolder created: %s", entry.Name())
		}
	}
}

func TestItemsInStateInsertionOrder(t *testing.T) {
	r := registry.New()
	for _, path := range []string{"/t/1.txt", "/t/2.txt", "/t/3.txt"} {
		if _, err := r.Add(path, registry.StateWaiting); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	items := r.ItemsInState(registry.StateWaiting)
	if len(items) != 3 || items[0].Path != "/t/1.txt" || items[2].Path != "/t/3.txt" {
		t.Fatalf("insertion order broken: %v", items)
	}
}

func TestClearEmptiesAllBuckets(t *testing.T) {
	r := registry.New()
	if _, err := r.Add("/t/1.txt", registry.StateWaiting); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	r.Clear()
	if r.Len() != 0 {
		t.Fatalf("registry not cleared: %d items", r.Len())
	}
	if r.Find("/t/1.txt") != nil {
		t.Fatal("cleared item still findable")
	}
}

func TestStateLabel(t *testing.T) {
	if got := registry.StateNeedsAttention.Label(); got != "Needs Attention" {
		t.Fatalf("unexpected label: %s", got)
	}
}
