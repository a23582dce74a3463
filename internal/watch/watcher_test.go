package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"intake/internal/logging"
	"intake/internal/watch"
)

func TestReportsSettledTranscript(t *testing.T) {
	dir := t.TempDir()

	w, err := watch.New(dir, logging.NewNop(), watch.WithSettleDelay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	path := filepath.Join(dir, "SME_0012.txt")
	if err := os.WriteFile(path, []byte("transcript body"), 0o644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	select {
	case got := <-w.Paths():
		if got != path {
			t.Fatalf("expected %s, got %s", path, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transcript")
	}
}

func TestIgnoresOtherFileTypes(t *testing.T) {
	dir := t.TempDir()

	w, err := watch.New(dir, logging.NewNop(), watch.WithSettleDelay(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	if err := os.WriteFile(filepath.Join(dir, "notes.md"), []byte("not a transcript"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case got := <-w.Paths():
		t.Fatalf("unexpected path reported: %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRepeatedWritesReportOnce(t *testing.T) {
	dir := t.TempDir()

	w, err := watch.New(dir, logging.NewNop(), watch.WithSettleDelay(100*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	path := filepath.Join(dir, "FLS_0423.txt")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("chunked transfer"), 0o644); err != nil {
			t.Fatalf("write transcript: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	select {
	case <-w.Paths():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for transcript")
	}

	select {
	case got := <-w.Paths():
		t.Fatalf("transcript reported twice: %s", got)
	case <-time.After(300 * time.Millisecond):
	}
}
