package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"intake/internal/ledger"
	"intake/internal/notifications"
	"intake/internal/records"
	"intake/internal/registry"
	"intake/internal/transcripts"
	"intake/internal/workflow"
)

const previewLines = 8

func newProcessCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <folder>",
		Short: "Match a folder of transcripts against the record store and review the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, cmdCtx, args[0])
		},
	}
}

func runProcess(cmd *cobra.Command, cmdCtx *commandContext, folder string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.buildLogger()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	store, err := ledger.Open(cfg.Paths.LedgerDir)
	if err != nil {
		return fmt.Errorf("open outcome ledger: %w", err)
	}
	defer store.Close()

	client := records.NewClient(cfg.Store)
	notifier := notifications.NewService(cfg)

	coord, err := workflow.New(cfg, client, logger, workflow.WithRecorder(store))
	if err != nil {
		return err
	}
	coord.Start(cmd.Context())
	defer coord.Stop()

	if err := coord.Authorize(cmd.Context()); err != nil {
		return describeAuthError(err)
	}

	count, err := coord.SelectFolder(folder)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Found %d transcript files in %s\n", count, folder)
	_ = notifier.NotifyBatchStarted(cmd.Context(), folder, count)

	sink := newEventSink(out)
	go sink.run(coord.Events())

	if err := coord.ProcessBatch(cmd.Context()); err != nil {
		return err
	}
	waitForMatching(cmd.Context(), coord)

	prompt := newPrompter(cmd.InOrStdin(), out)
	if err := reviewItems(cmd.Context(), coord, sink, prompt, out); err != nil {
		return err
	}

	counts := coord.Counts()
	summary := workflow.BatchComplete{
		Uploaded:  counts[registry.StateUploaded],
		Flagged:   counts[registry.StateFlagged],
		NoMatches: counts[registry.StateNoMatchesFound],
		Failed:    counts[registry.StateFailedToProcess],
	}
	printSummary(out, counts)
	_ = notifier.NotifyBatchComplete(cmd.Context(), summary)
	return nil
}

func describeAuthError(err error) error {
	switch {
	case errors.Is(err, records.ErrInvalidCredentials):
		return fmt.Errorf("the record store rejected the access token; check [store] access_token: %w", err)
	case errors.Is(err, records.ErrConnectivity):
		return fmt.Errorf("could not reach the record store; check your network connection: %w", err)
	default:
		return fmt.Errorf("authorization failed: %w", err)
	}
}

// waitForMatching blocks until every matching task has concluded. The
// watchdog bounds this wait even when a task hangs.
func waitForMatching(ctx context.Context, coord *workflow.Coordinator) {
	for {
		if coord.Remaining() == 0 && coord.Counts()[registry.StateProcessing] == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// reviewItems walks the user through every transcript that needs a decision.
func reviewItems(ctx context.Context, coord *workflow.Coordinator, sink *eventSink, prompt *prompter, out io.Writer) error {
	skipped := make(map[string]bool)
	for {
		item, ok := nextReviewable(coord, skipped)
		if !ok {
			if len(skipped) > 0 {
				fmt.Fprintf(out, "\n%d transcripts were skipped and remain unresolved.\n", len(skipped))
			}
			return nil
		}

		fmt.Fprintf(out, "\nReviewing %s (%d candidate records)\n", item.Name, len(item.Candidates))
		options := make([]string, 0, len(item.Candidates)+2)
		for _, rec := range item.Candidates {
			options = append(options, rec.DisplayString())
		}
		options = append(options, "Flag for manual review", "Skip for now")

		choice, err := prompt.menu("Select the matching record.", options)
		if err != nil {
			return err
		}

		switch {
		case choice < len(item.Candidates):
			if err := approveItem(ctx, coord, sink, prompt, out, item, item.Candidates[choice]); err != nil {
				return err
			}
		case choice == len(item.Candidates):
			confirmed, err := prompt.confirm(fmt.Sprintf("Flag %q for manual review? The file will be copied to the flagged_transcripts subfolder.", item.Name))
			if err != nil {
				return err
			}
			if confirmed {
				if err := coord.Flag(item.Path); err != nil {
					fmt.Fprintf(out, "Could not flag %s: %v\n", item.Name, err)
				}
			}
		default:
			skipped[item.Path] = true
		}
	}
}

func nextReviewable(coord *workflow.Coordinator, skipped map[string]bool) (workflow.ItemView, bool) {
	for _, item := range coord.ItemsInState(registry.StateNeedsAttention) {
		if !skipped[item.Path] {
			return item, true
		}
	}
	return workflow.ItemView{}, false
}

func approveItem(ctx context.Context, coord *workflow.Coordinator, sink *eventSink, prompt *prompter, out io.Writer, item workflow.ItemView, rec records.Record) error {
	action := transcripts.ActionNone
	if rec.HasTranscript() {
		local, err := transcripts.ReadTranscript(item.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nRecord %s already has a transcript entry.\n", rec.InterviewCode)
		printPreview(out, "Existing entry", rec.Transcript)
		printPreview(out, "From file", local)

		actions := transcripts.Actions()
		labels := make([]string, len(actions))
		for i, a := range actions {
			labels[i] = a.Label()
		}
		choice, err := prompt.menu("How should the two transcripts combine?", labels)
		if err != nil {
			return err
		}
		action = actions[choice]
	}

	if err := coord.Approve(ctx, item.Path, rec.ID, action); err != nil {
		fmt.Fprintf(out, "Could not approve %s: %v\n", item.Name, err)
		return nil
	}
	awaitResolution(ctx, coord, sink, item.Path, out)
	return nil
}

// awaitResolution waits for an approved item to leave the review bucket, or
// for its upload to fail.
func awaitResolution(ctx context.Context, coord *workflow.Coordinator, sink *eventSink, path string, out io.Writer) {
	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		if item, ok := coord.Item(path); !ok || item.State != registry.StateNeedsAttention {
			return
		}
		if msg, failed := sink.takeError(path); failed {
			fmt.Fprintf(out, "Upload failed for %s: %s\nThe transcript is still awaiting review; approve it again to retry.\n", filepath.Base(path), msg)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
	fmt.Fprintf(out, "Timed out waiting for the upload of %s; it remains awaiting review.\n", filepath.Base(path))
}

func printPreview(out io.Writer, title, text string) {
	lines := strings.Split(text, "\n")
	truncated := false
	if len(lines) > previewLines {
		lines = lines[:previewLines]
		truncated = true
	}
	fmt.Fprintf(out, "--- %s ---\n", title)
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if truncated {
		fmt.Fprintln(out, "[...]")
	}
}

func printSummary(out io.Writer, counts map[registry.State]int) {
	fmt.Fprintln(out, "\nBatch summary:")
	rows := make([][]string, 0, len(registry.AllStates()))
	for _, state := range []registry.State{
		registry.StateUploaded,
		registry.StateFlagged,
		registry.StateNoMatchesFound,
		registry.StateFailedToProcess,
		registry.StateNeedsAttention,
	} {
		rows = append(rows, []string{state.Label(), strconv.Itoa(counts[state])})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Outcome", "Files"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// eventSink consumes coordinator events off the interactive flow: state
// changes are narrated as they happen, upload failures are held for the
// review loop to pick up.
type eventSink struct {
	out io.Writer

	mu     sync.Mutex
	errors map[string]string
}

func newEventSink(out io.Writer) *eventSink {
	return &eventSink{out: out, errors: make(map[string]string)}
}

func (s *eventSink) run(events <-chan workflow.Event) {
	for ev := range events {
		switch e := ev.(type) {
		case workflow.ItemStateChanged:
			fmt.Fprintf(s.out, "  %s -> %s\n", filepath.Base(e.Path), e.State.Label())
		case workflow.BatchError:
			s.mu.Lock()
			s.errors[e.Path] = e.Message
			s.mu.Unlock()
		}
	}
}

func (s *eventSink) takeError(path string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.errors[path]
	if ok {
		delete(s.errors, path)
	}
	return msg, ok
}
