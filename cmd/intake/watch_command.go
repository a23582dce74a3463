package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"intake/internal/ledger"
	"intake/internal/matching"
	"intake/internal/notifications"
	"intake/internal/records"
	"intake/internal/registry"
	"intake/internal/transcripts"
	"intake/internal/watch"
)

func newWatchCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <folder>",
		Short: "Watch a folder and upload transcripts with unambiguous matches as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, cmdCtx, args[0])
		},
	}
}

func runWatch(cmd *cobra.Command, cmdCtx *commandContext, folder string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.buildLogger()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	client := records.NewClient(cfg.Store)
	if err := client.Authorize(cmd.Context()); err != nil {
		return describeAuthError(err)
	}

	matcher, err := matching.New(client, cfg.Matching, logger)
	if err != nil {
		return err
	}
	processor := transcripts.NewProcessor(client, matcher, cfg.Matching.MaxRetries, logger)

	store, err := ledger.Open(cfg.Paths.LedgerDir)
	if err != nil {
		return fmt.Errorf("open outcome ledger: %w", err)
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)

	watcher, err := watch.New(folder, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchErr := make(chan error, 1)
	go func() { watchErr <- watcher.Run(ctx) }()

	fmt.Fprintf(out, "Watching %s for new transcripts. Press Ctrl-C to stop.\n", folder)

	session := &watchSession{
		batchID:   uuid.NewString(),
		processor: processor,
		store:     store,
		notifier:  notifier,
		out:       out,
	}
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nStopping watch.")
			return nil
		case err := <-watchErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case path := <-watcher.Paths():
			session.handle(ctx, path)
		}
	}
}

type watchSession struct {
	batchID   string
	processor *transcripts.Processor
	store     *ledger.Store
	notifier  notifications.Service
	out       io.Writer
}

func (s *watchSession) handle(ctx context.Context, path string) {
	name := filepath.Base(path)

	text, err := transcripts.ReadTranscript(path)
	if err != nil {
		fmt.Fprintf(s.out, "Could not read %s: %v\n", name, err)
		return
	}
	if !transcripts.ValidateText(text) {
		fmt.Fprintf(s.out, "Skipping %s: too short to be a transcript.\n", name)
		return
	}

	result, err := s.processor.ProcessSingle(ctx, path)
	if err != nil {
		fmt.Fprintf(s.out, "Failed to match %s: %v\n", name, err)
		_ = s.notifier.NotifyError(ctx, err, "matching "+name)
		s.record(ctx, ledger.Outcome{BatchID: s.batchID, Path: path, State: registry.StateFailedToProcess})
		return
	}

	state, _ := transcripts.DetermineState(result.Candidates, result.Exact)
	switch state {
	case registry.StateUploaded:
		rec := result.Candidates[0]
		if err := s.processor.Upload(ctx, rec, text); err != nil {
			fmt.Fprintf(s.out, "Failed to upload %s: %v\n", name, err)
			_ = s.notifier.NotifyError(ctx, err, "uploading "+name)
			return
		}
		fmt.Fprintf(s.out, "Uploaded %s to interview %s.\n", name, rec.InterviewCode)
		s.record(ctx, ledger.Outcome{
			BatchID:       s.batchID,
			Path:          path,
			State:         registry.StateUploaded,
			RecordID:      rec.ID,
			InterviewCode: rec.InterviewCode,
		})
		_ = s.notifier.NotifyTranscriptUploaded(ctx, name, rec.InterviewCode)
	case registry.StateNoMatchesFound:
		fmt.Fprintf(s.out, "No matching records for %s; leave it in place and run `intake process` later.\n", name)
	default:
		fmt.Fprintf(s.out, "%s needs a decision (%d candidate records); run `intake process` to review it.\n", name, len(result.Candidates))
	}
}

func (s *watchSession) record(ctx context.Context, outcome ledger.Outcome) {
	if err := s.store.RecordOutcome(ctx, outcome); err != nil {
		fmt.Fprintf(s.out, "Could not record outcome for %s: %v\n", filepath.Base(outcome.Path), err)
	}
}
