package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"intake/internal/async"
	"intake/internal/config"
	"intake/internal/ledger"
	"intake/internal/logging"
	"intake/internal/matching"
	"intake/internal/records"
	"intake/internal/registry"
	"intake/internal/transcripts"
)

// ErrNoTranscripts is returned when a selected folder contains no .txt files.
var ErrNoTranscripts = errors.New("no .txt files found in folder")

// ErrNothingToProcess is returned when a batch is started with no items in
// the processing state.
var ErrNothingToProcess = errors.New("no transcripts ready to process")

// ErrNotReviewable is returned when an approve or flag targets an item that
// is not awaiting review.
var ErrNotReviewable = errors.New("item is not awaiting review")

// ErrUnknownCandidate is returned when an approve names a record that was
// never matched to the item.
var ErrUnknownCandidate = errors.New("selected record is not a candidate for this item")

// ErrActionRequired is returned when an approve targets a record with an
// existing transcript but no merge action was chosen.
var ErrActionRequired = errors.New("a merge action is required when the record has an existing transcript")

// OutcomeRecorder persists terminal transitions. Satisfied by *ledger.Store.
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, o ledger.Outcome) error
}

// Coordinator drives the end-to-end transcript lifecycle: folder scan,
// fan-out of matching tasks onto the worker pool, fan-in of results into the
// registry, stuck-item detection, and batch-completion reporting.
//
// All registry and counter mutation happens on one control goroutine; worker
// callbacks and the watchdog post closures into its mailbox. Public methods
// are safe to call from any goroutine.
type Coordinator struct {
	cfg       *config.Config
	gateway   records.Service
	processor *transcripts.Processor
	registry  *registry.Registry
	pool      *async.Pool
	recorder  OutcomeRecorder
	logger    *slog.Logger

	mailbox chan func()
	events  chan Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// Fields below are owned by the control goroutine.
	folder             string
	batchID            string
	remaining          int
	authorized         bool
	completionReported bool
	watchdog           *time.Timer
}

// Option configures optional coordinator collaborators.
type Option func(*Coordinator)

// WithRecorder wires an outcome recorder; terminal transitions are then
// persisted as they happen.
func WithRecorder(recorder OutcomeRecorder) Option {
	return func(c *Coordinator) {
		c.recorder = recorder
	}
}

// New constructs a coordinator around the given gateway.
func New(cfg *config.Config, gateway records.Service, logger *slog.Logger, opts ...Option) (*Coordinator, error) {
	if cfg == nil || gateway == nil {
		return nil, errors.New("coordinator requires config and gateway")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	matcher, err := matching.New(gateway, cfg.Matching, logger)
	if err != nil {
		return nil, fmt.Errorf("build matcher: %w", err)
	}
	processor := transcripts.NewProcessor(gateway, matcher, cfg.Matching.MaxRetries, logger)

	workers := cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}

	c := &Coordinator{
		cfg:       cfg,
		gateway:   gateway,
		processor: processor,
		registry:  registry.New(),
		pool:      async.NewPool(workers),
		logger:    logging.NewComponentLogger(logger, "coordinator"),
		mailbox:   make(chan func(), 64),
		events:    make(chan Event, 128),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start launches the control loop. It must be called exactly once before any
// other method.
func (c *Coordinator) Start(ctx context.Context) {
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.loop()
}

// Stop terminates the control loop, waits for in-flight worker tasks, and
// closes the event channel.
func (c *Coordinator) Stop() {
	c.cancel()
	<-c.done
	c.pool.Wait()
	close(c.events)
}

// Events returns the channel of view-facing notifications. Events are
// dropped, with a log line, if the consumer falls behind the buffer.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

func (c *Coordinator) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.ctx.Done():
			return
		case fn := <-c.mailbox:
			fn()
		}
	}
}

// post schedules fn on the control loop without waiting for it.
func (c *Coordinator) post(fn func()) {
	select {
	case c.mailbox <- fn:
	case <-c.ctx.Done():
	}
}

// call runs fn on the control loop and waits for its result.
func (c *Coordinator) call(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case c.mailbox <- func() { reply <- fn() }:
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

func (c *Coordinator) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn("event dropped", logging.String("event", fmt.Sprintf("%T", ev)))
	}
}

// Authorize validates credentials against the record store with a lightweight
// probe. On success every waiting item advances to processing.
func (c *Coordinator) Authorize(ctx context.Context) error {
	if err := c.gateway.Authorize(ctx); err != nil {
		return err
	}
	return c.call(func() error {
		c.authorized = true
		for _, item := range c.registry.ItemsInState(registry.StateWaiting) {
			if err := c.registry.SetState(item, registry.StateProcessing); err != nil {
				return err
			}
			c.emit(ItemStateChanged{Path: item.Path, State: item.State})
		}
		return nil
	})
}

// SelectFolder scans folder for transcript files and registers each one,
// discarding any previous batch. Files start waiting until the gateway is
// authorized, processing otherwise. Returns the number of files found.
func (c *Coordinator) SelectFolder(folder string) (int, error) {
	info, err := os.Stat(folder)
	if err != nil {
		return 0, fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", folder)
	}
	paths, err := filepath.Glob(filepath.Join(folder, "*.txt"))
	if err != nil {
		return 0, fmt.Errorf("scan folder: %w", err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoTranscripts, folder)
	}

	err = c.call(func() error {
		c.registry.Clear()
		c.folder = folder
		c.batchID = ""
		c.remaining = 0
		c.completionReported = false
		c.stopWatchdog()

		initial := registry.StateWaiting
		if c.authorized {
			initial = registry.StateProcessing
		}
		for _, path := range paths {
			if _, err := c.registry.Add(path, initial); err != nil {
				return err
			}
		}
		c.logger.Info("folder selected",
			logging.String("folder", folder),
			logging.Int("files", len(paths)),
			logging.String("initial_state", string(initial)),
		)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(paths), nil
}

// ProcessBatch submits one matching task per processing item and arms the
// stuck-item watchdog.
func (c *Coordinator) ProcessBatch(ctx context.Context) error {
	return c.call(func() error {
		items := c.registry.ItemsInState(registry.StateProcessing)
		if len(items) == 0 {
			return ErrNothingToProcess
		}
		c.batchID = uuid.NewString()
		c.remaining = len(items)
		c.completionReported = false
		c.logger.Info("batch started",
			logging.String("batch_id", c.batchID),
			logging.Int("files", len(items)),
		)
		for _, item := range items {
			c.submitMatch(ctx, item.Path)
		}
		c.armWatchdog()
		return nil
	})
}

type matchOutcome struct {
	result transcripts.MatchResult
	state  registry.State
}

func (c *Coordinator) submitMatch(ctx context.Context, path string) {
	async.Submit(c.pool, ctx, func(ctx context.Context, task *async.Task) (matchOutcome, error) {
		result, err := c.processor.ProcessSingle(ctx, path)
		if err != nil {
			return matchOutcome{}, err
		}
		state, _ := transcripts.DetermineState(result.Candidates, result.Exact)
		if state == registry.StateUploaded {
			// An exact match with a clean remote slot finalizes without
			// review, so the write happens here on the worker.
			text, err := transcripts.ReadTranscript(path)
			if err != nil {
				return matchOutcome{}, err
			}
			if err := c.processor.Upload(ctx, result.Candidates[0], text); err != nil {
				return matchOutcome{}, err
			}
		}
		return matchOutcome{result: result, state: state}, nil
	}, async.Callbacks[matchOutcome]{
		OnResult: func(out matchOutcome) {
			c.post(func() { c.finishMatch(path, out) })
		},
		OnError: func(err error) {
			c.post(func() { c.failMatch(path, err) })
		},
	})
}

// finishMatch and failMatch only act on items still in the processing state:
// anything else is a late result for an item the watchdog already gave up on.

func (c *Coordinator) finishMatch(path string, out matchOutcome) {
	item := c.registry.Find(path)
	if item == nil || item.State != registry.StateProcessing {
		c.logger.Warn("late match result ignored", logging.String("path", path))
		return
	}
	item.Candidates = out.result.Candidates
	if err := c.registry.SetState(item, out.state); err != nil {
		c.logger.Error("state transition failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
	c.emit(ItemStateChanged{Path: path, State: item.State})
	var matched *records.Record
	if item.State == registry.StateUploaded && len(item.Candidates) > 0 {
		matched = &item.Candidates[0]
	}
	c.recordOutcome(item, matched)
	c.finishOne()
}

func (c *Coordinator) failMatch(path string, taskErr error) {
	item := c.registry.Find(path)
	if item == nil || item.State != registry.StateProcessing {
		c.logger.Warn("late match failure ignored", logging.String("path", path))
		return
	}
	c.logger.Warn("transcript failed to process",
		logging.String("path", path),
		logging.Error(taskErr),
	)
	if err := c.registry.SetState(item, registry.StateFailedToProcess); err != nil {
		c.logger.Error("state transition failed",
			logging.String("path", path),
			logging.Error(err),
		)
	}
	c.emit(ItemStateChanged{Path: path, State: item.State})
	c.recordOutcome(item, nil)
	c.finishOne()
}

// finishOne accounts for one concluded matching task. The counter never goes
// negative: late results are filtered out before reaching here.
func (c *Coordinator) finishOne() {
	if c.remaining > 0 {
		c.remaining--
	}
	c.emit(BatchProgress{Remaining: c.remaining})
	if c.remaining == 0 {
		c.stopWatchdog()
		c.checkComplete()
	}
}

func (c *Coordinator) armWatchdog() {
	c.stopWatchdog()
	delay := time.Duration(c.cfg.Workflow.WatchdogSeconds) * time.Second
	if delay <= 0 {
		delay = 10 * time.Second
	}
	c.watchdog = time.AfterFunc(delay, func() {
		c.post(c.forceStuck)
	})
}

func (c *Coordinator) stopWatchdog() {
	if c.watchdog != nil {
		c.watchdog.Stop()
		c.watchdog = nil
	}
}

// forceStuck gives up on items still processing when the watchdog fires. The
// underlying tasks are not cancelled; their eventual results are ignored.
func (c *Coordinator) forceStuck() {
	for _, item := range c.registry.ItemsInState(registry.StateProcessing) {
		c.logger.Warn("transcript stuck in processing", logging.String("path", item.Path))
		if err := c.registry.SetState(item, registry.StateFailedToProcess); err != nil {
			c.logger.Error("state transition failed",
				logging.String("path", item.Path),
				logging.Error(err),
			)
			continue
		}
		c.emit(ItemStateChanged{Path: item.Path, State: item.State})
		c.recordOutcome(item, nil)
		c.finishOne()
	}
}

// checkComplete reports the batch summary once no item is waiting,
// processing, or awaiting review. Reported at most once per batch.
func (c *Coordinator) checkComplete() {
	if c.completionReported || c.registry.Len() == 0 {
		return
	}
	if c.remaining > 0 ||
		c.registry.CountInState(registry.StateWaiting) > 0 ||
		c.registry.CountInState(registry.StateProcessing) > 0 ||
		c.registry.CountInState(registry.StateNeedsAttention) > 0 {
		return
	}

	c.completionReported = true
	summary := BatchComplete{
		Uploaded:  c.registry.CountInState(registry.StateUploaded),
		Flagged:   c.registry.CountInState(registry.StateFlagged),
		NoMatches: c.registry.CountInState(registry.StateNoMatchesFound),
		Failed:    c.registry.CountInState(registry.StateFailedToProcess),
	}
	c.logger.Info("batch complete",
		logging.String("batch_id", c.batchID),
		logging.Int("uploaded", summary.Uploaded),
		logging.Int("flagged", summary.Flagged),
		logging.Int("no_matches", summary.NoMatches),
		logging.Int("failed", summary.Failed),
	)
	c.emit(summary)
}

// Approve uploads the transcript into the chosen candidate record, merging
// per action when the record already holds text. Validation happens
// synchronously; the upload itself runs on the worker pool and reports
// through the event channel. An upload failure leaves the item awaiting
// review so the user can retry.
func (c *Coordinator) Approve(ctx context.Context, path, recordID string, action transcripts.Action) error {
	var target records.Record
	err := c.call(func() error {
		item := c.registry.Find(path)
		if item == nil {
			return fmt.Errorf("%w: %s", registry.ErrUnknownItem, path)
		}
		if item.State != registry.StateNeedsAttention || !item.Enabled {
			return fmt.Errorf("%w: %s is %s", ErrNotReviewable, item.Name(), item.State)
		}
		found := false
		for _, candidate := range item.Candidates {
			if candidate.ID == recordID {
				target = candidate
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrUnknownCandidate, recordID)
		}
		if target.HasTranscript() && action == transcripts.ActionNone {
			return ErrActionRequired
		}
		return nil
	})
	if err != nil {
		return err
	}

	async.Submit(c.pool, ctx, func(ctx context.Context, task *async.Task) (struct{}, error) {
		local, err := transcripts.ReadTranscript(path)
		if err != nil {
			return struct{}{}, err
		}
		if transcripts.AlreadyUploaded(local, target.Transcript) {
			c.logger.Info("transcript already present on record",
				logging.String("path", path),
				logging.String("record_id", target.ID),
			)
			return struct{}{}, nil
		}
		merged, err := transcripts.Prepare(local, target.Transcript, action)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, c.processor.Upload(ctx, target, merged)
	}, async.Callbacks[struct{}]{
		OnResult: func(struct{}) {
			c.post(func() { c.finishUpload(path, target) })
		},
		OnError: func(err error) {
			c.post(func() {
				c.logger.Error("upload failed",
					logging.String("path", path),
					logging.Error(err),
				)
				c.emit(BatchError{Path: path, Message: err.Error()})
			})
		},
	})
	return nil
}

func (c *Coordinator) finishUpload(path string, target records.Record) {
	item := c.registry.Find(path)
	if item == nil || item.State != registry.StateNeedsAttention {
		return
	}
	if err := c.registry.SetState(item, registry.StateUploaded); err != nil {
		c.logger.Error("state transition failed",
			logging.String("path", path),
			logging.Error(err),
		)
		return
	}
	c.emit(ItemStateChanged{Path: path, State: item.State})
	c.recordOutcome(item, &target)
	c.checkComplete()
}

// Flag moves a reviewed item into the flagged bucket. Asking the user for
// confirmation is the caller's responsibility.
func (c *Coordinator) Flag(path string) error {
	return c.call(func() error {
		item := c.registry.Find(path)
		if item == nil {
			return fmt.Errorf("%w: %s", registry.ErrUnknownItem, path)
		}
		if item.State != registry.StateNeedsAttention || !item.Enabled {
			return fmt.Errorf("%w: %s is %s", ErrNotReviewable, item.Name(), item.State)
		}
		if err := c.registry.SetState(item, registry.StateFlagged); err != nil {
			return err
		}
		c.emit(ItemStateChanged{Path: path, State: item.State})
		c.recordOutcome(item, nil)
		c.checkComplete()
		return nil
	})
}

func (c *Coordinator) recordOutcome(item *registry.Item, matched *records.Record) {
	if c.recorder == nil || !item.State.IsTerminal() {
		return
	}
	outcome := ledger.Outcome{
		BatchID: c.batchID,
		Path:    item.Path,
		State:   item.State,
	}
	if matched != nil {
		outcome.RecordID = matched.ID
		outcome.InterviewCode = matched.InterviewCode
	}
	if err := c.recorder.RecordOutcome(c.ctx, outcome); err != nil {
		c.logger.Warn("outcome not recorded",
			logging.String("path", item.Path),
			logging.Error(err),
		)
	}
}
