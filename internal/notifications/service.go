package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"intake/internal/config"
	"intake/internal/workflow"
)

const userAgent = "Intake/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyBatchStarted(ctx context.Context, folder string, count int) error
	NotifyBatchComplete(ctx context.Context, summary workflow.BatchComplete) error
	NotifyTranscriptUploaded(ctx context.Context, filename, interviewCode string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, folder string, count int) error {
	data := payload{
		title:   "Intake - Batch Started",
		message: fmt.Sprintf("Started processing %d transcripts from %s", count, folder),
		tags:    []string{"intake", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchComplete(ctx context.Context, summary workflow.BatchComplete) error {
	var title string
	var message string
	if summary.Failed == 0 {
		title = "Intake - Batch Complete"
		message = fmt.Sprintf(
			"Batch complete: %d uploaded, %d flagged, %d without matches",
			summary.Uploaded, summary.Flagged, summary.NoMatches,
		)
	} else {
		title = "Intake - Batch Complete (with errors)"
		message = fmt.Sprintf(
			"Batch complete: %d uploaded, %d flagged, %d without matches, %d failed",
			summary.Uploaded, summary.Flagged, summary.NoMatches, summary.Failed,
		)
	}

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"intake", "batch", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTranscriptUploaded(ctx context.Context, filename, interviewCode string) error {
	filename = strings.TrimSpace(filename)
	message := fmt.Sprintf("Uploaded transcript: %s", filename)
	if interviewCode = strings.TrimSpace(interviewCode); interviewCode != "" {
		message = fmt.Sprintf("%s (interview %s)", message, interviewCode)
	}
	data := payload{
		title:   "Intake - Uploaded",
		message: message,
		tags:    []string{"intake", "upload", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Intake - Error",
		message:  builder.String(),
		tags:     []string{"intake", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Intake - Test",
		message:  "Notification system test",
		tags:     []string{"intake", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyBatchComplete(context.Context, workflow.BatchComplete) error {
	return nil
}
func (noopService) NotifyTranscriptUploaded(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error               { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
