package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hemalab/hemassist/internal/chat"
	"github.com/hemalab/hemassist/internal/services/tools"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Document is one OCR-extracted upload spliced into the prompt, in upload
// order.
type Document struct {
	Name string
	Text string
}

// RunError reports a run that reached a terminal status other than
// completed. The user has already been shown a notice by the time it is
// returned.
type RunError struct {
	Status openai.RunStatus
}

func (e *RunError) Error() string {
	return fmt.Sprintf("assistant run ended with status %s", e.Status)
}

// ErrRunTimeout is returned when a run never reaches a terminal status
// before the configured poll deadline.
var ErrRunTimeout = errors.New("assistant run did not reach a terminal status before the poll deadline")

// DriverConfig carries the per-deployment settings of the run driver.
type DriverConfig struct {
	AssistantID  string
	Author       string
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Driver submits user turns to a remote thread and drives the resulting run
// to a terminal status, reconciling every message-producing step into the
// client's view along the way.
type Driver struct {
	api          API
	tools        *tools.Service
	assistantID  string
	author       string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewDriver(api API, toolService *tools.Service, cfg DriverConfig) *Driver {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Minute
	}

	return &Driver{
		api:          api,
		tools:        toolService,
		assistantID:  cfg.AssistantID,
		author:       cfg.Author,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
	}
}

// Run executes one conversation turn: it appends the composed prompt to the
// thread, starts a run, and polls status and steps until the run reaches a
// terminal state. The full step list is rescanned every iteration; the
// reconciler's update-or-create behavior keeps that idempotent.
func (d *Driver) Run(ctx context.Context, threadID, query string, docs []Document, sender chat.Sender) error {
	prompt := composePrompt(query, docs)

	if _, err := d.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}); err != nil {
		return fmt.Errorf("create thread message: %w", err)
	}

	run, err := d.api.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: d.assistantID,
	})
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	runID := run.ID

	log.Info().
		Str("thread_id", threadID).
		Str("run_id", runID).
		Msg("Assistant run started")
	d.sendStep(ctx, sender, "started")

	reconciler := NewReconciler(sender, d.author)
	deadline := time.Now().Add(d.pollTimeout)
	order := "asc"

	for {
		run, err = d.api.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return fmt.Errorf("retrieve run %s: %w", runID, err)
		}

		steps, err := d.api.ListRunSteps(ctx, threadID, runID, openai.Pagination{Order: &order})
		if err != nil {
			return fmt.Errorf("list run steps: %w", err)
		}

		for _, step := range steps.RunSteps {
			if err := d.processStep(ctx, threadID, runID, step.ID, reconciler); err != nil {
				return err
			}
		}

		if run.Status == openai.RunStatusRequiresAction &&
			run.RequiredAction != nil &&
			run.RequiredAction.Type == openai.RequiredActionTypeSubmitToolOutputs {
			if err := d.submitToolOutputs(ctx, threadID, runID, run.RequiredAction); err != nil {
				return err
			}
		}

		if isTerminal(run.Status) {
			break
		}
		if time.Now().After(deadline) {
			d.sendStep(ctx, sender, "timed_out")
			return ErrRunTimeout
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.pollInterval):
		}
	}

	log.Info().
		Str("run_id", runID).
		Str("status", string(run.Status)).
		Msg("Assistant run finished")
	d.sendStep(ctx, sender, string(run.Status))

	if run.Status != openai.RunStatusCompleted {
		notice := &chat.Message{
			ID:      uuid.New().String(),
			Author:  d.author,
			Content: terminalNotice(run.Status),
		}
		if err := sender.Send(ctx, notice); err != nil {
			return fmt.Errorf("send failure notice: %w", err)
		}
		return &RunError{Status: run.Status}
	}
	return nil
}

func (d *Driver) processStep(ctx context.Context, threadID, runID, stepID string, reconciler *Reconciler) error {
	step, err := d.api.RetrieveRunStep(ctx, threadID, runID, stepID)
	if err != nil {
		return fmt.Errorf("retrieve run step %s: %w", stepID, err)
	}

	if step.StepDetails.Type != openai.RunStepTypeMessageCreation || step.StepDetails.MessageCreation == nil {
		return nil
	}

	msg, err := d.api.RetrieveMessage(ctx, threadID, step.StepDetails.MessageCreation.MessageID)
	if err != nil {
		return fmt.Errorf("retrieve thread message %s: %w", step.StepDetails.MessageCreation.MessageID, err)
	}
	return reconciler.Apply(ctx, msg)
}

func (d *Driver) submitToolOutputs(ctx context.Context, threadID, runID string, action *openai.RunRequiredAction) error {
	var calls []openai.ToolCall
	if action.SubmitToolOutputs != nil {
		calls = action.SubmitToolOutputs.ToolCalls
	}

	outputs := d.tools.Execute(ctx, calls)
	if _, err := d.api.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
		ToolOutputs: outputs,
	}); err != nil {
		return fmt.Errorf("submit tool outputs: %w", err)
	}
	return nil
}

func (d *Driver) sendStep(ctx context.Context, sender chat.Sender, status string) {
	step := &chat.Step{Name: d.author, Type: "run", Status: status}
	if err := sender.Step(ctx, step); err != nil {
		log.Warn().Err(err).Msg("Failed to deliver run step event")
	}
}

// composePrompt splices OCR-extracted document text after the user's query
// so the assistant sees each upload delimited by file name.
func composePrompt(query string, docs []Document) string {
	if len(docs) == 0 {
		return query
	}

	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\n PDF Given: ")
	for _, doc := range docs {
		fmt.Fprintf(&b, "\n---%s---\n%s\n---END %s---\n", doc.Name, doc.Text, doc.Name)
	}
	return b.String()
}

func isTerminal(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusCompleted,
		openai.RunStatusFailed,
		openai.RunStatusCancelled,
		openai.RunStatusExpired:
		return true
	}
	return false
}

func terminalNotice(status openai.RunStatus) string {
	switch status {
	case openai.RunStatusFailed:
		return "The assistant run failed. Please try sending your message again."
	case openai.RunStatusCancelled:
		return "The assistant run was cancelled before it finished."
	case openai.RunStatusExpired:
		return "The assistant run expired before completing. Please try again."
	default:
		return fmt.Sprintf("The assistant run ended unexpectedly (%s).", status)
	}
}
