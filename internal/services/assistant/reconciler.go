package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hemalab/hemassist/internal/chat"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ActionRunSuggestion names the client action that replays a suggestion as
// if the user had typed it.
const ActionRunSuggestion = "run_suggestion"

const actionRunValue = "run"

// suggestionPayload is the JSON contract the assistant is instructed to
// reply with: a display message plus optional one-click follow-ups.
type suggestionPayload struct {
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// Reconciler folds remote thread messages into the client's view. It is
// scoped to a single run's polling loop: re-observing a content block
// updates the message already delivered for it instead of duplicating it,
// which is what makes rescanning the full step list on every poll safe.
type Reconciler struct {
	sender chat.Sender
	author string
	refs   map[string]*chat.Message
}

func NewReconciler(sender chat.Sender, author string) *Reconciler {
	return &Reconciler{
		sender: sender,
		author: author,
		refs:   make(map[string]*chat.Message),
	}
}

// Apply processes every content block of a retrieved thread message, in the
// order the remote service returned them. Blocks are identified by
// (message id, block index); at most one client message exists per key.
func (r *Reconciler) Apply(ctx context.Context, msg openai.Message) error {
	for idx, block := range msg.Content {
		if block.Text == nil {
			continue
		}

		key := fmt.Sprintf("%s/%d", msg.ID, idx)
		content, suggestions := decodeBlock(block.Text.Value)

		if ref, ok := r.refs[key]; ok {
			ref.Content = content
			if err := r.sender.Update(ctx, ref); err != nil {
				return fmt.Errorf("update message %s: %w", key, err)
			}
			continue
		}

		ref := &chat.Message{
			ID:      uuid.New().String(),
			Author:  r.author,
			Content: content,
			Actions: suggestionActions(suggestions),
		}
		if err := r.sender.Send(ctx, ref); err != nil {
			return fmt.Errorf("send message %s: %w", key, err)
		}
		r.refs[key] = ref
	}
	return nil
}

// decodeBlock parses the structured {message, suggestions} payload. A block
// that is not valid JSON, or that lacks the message field, violates the
// remote contract; it is rendered as raw text with no actions rather than
// failing the turn.
func decodeBlock(raw string) (string, []string) {
	var payload suggestionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		log.Warn().Err(err).Msg("Assistant reply is not structured JSON, rendering raw text")
		return raw, nil
	}
	if payload.Message == "" {
		log.Warn().Msg("Assistant reply lacks a message field, rendering raw text")
		return raw, nil
	}
	return payload.Message, payload.Suggestions
}

func suggestionActions(suggestions []string) []chat.Action {
	if len(suggestions) == 0 {
		return nil
	}

	actions := make([]chat.Action, 0, len(suggestions))
	for _, suggestion := range suggestions {
		actions = append(actions, chat.Action{
			Name:        ActionRunSuggestion,
			Value:       actionRunValue,
			Label:       suggestion,
			Description: suggestion,
		})
	}
	return actions
}
