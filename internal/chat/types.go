package chat

import "context"

// Client -> server event types
const (
	EventUserMessage = "user_message"
	EventAction      = "action"
)

// Server -> client event types
const (
	EventMessage       = "message"
	EventMessageUpdate = "message_update"
	EventStep          = "step"
	EventError         = "error"
)

// Message is one rendered chat bubble on the client. Updates are addressed by
// the message ID, so re-sending an existing ID replaces content in place.
type Message struct {
	ID      string   `json:"id"`
	Author  string   `json:"author"`
	Content string   `json:"content"`
	Actions []Action `json:"actions,omitempty"`
}

// Action is a one-click follow-up rendered under a message. Invoking it sends
// the action back to the server as an "action" client event.
type Action struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Step annotates a displayed reasoning step of the assistant.
type Step struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// FileUpload is one uploaded element of a user turn. Data is base64 on the
// wire; MIME is the client-declared type and may be empty.
type FileUpload struct {
	Name string `json:"name" validate:"required"`
	MIME string `json:"mime,omitempty"`
	Data []byte `json:"data"`
}

// ClientEvent is an incoming event from the chat client.
type ClientEvent struct {
	Type    string       `json:"type" validate:"required,oneof=user_message action"`
	Content string       `json:"content,omitempty"`
	Files   []FileUpload `json:"files,omitempty" validate:"dive"`
	Action  *Action      `json:"action,omitempty"`
}

// ServerEvent is an outgoing event to the chat client.
type ServerEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
	Step    *Step    `json:"step,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Sender delivers UI updates for one conversation turn.
type Sender interface {
	// Send renders a new message on the client.
	Send(ctx context.Context, msg *Message) error
	// Update replaces the content of an already-rendered message.
	Update(ctx context.Context, msg *Message) error
	// Step surfaces a reasoning-step annotation.
	Step(ctx context.Context, step *Step) error
}
