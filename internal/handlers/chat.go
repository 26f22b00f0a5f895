package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hemalab/hemassist/internal/chat"
	"github.com/hemalab/hemassist/internal/connections"
	"github.com/hemalab/hemassist/internal/services/assistant"
	"github.com/hemalab/hemassist/internal/services/ocr"
	"github.com/hemalab/hemassist/internal/services/session"
	"github.com/hemalab/hemassist/internal/services/upload"
	"github.com/hemalab/hemassist/pkg/httpext"
	"github.com/rs/zerolog/log"
)

// userAuthor is the display author of user-originated messages, including
// replayed suggestions and upload notices.
const userAuthor = "You"

var (
	manager = connections.NewManager(connections.DefaultTimeouts)

	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // In production, implement proper origin checking
		},
	}
)

// wsSender delivers chat events over one WebSocket connection. Writes are
// serialised; gorilla/websocket supports only one concurrent writer.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) write(event *chat.ServerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(manager.GetTimeouts().WriteWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}

func (s *wsSender) Send(ctx context.Context, msg *chat.Message) error {
	return s.write(&chat.ServerEvent{Type: chat.EventMessage, Message: msg})
}

func (s *wsSender) Update(ctx context.Context, msg *chat.Message) error {
	return s.write(&chat.ServerEvent{Type: chat.EventMessageUpdate, Message: msg})
}

func (s *wsSender) Step(ctx context.Context, step *chat.Step) error {
	return s.write(&chat.ServerEvent{Type: chat.EventStep, Step: step})
}

func (s *wsSender) sendError(text string) {
	if err := s.write(&chat.ServerEvent{Type: chat.EventError, Error: text}); err != nil {
		log.Warn().Err(err).Msg("Failed to deliver error event")
	}
}

// HandleChat upgrades the connection and dispatches client events for one
// chat session. Turns are handled sequentially on the read loop: one turn at
// a time per session, which is what keeps the per-run reconciliation state
// single-writer.
func HandleChat(sessions *session.Service, uploads *upload.Service, extractor *ocr.Service, driver *assistant.Driver, w http.ResponseWriter, r *http.Request) {
	threadID, err := sessions.ResolveThread(r.Context(), r)
	if err != nil {
		log.Warn().Err(err).Msg("Session cookie rejected")
		httpext.JsonError(w, "Invalid session", http.StatusUnauthorized)
		return
	}
	if threadID == "" {
		httpext.JsonError(w, "No active session", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	manager.Add(conn, threadID)
	defer func() {
		manager.Remove(conn)
		conn.Close()
	}()

	timeouts := manager.GetTimeouts()
	if err := conn.SetReadDeadline(time.Now().Add(timeouts.PongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeouts.PongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go pingLoop(conn, done)

	sender := &wsSender{conn: conn}
	validate := validator.New(validator.WithRequiredStructEnabled())

	for {
		if err := conn.SetReadDeadline(time.Now().Add(timeouts.PongWait)); err != nil {
			return
		}

		var event chat.ClientEvent
		if err := conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("WebSocket closed unexpectedly")
			}
			return
		}

		if err := validate.Struct(event); err != nil {
			sender.sendError(fmt.Sprintf("Invalid event: %v", err))
			continue
		}

		switch event.Type {
		case chat.EventUserMessage:
			handleTurn(r.Context(), uploads, extractor, driver, sender, threadID, event.Content, event.Files)
		case chat.EventAction:
			handleAction(r.Context(), driver, sender, threadID, event.Action)
		}
	}
}

// handleTurn runs one full user turn: stage and validate uploads, OCR them,
// then drive the remote run.
func handleTurn(ctx context.Context, uploads *upload.Service, extractor *ocr.Service, driver *assistant.Driver, sender *wsSender, threadID, content string, files []chat.FileUpload) {
	docs, err := processFiles(ctx, uploads, extractor, sender, files)
	if err != nil {
		log.Error().Err(err).Msg("Document extraction failed")
		sender.sendError("We could not read one of your documents. Please try uploading it again.")
		return
	}

	runTurn(ctx, driver, sender, threadID, content, docs)
}

// handleAction replays a rendered suggestion as if the user had typed it.
// No files are attached to a replayed suggestion.
func handleAction(ctx context.Context, driver *assistant.Driver, sender *wsSender, threadID string, action *chat.Action) {
	if action == nil || action.Name != assistant.ActionRunSuggestion {
		sender.sendError("Unknown action")
		return
	}

	echo := &chat.Message{
		ID:      uuid.New().String(),
		Author:  userAuthor,
		Content: action.Label,
	}
	if err := sender.Send(ctx, echo); err != nil {
		log.Warn().Err(err).Msg("Failed to echo replayed suggestion")
		return
	}

	runTurn(ctx, driver, sender, threadID, action.Label, nil)
}

func runTurn(ctx context.Context, driver *assistant.Driver, sender *wsSender, threadID, query string, docs []assistant.Document) {
	if err := driver.Run(ctx, threadID, query, docs, sender); err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("Assistant run failed")

		// A RunError has already produced a user-visible notice.
		var runErr *assistant.RunError
		if !errors.As(err, &runErr) {
			sender.sendError("Something went wrong while talking to the assistant.")
		}
	}
}

// processFiles stages uploads on disk, validates their types, and OCRs each
// accepted document. An unsupported collection is not fatal to the turn: the
// user is told which types are accepted and the turn proceeds without
// documents.
func processFiles(ctx context.Context, uploads *upload.Service, extractor *ocr.Service, sender *wsSender, files []chat.FileUpload) ([]assistant.Document, error) {
	if len(files) == 0 {
		return nil, nil
	}

	dir, err := os.MkdirTemp("", "hemassist-upload-")
	if err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	defer os.RemoveAll(dir)

	staged := make([]upload.File, 0, len(files))
	for i, file := range files {
		path := filepath.Join(dir, fmt.Sprintf("upload-%d", i))
		if err := os.WriteFile(path, file.Data, 0o600); err != nil {
			return nil, fmt.Errorf("stage upload %s: %w", file.Name, err)
		}

		mime := file.MIME
		if mime == "" {
			mime, err = uploads.DetectMIME(path)
			if err != nil {
				return nil, fmt.Errorf("detect type of %s: %w", file.Name, err)
			}
		}

		staged = append(staged, upload.File{Name: file.Name, Path: path, MIME: mime})
	}

	if !uploads.Validate(staged) {
		notice := &chat.Message{
			ID:     uuid.New().String(),
			Author: userAuthor,
			Content: fmt.Sprintf(
				"Hey, it seems you have uploaded one or more files that we do not support currently, please upload only : %s",
				strings.Join(uploads.Allowed(), ","),
			),
		}
		if err := sender.Send(ctx, notice); err != nil {
			return nil, err
		}
		return nil, nil
	}

	docs := make([]assistant.Document, 0, len(staged))
	for _, file := range staged {
		text, err := extractor.ExtractText(ctx, file.Path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, assistant.Document{Name: file.Name, Text: text})
	}
	return docs, nil
}

func pingLoop(conn *websocket.Conn, done chan struct{}) {
	timeouts := manager.GetTimeouts()
	ticker := time.NewTicker(timeouts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(timeouts.WriteWait)
			if err := conn.WriteControl(websocket.PingMessage, []byte{}, deadline); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
