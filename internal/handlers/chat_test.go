package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hemalab/hemassist/internal/chat"
	"github.com/hemalab/hemassist/internal/config"
	"github.com/hemalab/hemassist/internal/services"
	"github.com/hemalab/hemassist/internal/services/assistant"
	"github.com/hemalab/hemassist/internal/services/ocr"
	"github.com/hemalab/hemassist/internal/services/session"
	"github.com/hemalab/hemassist/internal/services/tools"
	"github.com/hemalab/hemassist/internal/services/upload"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAssistantAPI scripts a remote service that completes a run on the
// first poll with a single message-creation step.
type fakeAssistantAPI struct {
	payload        string
	lastUserPrompt string
}

func (f *fakeAssistantAPI) CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error) {
	return openai.Thread{ID: "thread_ws"}, nil
}

func (f *fakeAssistantAPI) CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error) {
	f.lastUserPrompt = request.Content
	return openai.Message{ID: "msg_user"}, nil
}

func (f *fakeAssistantAPI) RetrieveMessage(ctx context.Context, threadID, messageID string) (openai.Message, error) {
	return openai.Message{
		ID: messageID,
		Content: []openai.MessageContent{
			{Type: "text", Text: &openai.MessageText{Value: f.payload}},
		},
	}, nil
}

func (f *fakeAssistantAPI) CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error) {
	return openai.Run{ID: "run_ws", Status: openai.RunStatusQueued}, nil
}

func (f *fakeAssistantAPI) RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error) {
	return openai.Run{ID: runID, Status: openai.RunStatusCompleted}, nil
}

func (f *fakeAssistantAPI) ListRunSteps(ctx context.Context, threadID, runID string, pagination openai.Pagination) (openai.RunStepList, error) {
	return openai.RunStepList{RunSteps: []openai.RunStep{{
		ID:   "step_1",
		Type: openai.RunStepTypeMessageCreation,
		StepDetails: openai.StepDetails{
			Type:            openai.RunStepTypeMessageCreation,
			MessageCreation: &openai.StepDetailsMessageCreation{MessageID: "msg_1"},
		},
	}}}, nil
}

func (f *fakeAssistantAPI) RetrieveRunStep(ctx context.Context, threadID, runID, stepID string) (openai.RunStep, error) {
	steps, _ := f.ListRunSteps(ctx, threadID, runID, openai.Pagination{})
	return steps.RunSteps[0], nil
}

func (f *fakeAssistantAPI) SubmitToolOutputs(ctx context.Context, threadID, runID string, request openai.SubmitToolOutputsRequest) (openai.Run, error) {
	return openai.Run{ID: runID, Status: openai.RunStatusCompleted}, nil
}

type staticRasterizer struct{ pages []string }

func (s *staticRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	return s.pages, nil
}

type staticRecognizer struct{ text string }

func (s *staticRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	return s.text, nil
}

func newTestServer(t *testing.T, api *fakeAssistantAPI) *httptest.Server {
	t.Helper()

	driver := assistant.NewDriver(api, tools.NewService(), assistant.DriverConfig{
		AssistantID:  "asst_test",
		Author:       "Hematology Assistant",
		PollInterval: time.Millisecond,
		PollTimeout:  5 * time.Second,
	})

	svcs := services.New(
		session.NewService(nil, api),
		upload.NewService([]string{"application/pdf"}),
		ocr.NewService(&staticRasterizer{pages: []string{"p1"}}, &staticRecognizer{text: "Result: 5.2"}),
		tools.NewService(),
		driver,
	)

	router := mux.NewRouter()
	RegisterRoutes(router, svcs)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func startSession(t *testing.T, server *httptest.Server) *http.Cookie {
	t.Helper()

	resp, err := http.Post(server.URL+"/session", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == config.GetSessionCookieName() {
			return cookie
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func dialChat(t *testing.T, server *httptest.Server, cookie *http.Cookie) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	header := http.Header{}
	header.Add("Cookie", cookie.Name+"="+cookie.Value)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) chat.ServerEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event chat.ServerEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestChatTurnRoundTrip(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "Hello", "suggestions": ["A", "B"]}`}
	server := newTestServer(t, api)

	cookie := startSession(t, server)
	conn := dialChat(t, server, cookie)

	require.NoError(t, conn.WriteJSON(chat.ClientEvent{
		Type:    chat.EventUserMessage,
		Content: "what does this mean?",
	}))

	started := readEvent(t, conn)
	assert.Equal(t, chat.EventStep, started.Type)
	assert.Equal(t, "started", started.Step.Status)

	msg := readEvent(t, conn)
	require.Equal(t, chat.EventMessage, msg.Type)
	assert.Equal(t, "Hematology Assistant", msg.Message.Author)
	assert.Equal(t, "Hello", msg.Message.Content)
	require.Len(t, msg.Message.Actions, 2)
	assert.Equal(t, "A", msg.Message.Actions[0].Label)

	finished := readEvent(t, conn)
	assert.Equal(t, chat.EventStep, finished.Type)
	assert.Equal(t, "completed", finished.Step.Status)

	assert.Equal(t, "what does this mean?", api.lastUserPrompt)
}

func TestChatUploadIsExtractedIntoPrompt(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "Looks fine"}`}
	server := newTestServer(t, api)

	cookie := startSession(t, server)
	conn := dialChat(t, server, cookie)

	require.NoError(t, conn.WriteJSON(chat.ClientEvent{
		Type:    chat.EventUserMessage,
		Content: "interpret this report",
		Files: []chat.FileUpload{
			{Name: "cbc.pdf", MIME: "application/pdf", Data: []byte("%PDF-1.4 fake")},
		},
	}))

	// started step, message, completed step
	readEvent(t, conn)
	msg := readEvent(t, conn)
	require.Equal(t, chat.EventMessage, msg.Type)
	readEvent(t, conn)

	assert.Contains(t, api.lastUserPrompt, "interpret this report\n PDF Given: ")
	assert.Contains(t, api.lastUserPrompt, "---cbc.pdf---\nResult: 5.2 [NEW PAGE] \n---END cbc.pdf---")
}

func TestChatRejectsUnsupportedUploadButContinuesTurn(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "No document seen"}`}
	server := newTestServer(t, api)

	cookie := startSession(t, server)
	conn := dialChat(t, server, cookie)

	require.NoError(t, conn.WriteJSON(chat.ClientEvent{
		Type:    chat.EventUserMessage,
		Content: "interpret this",
		Files: []chat.FileUpload{
			{Name: "photo.png", MIME: "image/png", Data: []byte("not a pdf")},
		},
	}))

	notice := readEvent(t, conn)
	require.Equal(t, chat.EventMessage, notice.Type)
	assert.Equal(t, "You", notice.Message.Author)
	assert.Contains(t, notice.Message.Content, "application/pdf")

	// The turn still runs, just without document context
	started := readEvent(t, conn)
	assert.Equal(t, chat.EventStep, started.Type)
	msg := readEvent(t, conn)
	require.Equal(t, chat.EventMessage, msg.Type)
	assert.Equal(t, "No document seen", msg.Message.Content)

	assert.Equal(t, "interpret this", api.lastUserPrompt)
	assert.NotContains(t, api.lastUserPrompt, "PDF Given")
}

func TestChatActionReplaysSuggestion(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "Follow-up answer"}`}
	server := newTestServer(t, api)

	cookie := startSession(t, server)
	conn := dialChat(t, server, cookie)

	require.NoError(t, conn.WriteJSON(chat.ClientEvent{
		Type:   chat.EventAction,
		Action: &chat.Action{Name: "run_suggestion", Value: "run", Label: "Explain RBC count"},
	}))

	echo := readEvent(t, conn)
	require.Equal(t, chat.EventMessage, echo.Type)
	assert.Equal(t, "You", echo.Message.Author)
	assert.Equal(t, "Explain RBC count", echo.Message.Content)

	readEvent(t, conn) // started step
	answer := readEvent(t, conn)
	require.Equal(t, chat.EventMessage, answer.Type)
	assert.Equal(t, "Follow-up answer", answer.Message.Content)

	assert.Equal(t, "Explain RBC count", api.lastUserPrompt)
}

func TestChatUnknownActionYieldsError(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "x"}`}
	server := newTestServer(t, api)

	cookie := startSession(t, server)
	conn := dialChat(t, server, cookie)

	require.NoError(t, conn.WriteJSON(chat.ClientEvent{
		Type:   chat.EventAction,
		Action: &chat.Action{Name: "self_destruct"},
	}))

	event := readEvent(t, conn)
	assert.Equal(t, chat.EventError, event.Type)
}

func TestChatInvalidEventType(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "x"}`}
	server := newTestServer(t, api)

	cookie := startSession(t, server)
	conn := dialChat(t, server, cookie)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "telepathy"}))

	event := readEvent(t, conn)
	assert.Equal(t, chat.EventError, event.Type)
}

func TestChatRequiresSession(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "x"}`}
	server := newTestServer(t, api)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	api := &fakeAssistantAPI{payload: `{"message": "x"}`}
	server := newTestServer(t, api)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
