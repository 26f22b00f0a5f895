package assistant

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// API is the subset of the OpenAI Assistants client the run driver relies
// on. *openai.Client satisfies it; tests script it.
type API interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	RetrieveMessage(ctx context.Context, threadID, messageID string) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	ListRunSteps(ctx context.Context, threadID, runID string, pagination openai.Pagination) (openai.RunStepList, error)
	RetrieveRunStep(ctx context.Context, threadID, runID, stepID string) (openai.RunStep, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, request openai.SubmitToolOutputsRequest) (openai.Run, error)
}
