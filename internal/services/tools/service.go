package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Handler executes one named tool call. Arguments is the raw JSON argument
// string supplied by the assistant.
type Handler func(ctx context.Context, arguments string) (string, error)

// Service is the registry of tools a run may request through a
// requires_action status. No tools are registered by default; this is the
// extension point for wiring real tool execution into the run driver.
type Service struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewService() *Service {
	return &Service{
		handlers: make(map[string]Handler),
	}
}

// Register adds or replaces the handler for a named tool.
func (s *Service) Register(name string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[name] = handler
}

// Execute runs every requested tool call and returns exactly one output per
// call. A remote run will not progress until all requested call ids receive
// an output, so failures and unknown tools still produce one.
func (s *Service) Execute(ctx context.Context, calls []openai.ToolCall) []openai.ToolOutput {
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		outputs = append(outputs, openai.ToolOutput{
			ToolCallID: call.ID,
			Output:     s.executeCall(ctx, call),
		})
	}
	return outputs
}

func (s *Service) executeCall(ctx context.Context, call openai.ToolCall) string {
	if call.Type != openai.ToolTypeFunction {
		return fmt.Sprintf("unsupported tool type %q", call.Type)
	}

	s.mu.RLock()
	handler, ok := s.handlers[call.Function.Name]
	s.mu.RUnlock()

	if !ok {
		log.Warn().
			Str("tool", call.Function.Name).
			Msg("Assistant requested a tool with no registered handler")
		return fmt.Sprintf("tool %q is not implemented", call.Function.Name)
	}

	result, err := handler(ctx, call.Function.Arguments)
	if err != nil {
		log.Error().
			Err(err).
			Str("tool", call.Function.Name).
			Msg("Tool call failed")
		return fmt.Sprintf("tool %q failed: %v", call.Function.Name, err)
	}
	return result
}
