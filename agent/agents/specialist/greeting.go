package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
)

type greetingAgent struct {
	runner compose.Runnable[map[string]any, greetingLLMOutput]
}

type greetingLLMOutput struct {
	Message string `json:"message"`
}

func newGreetingAgent(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string) (*greetingAgent, error) {
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: greeting prompt", contractx.ErrPromptMissing)
	}
	runner, err := compileStructuredLLMGraph[greetingLLMOutput](ctx, chatModel, systemPrompt, "greeting.model_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile greeting graph: %v", contractx.ErrModelInvoke, err)
	}
	return &greetingAgent{runner: runner}, nil
}

func (a *greetingAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	payload := map[string]any{
		"user_message":   req.UserMessage,
		"memory_summary": req.MemorySummary,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: marshal greeting payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.runner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("%w: greeting invoke: %v", contractx.ErrModelInvoke, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: greeting message is empty", contractx.ErrSchemaViolation)
	}

	return contractx.AgentResponse{Message: message}, nil
}
