package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	toolx "github.com/PH536-UI/mr-dom-ph-copilot/agent/tool"
)

// crmMarketingAgent runs one act turn against a tool-calling model, executes
// the requested tools through the gateway, then finalizes the reply with a
// structured turn over the tool results.
type crmMarketingAgent struct {
	toolRunner     compose.Runnable[map[string]any, *schema.Message]
	finalizeRunner compose.Runnable[map[string]any, finalizeLLMOutput]
	tools          contractx.ToolGateway
	allowedTools   map[string]struct{}
}

type finalizeLLMOutput struct {
	Message string `json:"message"`
}

func newCRMMarketingAgent(
	ctx context.Context,
	chatModel einomodel.ToolCallingChatModel,
	actPrompt string,
	finalizePrompt string,
	tools contractx.ToolGateway,
) (*crmMarketingAgent, error) {
	if strings.TrimSpace(actPrompt) == "" || strings.TrimSpace(finalizePrompt) == "" {
		return nil, fmt.Errorf("%w: crm marketing prompts", contractx.ErrPromptMissing)
	}
	if tools == nil {
		return nil, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}

	infos := toolx.InfosForAgent(contractx.AgentTypeCRMMarketing)
	toolModel, err := chatModel.WithTools(infos)
	if err != nil {
		return nil, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
	}

	toolRunner, err := compileToolPlanningGraph(ctx, toolModel, actPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: compile act graph: %v", contractx.ErrModelInvoke, err)
	}
	finalizeRunner, err := compileStructuredLLMGraph[finalizeLLMOutput](ctx, chatModel, finalizePrompt, "crm_marketing.finalize_graph")
	if err != nil {
		return nil, fmt.Errorf("%w: compile finalize graph: %v", contractx.ErrModelInvoke, err)
	}

	allowed := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		if info == nil || strings.TrimSpace(info.Name) == "" {
			continue
		}
		allowed[info.Name] = struct{}{}
	}

	return &crmMarketingAgent{
		toolRunner:     toolRunner,
		finalizeRunner: finalizeRunner,
		tools:          tools,
		allowedTools:   allowed,
	}, nil
}

func (a *crmMarketingAgent) Run(ctx context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	if strings.TrimSpace(req.UserMessage) == "" {
		return contractx.AgentResponse{}, fmt.Errorf("%w: user message is required", contractx.ErrValidation)
	}

	toolRequests, directReply, err := a.plan(ctx, req)
	if err != nil {
		return contractx.AgentResponse{}, err
	}
	if len(toolRequests) == 0 {
		return contractx.AgentResponse{Message: directReply}, nil
	}

	results, err := a.tools.Execute(ctx, contractx.AgentTypeCRMMarketing, toolRequests)
	if err != nil {
		return contractx.AgentResponse{}, fmt.Errorf("execute tools: %w", err)
	}

	message, err := a.finalize(ctx, req, results)
	if err != nil {
		return contractx.AgentResponse{}, err
	}

	used := make([]string, 0, len(toolRequests))
	for _, tr := range toolRequests {
		used = append(used, tr.Tool)
	}

	return contractx.AgentResponse{
		Message:   message,
		ToolsUsed: used,
	}, nil
}

// plan asks the model which tools to run. A reply with no tool calls but
// non-empty content answers the user directly.
func (a *crmMarketingAgent) plan(ctx context.Context, req contractx.AgentRequest) ([]contractx.ToolRequest, string, error) {
	payload := map[string]any{
		"user_message":   req.UserMessage,
		"memory_summary": req.MemorySummary,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: marshal act payload: %v", contractx.ErrValidation, err)
	}

	msg, err := a.toolRunner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: act invoke: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, "", fmt.Errorf("%w: empty act response", contractx.ErrSchemaViolation)
	}

	toolRequests, err := toToolRequests(msg.ToolCalls)
	if err != nil {
		return nil, "", err
	}

	if len(toolRequests) == 0 {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			return nil, "", fmt.Errorf("%w: act turn produced neither tools nor reply", contractx.ErrSchemaViolation)
		}
		return nil, content, nil
	}

	for _, tr := range toolRequests {
		if _, ok := a.allowedTools[tr.Tool]; !ok {
			return nil, "", fmt.Errorf("%w: tool=%s is not allowed for agent=%s", contractx.ErrSchemaViolation, tr.Tool, contractx.AgentTypeCRMMarketing)
		}
	}

	return toolRequests, "", nil
}

func (a *crmMarketingAgent) finalize(ctx context.Context, req contractx.AgentRequest, results []contractx.ToolResult) (string, error) {
	payload := map[string]any{
		"user_message":   req.UserMessage,
		"memory_summary": req.MemorySummary,
		"tool_results":   results,
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal finalize payload: %v", contractx.ErrValidation, err)
	}

	out, err := a.finalizeRunner.Invoke(ctx, map[string]any{
		"input": string(input),
	})
	if err != nil {
		return "", fmt.Errorf("%w: finalize invoke: %v", contractx.ErrModelInvoke, err)
	}

	message := strings.TrimSpace(out.Message)
	if message == "" {
		return "", fmt.Errorf("%w: finalize message is empty", contractx.ErrSchemaViolation)
	}
	return message, nil
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		tool := strings.TrimSpace(call.Function.Name)
		if tool == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		rawArgs := strings.TrimSpace(call.Function.Arguments)
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, tool, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{
			Tool: tool,
			Args: args,
		})
	}
	return reqs, nil
}
