package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	memoryx "github.com/PH536-UI/mr-dom-ph-copilot/agent/memory"
)

type GraphInput struct {
	SessionID string
	Text      string
}

type GraphOutput struct {
	Reply     string
	Agent     contractx.AgentType
	ToolsUsed []string
}

type graphState struct {
	SessionID string
	Text      string
	Journal   *memoryx.Journal
	Agent     contractx.AgentType
	Response  contractx.AgentResponse
}

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*graphState, error) {
			sessionID := strings.TrimSpace(in.SessionID)
			if sessionID == "" {
				return nil, ErrInvalidSession
			}
			text := strings.TrimSpace(in.Text)
			if text == "" {
				return nil, ErrInvalidMessage
			}
			return &graphState{SessionID: sessionID, Text: text}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_journal",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			journal, err := o.journalFor(ctx, in.SessionID)
			if err != nil {
				return nil, fmt.Errorf("load journal for session %s: %w", in.SessionID, err)
			}
			in.Journal = journal
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_journal: %w", err)
	}

	if err := graph.AddLambdaNode("route",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			in.Agent = Route(in.Text)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_agent",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			var agent contractx.Agent
			switch in.Agent {
			case contractx.AgentTypeCRMMarketing:
				agent = o.models.CRMMarketing()
			default:
				agent = o.models.Greeting()
			}
			if agent == nil {
				return nil, fmt.Errorf("no agent registered for type %s", in.Agent)
			}

			resp, err := agent.Run(ctx, contractx.AgentRequest{
				SessionID:     in.SessionID,
				UserMessage:   in.Text,
				MemorySummary: in.Journal.Summary().Text(),
			})
			if err != nil {
				return nil, fmt.Errorf("agent %s: %w", in.Agent, err)
			}
			in.Response = resp
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_agent: %w", err)
	}

	if err := graph.AddLambdaNode("journal_turn",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			in.Journal.AppendUser(in.Text)
			in.Journal.AppendAssistant(in.Response.Message)
			o.persist(ctx, in.Journal)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node journal_turn: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (GraphOutput, error) {
			out := GraphOutput{
				Reply:     in.Response.Message,
				Agent:     in.Agent,
				ToolsUsed: in.Response.ToolsUsed,
			}
			o.notify(ctx, in.SessionID, in.Text, Reply{
				Message:   out.Reply,
				Agent:     string(out.Agent),
				ToolsUsed: out.ToolsUsed,
			})
			return out, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_journal"},
		{"load_journal", "route"},
		{"route", "dispatch_agent"},
		{"dispatch_agent", "journal_turn"},
		{"journal_turn", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
