package specialist

import (
	"context"
	"fmt"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	promptx "github.com/PH536-UI/mr-dom-ph-copilot/agent/prompt"
	openrouterx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/openrouter"
)

type registryImpl struct {
	greeting     contractx.Agent
	crmMarketing contractx.Agent
}

func (r *registryImpl) Greeting() contractx.Agent {
	return r.greeting
}

func (r *registryImpl) CRMMarketing() contractx.Agent {
	return r.crmMarketing
}

// NewRegistry builds both agents against one OpenRouter model config.
func NewRegistry(ctx context.Context, cfg openrouterx.Config, tools contractx.ToolGateway) (contractx.Registry, error) {
	prompts := promptx.LoadPromptSet()

	chatModel, err := cfg.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create chat model: %v", contractx.ErrModelInvoke, err)
	}

	greeting, err := newGreetingAgent(ctx, chatModel, prompts.Greeting)
	if err != nil {
		return nil, err
	}

	crmMarketing, err := newCRMMarketingAgent(ctx, chatModel, prompts.CRMMarketing, prompts.CRMMarketingFinalize, tools)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		greeting:     greeting,
		crmMarketing: crmMarketing,
	}, nil
}
