package contract

import (
	"context"

	connectorx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/connector"
)

type Agent interface {
	Run(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

type Registry interface {
	Greeting() Agent
	CRMMarketing() Agent
}

type ToolGateway interface {
	Execute(ctx context.Context, agentType AgentType, reqs []ToolRequest) ([]ToolResult, error)
}

// CRMConnector is the slice of the Vtiger client the tool layer consumes.
type CRMConnector interface {
	RetrieveByEmail(ctx context.Context, email, module string) (connectorx.Record, error)
	UpdateLeadScore(ctx context.Context, email string, score int) (connectorx.Record, error)
}

// MarketingConnector is the slice of the Mautic client the tool layer
// consumes.
type MarketingConnector interface {
	GetContactByEmail(ctx context.Context, email string) (connectorx.Record, error)
	AddTagToContact(ctx context.Context, contactID int, tag string) (connectorx.Record, error)
}
