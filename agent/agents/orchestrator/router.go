package orchestrator

import (
	"strings"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
)

// crmKeywords routes a message to the CRM/marketing agent. Matching is a
// plain substring scan over the lowercased message; anything ambiguous stays
// with the greeting agent, which knows how to ask for clarification.
var crmKeywords = []string{
	"vtiger",
	"mautic",
	"crm",
	"lead",
	"score",
	"pontuação",
	"pontuacao",
	"tag",
	"contato",
	"contact",
	"segmento",
	"segment",
	"email",
	"e-mail",
	"@",
}

// Route picks the agent for a user message.
func Route(text string) contractx.AgentType {
	lowered := strings.ToLower(text)
	for _, kw := range crmKeywords {
		if strings.Contains(lowered, kw) {
			return contractx.AgentTypeCRMMarketing
		}
	}
	return contractx.AgentTypeGreeting
}
