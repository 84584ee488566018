package contract

type AgentType string

const (
	AgentTypeGreeting     AgentType = "greeting"
	AgentTypeCRMMarketing AgentType = "crm_marketing"
)

// AgentRequest is one user turn handed to an agent by the orchestrator.
type AgentRequest struct {
	SessionID     string `json:"session_id"`
	UserMessage   string `json:"user_message"`
	MemorySummary string `json:"memory_summary,omitempty"`
}

// AgentResponse is the agent's final text plus the tools it went through.
type AgentResponse struct {
	Message   string   `json:"message"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult carries a tool outcome back to the agent. Result is the
// JSON-serializable map the tool layer produced; every connector-backed tool
// puts a "status" discriminator (success | not_found | error) in it. Error is
// reserved for the tool layer itself (unknown tool, bad arguments).
type ToolResult struct {
	Tool   string         `json:"tool"`
	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}
