package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	connectorx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/connector"
)

const (
	ToolContactLookup   = "crm.contact_lookup"
	ToolUpdateLeadScore = "crm.update_lead_score"
	ToolSegmentLookup   = "marketing.segment_lookup"
	ToolAddTag          = "marketing.add_tag"
	ToolGreet           = "greeting.greet"
)

// Catalog dispatches tool requests to the CRM and marketing connectors. It is
// the only place where connector errors are folded into the status maps the
// agents reason over.
type Catalog struct {
	crm       contractx.CRMConnector
	marketing contractx.MarketingConnector
}

func NewCatalog(crm contractx.CRMConnector, marketing contractx.MarketingConnector) *Catalog {
	return &Catalog{crm: crm, marketing: marketing}
}

// InfosForAgent returns the tool schemas bound to the given agent. Agents
// without tools get nil.
func InfosForAgent(agentType contractx.AgentType) []*schema.ToolInfo {
	switch agentType {
	case contractx.AgentTypeCRMMarketing:
		return []*schema.ToolInfo{
			{
				Name: ToolContactLookup,
				Desc: "Look up a contact or lead in the Vtiger CRM by email address.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"email":  {Type: schema.String, Desc: "Email address to search for", Required: true},
					"module": {Type: schema.String, Desc: "CRM module, Contacts or Leads. Defaults to Contacts."},
				}),
			},
			{
				Name: ToolUpdateLeadScore,
				Desc: "Update the lead score (0-100) of a Vtiger lead found by email.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"email": {Type: schema.String, Desc: "Email address of the lead", Required: true},
					"score": {Type: schema.Integer, Desc: "New lead score between 0 and 100", Required: true},
				}),
			},
			{
				Name: ToolSegmentLookup,
				Desc: "Look up a marketing contact in Mautic by email address.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"email": {Type: schema.String, Desc: "Email address to search for", Required: true},
				}),
			},
			{
				Name: ToolAddTag,
				Desc: "Add a tag to a Mautic contact found by email.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"email": {Type: schema.String, Desc: "Email address of the contact", Required: true},
					"tag":   {Type: schema.String, Desc: "Tag to add to the contact", Required: true},
				}),
			},
		}
	case contractx.AgentTypeGreeting:
		return []*schema.ToolInfo{
			{
				Name: ToolGreet,
				Desc: "Greet the user by name.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"name": {Type: schema.String, Desc: "Name of the user, when known"},
				}),
			},
		}
	default:
		return nil
	}
}

// Execute runs every request in order and never fails a whole batch because
// one tool failed: per-tool outcomes land in the result entries.
func (c *Catalog) Execute(ctx context.Context, agentType contractx.AgentType, reqs []contractx.ToolRequest) ([]contractx.ToolResult, error) {
	allowed := make(map[string]struct{})
	for _, info := range InfosForAgent(agentType) {
		allowed[info.Name] = struct{}{}
	}

	results := make([]contractx.ToolResult, 0, len(reqs))
	for _, req := range reqs {
		if _, ok := allowed[req.Tool]; !ok {
			results = append(results, contractx.ToolResult{
				Tool:  req.Tool,
				Error: fmt.Sprintf("tool=%s is unavailable for agent=%s", req.Tool, agentType),
			})
			continue
		}
		results = append(results, c.execute(ctx, req))
	}
	return results, nil
}

func (c *Catalog) execute(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	out := contractx.ToolResult{Tool: req.Tool}

	switch req.Tool {
	case ToolContactLookup:
		email, err := stringArg(req.Args, "email")
		if err != nil {
			out.Error = err.Error()
			return out
		}
		module, _ := optionalStringArg(req.Args, "module")
		rec, err := c.crm.RetrieveByEmail(ctx, email, module)
		out.Result = statusMap(rec, err)
	case ToolUpdateLeadScore:
		email, err := stringArg(req.Args, "email")
		if err != nil {
			out.Error = err.Error()
			return out
		}
		score, err := intArg(req.Args, "score")
		if err != nil {
			out.Error = err.Error()
			return out
		}
		rec, err := c.crm.UpdateLeadScore(ctx, email, score)
		out.Result = statusMap(rec, err)
	case ToolSegmentLookup:
		email, err := stringArg(req.Args, "email")
		if err != nil {
			out.Error = err.Error()
			return out
		}
		rec, err := c.marketing.GetContactByEmail(ctx, email)
		out.Result = statusMap(rec, err)
	case ToolAddTag:
		out = c.executeAddTag(ctx, req)
	case ToolGreet:
		greeting := "Olá! Eu sou o Mr. DOM PH Copilot. Como posso ajudar?"
		if name, ok := optionalStringArg(req.Args, "name"); ok && name != "" {
			greeting = fmt.Sprintf("Olá, %s! Eu sou o Mr. DOM PH Copilot. Como posso ajudar?", name)
		}
		out.Result = map[string]any{
			"status":  connectorx.StatusSuccess,
			"message": greeting,
		}
	default:
		out.Error = fmt.Sprintf("unknown tool=%s", req.Tool)
	}

	if out.Result != nil && out.Result["status"] == connectorx.StatusError {
		log.Warn().Str("tool", req.Tool).Interface("result", out.Result).Msg("tool execution failed")
	}
	return out
}

// executeAddTag resolves the contact id by email first since the model only
// ever sees email addresses.
func (c *Catalog) executeAddTag(ctx context.Context, req contractx.ToolRequest) contractx.ToolResult {
	out := contractx.ToolResult{Tool: req.Tool}

	email, err := stringArg(req.Args, "email")
	if err != nil {
		out.Error = err.Error()
		return out
	}
	tag, err := stringArg(req.Args, "tag")
	if err != nil {
		out.Error = err.Error()
		return out
	}

	contact, err := c.marketing.GetContactByEmail(ctx, email)
	if err != nil {
		out.Result = statusMap(nil, err)
		return out
	}

	id, err := recordID(contact)
	if err != nil {
		out.Error = fmt.Sprintf("contact for %s has no usable id: %v", email, err)
		return out
	}

	rec, err := c.marketing.AddTagToContact(ctx, id, tag)
	out.Result = statusMap(rec, err)
	return out
}

// statusMap folds a connector outcome into the uniform shape the agents
// consume: status success | not_found | error, plus record or error detail.
func statusMap(rec connectorx.Record, err error) map[string]any {
	status := connectorx.Status(err)
	m := map[string]any{"status": status}

	switch status {
	case connectorx.StatusSuccess:
		m["record"] = rec
	case connectorx.StatusNotFound:
		m["message"] = err.Error()
	default:
		m["message"] = err.Error()
		if cerr := connectorx.AsError(err); cerr != nil && cerr.Code != "" {
			m["code"] = cerr.Code
		}
	}
	return m
}

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}
	return s, nil
}

func optionalStringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// intArg tolerates the types JSON decoding and LLM tool calls actually
// produce for numbers.
func intArg(args map[string]any, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(n), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

// recordID extracts the numeric id from a connector record.
func recordID(rec connectorx.Record) (int, error) {
	raw, ok := rec["id"]
	if !ok {
		return 0, fmt.Errorf("missing id field")
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("id %q is not numeric", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("id has unsupported type %T", raw)
	}
}
