package tool

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	connectorx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/connector"
)

type fakeCRM struct {
	retrieveRec connectorx.Record
	retrieveErr error
	updateRec   connectorx.Record
	updateErr   error

	lastEmail  string
	lastModule string
	lastScore  int
}

func (f *fakeCRM) RetrieveByEmail(_ context.Context, email, module string) (connectorx.Record, error) {
	f.lastEmail = email
	f.lastModule = module
	return f.retrieveRec, f.retrieveErr
}

func (f *fakeCRM) UpdateLeadScore(_ context.Context, email string, score int) (connectorx.Record, error) {
	f.lastEmail = email
	f.lastScore = score
	return f.updateRec, f.updateErr
}

type fakeMarketing struct {
	contactRec connectorx.Record
	contactErr error
	tagRec     connectorx.Record
	tagErr     error

	lastEmail string
	lastID    int
	lastTag   string
}

func (f *fakeMarketing) GetContactByEmail(_ context.Context, email string) (connectorx.Record, error) {
	f.lastEmail = email
	return f.contactRec, f.contactErr
}

func (f *fakeMarketing) AddTagToContact(_ context.Context, contactID int, tag string) (connectorx.Record, error) {
	f.lastID = contactID
	f.lastTag = tag
	return f.tagRec, f.tagErr
}

func TestInfosForAgent(t *testing.T) {
	t.Parallel()

	infos := InfosForAgent(contractx.AgentTypeCRMMarketing)
	if len(infos) != 4 {
		t.Fatalf("expected 4 tool infos, got %d", len(infos))
	}
	if infos[0].Name != ToolContactLookup {
		t.Fatalf("unexpected first tool: %s", infos[0].Name)
	}

	greeting := InfosForAgent(contractx.AgentTypeGreeting)
	if len(greeting) != 1 || greeting[0].Name != ToolGreet {
		t.Fatalf("unexpected greeting tools: %#v", greeting)
	}

	if got := InfosForAgent(contractx.AgentType("unknown")); got != nil {
		t.Fatalf("unknown agent must have no tools, got %d", len(got))
	}
}

func TestExecuteGreet(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(&fakeCRM{}, &fakeMarketing{})
	results, err := catalog.Execute(context.Background(), contractx.AgentTypeGreeting, []contractx.ToolRequest{
		{Tool: ToolGreet, Args: map[string]any{"name": "João"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := results[0]
	if res.Result["status"] != connectorx.StatusSuccess {
		t.Fatalf("status = %v, want success", res.Result["status"])
	}
	msg, _ := res.Result["message"].(string)
	if !strings.Contains(msg, "João") {
		t.Fatalf("greeting does not mention the user: %s", msg)
	}
}

func TestExecuteUnavailableTool(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(&fakeCRM{}, &fakeMarketing{})
	results, err := catalog.Execute(context.Background(), contractx.AgentTypeGreeting, []contractx.ToolRequest{
		{Tool: ToolContactLookup, Args: map[string]any{"email": "a@b.com"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error != "tool=crm.contact_lookup is unavailable for agent=greeting" {
		t.Fatalf("unexpected error message: %s", results[0].Error)
	}
}

func TestExecuteContactLookupSuccess(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{retrieveRec: connectorx.Record{"id": "12x7", "email": "joao@acme.com.br"}}
	catalog := NewCatalog(crm, &fakeMarketing{})

	results, err := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolContactLookup, Args: map[string]any{"email": "joao@acme.com.br", "module": "Leads"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := results[0]
	if res.Error != "" {
		t.Fatalf("unexpected tool error: %s", res.Error)
	}
	if res.Result["status"] != connectorx.StatusSuccess {
		t.Fatalf("status = %v, want %v", res.Result["status"], connectorx.StatusSuccess)
	}
	if crm.lastModule != "Leads" {
		t.Fatalf("module = %q, want Leads", crm.lastModule)
	}
	rec, ok := res.Result["record"].(connectorx.Record)
	if !ok || rec["id"] != "12x7" {
		t.Fatalf("unexpected record: %#v", res.Result["record"])
	}
}

func TestExecuteContactLookupNotFound(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{retrieveErr: connectorx.NotFoundf("no Contacts record found with email x@y.com")}
	catalog := NewCatalog(crm, &fakeMarketing{})

	results, _ := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolContactLookup, Args: map[string]any{"email": "x@y.com"}},
	})
	res := results[0]
	if res.Result["status"] != connectorx.StatusNotFound {
		t.Fatalf("status = %v, want %v", res.Result["status"], connectorx.StatusNotFound)
	}
	if res.Result["message"] == "" {
		t.Fatal("expected not-found message")
	}
}

func TestExecuteUpdateLeadScoreCoercesFloatArg(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{updateRec: connectorx.Record{"id": "10x3"}}
	catalog := NewCatalog(crm, &fakeMarketing{})

	results, _ := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolUpdateLeadScore, Args: map[string]any{"email": "x@y.com", "score": float64(85)}},
	})
	if results[0].Error != "" {
		t.Fatalf("unexpected tool error: %s", results[0].Error)
	}
	if crm.lastScore != 85 {
		t.Fatalf("score = %d, want 85", crm.lastScore)
	}
}

func TestExecuteMissingArg(t *testing.T) {
	t.Parallel()

	catalog := NewCatalog(&fakeCRM{}, &fakeMarketing{})
	results, _ := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolUpdateLeadScore, Args: map[string]any{"email": "x@y.com"}},
	})
	if results[0].Error != "score is required" {
		t.Fatalf("unexpected error message: %s", results[0].Error)
	}
}

func TestExecuteAddTagResolvesContactID(t *testing.T) {
	t.Parallel()

	marketing := &fakeMarketing{
		contactRec: connectorx.Record{"id": float64(42), "email": "maria@acme.com.br"},
		tagRec:     connectorx.Record{"id": float64(42), "tags": []any{"vip"}},
	}
	catalog := NewCatalog(&fakeCRM{}, marketing)

	results, _ := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolAddTag, Args: map[string]any{"email": "maria@acme.com.br", "tag": "vip"}},
	})
	res := results[0]
	if res.Error != "" {
		t.Fatalf("unexpected tool error: %s", res.Error)
	}
	if marketing.lastID != 42 {
		t.Fatalf("contact id = %d, want 42", marketing.lastID)
	}
	if marketing.lastTag != "vip" {
		t.Fatalf("tag = %q, want vip", marketing.lastTag)
	}
	if res.Result["status"] != connectorx.StatusSuccess {
		t.Fatalf("status = %v, want success", res.Result["status"])
	}
}

func TestExecuteAddTagContactNotFound(t *testing.T) {
	t.Parallel()

	marketing := &fakeMarketing{contactErr: connectorx.NotFoundf("no contact found with email ghost@acme.com.br")}
	catalog := NewCatalog(&fakeCRM{}, marketing)

	results, _ := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolAddTag, Args: map[string]any{"email": "ghost@acme.com.br", "tag": "vip"}},
	})
	res := results[0]
	if res.Result["status"] != connectorx.StatusNotFound {
		t.Fatalf("status = %v, want not_found", res.Result["status"])
	}
	if marketing.lastID != 0 {
		t.Fatal("tag call must not happen when the contact is missing")
	}
}

func TestExecuteErrorStatusCarriesCode(t *testing.T) {
	t.Parallel()

	crm := &fakeCRM{retrieveErr: connectorx.APIError("INVALID_SESSIONID", "session expired", 200)}
	catalog := NewCatalog(crm, &fakeMarketing{})

	results, _ := catalog.Execute(context.Background(), contractx.AgentTypeCRMMarketing, []contractx.ToolRequest{
		{Tool: ToolContactLookup, Args: map[string]any{"email": "x@y.com"}},
	})
	res := results[0]
	if res.Result["status"] != connectorx.StatusError {
		t.Fatalf("status = %v, want error", res.Result["status"])
	}
	if res.Result["code"] != "INVALID_SESSIONID" {
		t.Fatalf("code = %v, want INVALID_SESSIONID", res.Result["code"])
	}
}
