package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	orchestratorx "github.com/PH536-UI/mr-dom-ph-copilot/agent/agents/orchestrator"
)

type fakeOrchestrator struct {
	reply    orchestratorx.Reply
	err      error
	endErr   error
	sessions []string
	messages []string
	ended    []string
}

func (f *fakeOrchestrator) HandleMessage(_ context.Context, sessionID, text string) (orchestratorx.Reply, error) {
	f.sessions = append(f.sessions, sessionID)
	f.messages = append(f.messages, text)
	if f.err != nil {
		return orchestratorx.Reply{}, f.err
	}
	return f.reply, nil
}

func (f *fakeOrchestrator) EndSession(_ context.Context, sessionID string) error {
	f.ended = append(f.ended, sessionID)
	return f.endErr
}

func newTestRouter(orch *fakeOrchestrator) http.Handler {
	return NewRouter(NewHandlers(orch))
}

func TestHandleRoot(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(&fakeOrchestrator{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Mr. DOM PH Copilot API está online!" {
		t.Fatalf("unexpected message: %s", body["message"])
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id header")
	}
}

func TestHandleProcessMessage(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{reply: orchestratorx.Reply{
		Message:   "Pontuação atualizada.",
		Agent:     "crm_marketing",
		ToolsUsed: []string{"crm.update_lead_score"},
	}}

	req := httptest.NewRequest(http.MethodPost, "/process_message",
		strings.NewReader(`{"session_id":"s-1","message":"atualize o score"}`))
	rec := httptest.NewRecorder()
	newTestRouter(orch).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	var body processMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Reply != "Pontuação atualizada." || body.Agent != "crm_marketing" {
		t.Fatalf("unexpected body: %#v", body)
	}
	if len(orch.sessions) != 1 || orch.sessions[0] != "s-1" {
		t.Fatalf("unexpected sessions: %#v", orch.sessions)
	}
}

func TestHandleProcessMessageValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{"missing session", `{"message":"oi"}`},
		{"missing message", `{"session_id":"s-1"}`},
		{"invalid json", `{not json`},
		{"unknown field", `{"session_id":"s-1","message":"oi","extra":1}`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/process_message", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			newTestRouter(&fakeOrchestrator{}).ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandleProcessMessageOrchestratorError(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{err: errors.New("model down")}
	req := httptest.NewRequest(http.MethodPost, "/process_message",
		strings.NewReader(`{"session_id":"s-1","message":"oi"}`))
	rec := httptest.NewRecorder()
	newTestRouter(orch).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHandleProcessMessageMethodNotAllowed(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newTestRouter(&fakeOrchestrator{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process_message", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if rec.Header().Get("Allow") != http.MethodPost {
		t.Fatalf("Allow = %q, want POST", rec.Header().Get("Allow"))
	}
}

func TestHandleEndSession(t *testing.T) {
	t.Parallel()

	orch := &fakeOrchestrator{}
	req := httptest.NewRequest(http.MethodPost, "/end_session", strings.NewReader(`{"session_id":"s-1"}`))
	rec := httptest.NewRecorder()
	newTestRouter(orch).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(orch.ended) != 1 || orch.ended[0] != "s-1" {
		t.Fatalf("unexpected ended sessions: %#v", orch.ended)
	}
}
