package orchestrator

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	memoryx "github.com/PH536-UI/mr-dom-ph-copilot/agent/memory"
	webhookx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/webhook"
)

type fakeAgent struct {
	resp  contractx.AgentResponse
	err   error
	calls []contractx.AgentRequest
}

func (f *fakeAgent) Run(_ context.Context, req contractx.AgentRequest) (contractx.AgentResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return contractx.AgentResponse{}, f.err
	}
	return f.resp, nil
}

type fakeRegistry struct {
	greeting     *fakeAgent
	crmMarketing *fakeAgent
}

func (f *fakeRegistry) Greeting() contractx.Agent     { return f.greeting }
func (f *fakeRegistry) CRMMarketing() contractx.Agent { return f.crmMarketing }

type fakeStore struct {
	snapshots map[string]*memoryx.Snapshot
	loadErr   error
	saves     int
	deletes   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{snapshots: make(map[string]*memoryx.Snapshot)}
}

func (f *fakeStore) Load(_ context.Context, sessionID string) (*memoryx.Snapshot, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	snap, ok := f.snapshots[sessionID]
	if !ok {
		return nil, memoryx.ErrSnapshotNotFound
	}
	return snap, nil
}

func (f *fakeStore) Save(_ context.Context, snap *memoryx.Snapshot) error {
	f.saves++
	f.snapshots[snap.SessionID] = snap
	return nil
}

func (f *fakeStore) Delete(_ context.Context, sessionID string) error {
	f.deletes = append(f.deletes, sessionID)
	delete(f.snapshots, sessionID)
	return nil
}

type fakeNotifier struct {
	notifications []webhookx.Notification
	err           error
}

func (f *fakeNotifier) Notify(_ context.Context, n webhookx.Notification) error {
	f.notifications = append(f.notifications, n)
	return f.err
}

type fakeArchive struct {
	stored []*memoryx.Snapshot
	err    error
}

func (f *fakeArchive) Store(_ context.Context, snap *memoryx.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, snap)
	return nil
}

func newTestOrchestrator(t *testing.T, registry *fakeRegistry, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := New(registry, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}

func TestHandleMessageRoutesGreeting(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "Olá!"}},
		crmMarketing: &fakeAgent{},
	}
	o := newTestOrchestrator(t, registry)

	reply, err := o.HandleMessage(context.Background(), "session-1", "oi, tudo bem?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply.Message != "Olá!" {
		t.Fatalf("reply = %q, want Olá!", reply.Message)
	}
	if reply.Agent != string(contractx.AgentTypeGreeting) {
		t.Fatalf("agent = %s, want greeting", reply.Agent)
	}
	if len(registry.greeting.calls) != 1 || len(registry.crmMarketing.calls) != 0 {
		t.Fatalf("unexpected dispatch: greeting=%d crm=%d", len(registry.greeting.calls), len(registry.crmMarketing.calls))
	}
}

func TestHandleMessageRoutesCRMMarketing(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting: &fakeAgent{},
		crmMarketing: &fakeAgent{resp: contractx.AgentResponse{
			Message:   "Pontuação atualizada para 90.",
			ToolsUsed: []string{"crm.update_lead_score"},
		}},
	}
	o := newTestOrchestrator(t, registry)

	reply, err := o.HandleMessage(context.Background(), "session-1", "atualize o score do lead joao@acme.com.br para 90")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply.Agent != string(contractx.AgentTypeCRMMarketing) {
		t.Fatalf("agent = %s, want crm_marketing", reply.Agent)
	}
	if len(reply.ToolsUsed) != 1 || reply.ToolsUsed[0] != "crm.update_lead_score" {
		t.Fatalf("unexpected tools used: %#v", reply.ToolsUsed)
	}
}

func TestHandleMessageValidation(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{greeting: &fakeAgent{}, crmMarketing: &fakeAgent{}}
	o := newTestOrchestrator(t, registry)

	if _, err := o.HandleMessage(context.Background(), "  ", "oi"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("error = %v, want ErrInvalidSession", err)
	}
	if _, err := o.HandleMessage(context.Background(), "session-1", "  "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("error = %v, want ErrInvalidMessage", err)
	}
}

func TestHandleMessageJournalsAndPersists(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "Olá!"}},
		crmMarketing: &fakeAgent{},
	}
	store := newFakeStore()
	o := newTestOrchestrator(t, registry, WithStore(store))

	if _, err := o.HandleMessage(context.Background(), "session-1", "bom dia"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if store.saves != 1 {
		t.Fatalf("store saves = %d, want 1", store.saves)
	}
	snap := store.snapshots["session-1"]
	if snap == nil || len(snap.Entries) != 2 {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
	if snap.Entries[0].Role != memoryx.RoleUser || snap.Entries[1].Role != memoryx.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", snap.Entries[0].Role, snap.Entries[1].Role)
	}
}

func TestHandleMessageRestoresJournalFromStore(t *testing.T) {
	t.Parallel()

	seed := memoryx.NewJournal("session-7")
	seed.AppendUser("oi")
	seed.AppendAssistant("olá")

	store := newFakeStore()
	store.snapshots["session-7"] = seed.Snapshot()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "de novo!"}},
		crmMarketing: &fakeAgent{},
	}
	o := newTestOrchestrator(t, registry, WithStore(store))

	if _, err := o.HandleMessage(context.Background(), "session-7", "bom dia"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	req := registry.greeting.calls[0]
	if req.MemorySummary == "nova conversa, sem historico" {
		t.Fatal("memory summary should reflect the restored journal")
	}
	if got := len(store.snapshots["session-7"].Entries); got != 4 {
		t.Fatalf("snapshot has %d entries, want 4", got)
	}
}

func TestHandleMessageNotifiesWebhook(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "Olá!"}},
		crmMarketing: &fakeAgent{},
	}
	notifier := &fakeNotifier{}
	o := newTestOrchestrator(t, registry, WithNotifier(notifier))

	if _, err := o.HandleMessage(context.Background(), "session-1", "bom dia"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(notifier.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.notifications))
	}
	n := notifier.notifications[0]
	if n.SessionID != "session-1" || n.Input != "bom dia" || n.Reply != "Olá!" {
		t.Fatalf("unexpected notification: %#v", n)
	}
	if n.Agent != string(contractx.AgentTypeGreeting) {
		t.Fatalf("notification agent = %s, want greeting", n.Agent)
	}
}

func TestHandleMessageNotifierFailureDoesNotFailTurn(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "Olá!"}},
		crmMarketing: &fakeAgent{},
	}
	notifier := &fakeNotifier{err: errors.New("webhook down")}
	o := newTestOrchestrator(t, registry, WithNotifier(notifier))

	reply, err := o.HandleMessage(context.Background(), "session-1", "bom dia")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply.Message != "Olá!" {
		t.Fatalf("reply = %q, want Olá!", reply.Message)
	}
}

func TestHandleMessageAgentError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("model unavailable")
	registry := &fakeRegistry{
		greeting:     &fakeAgent{err: wantErr},
		crmMarketing: &fakeAgent{},
	}
	store := newFakeStore()
	o := newTestOrchestrator(t, registry, WithStore(store))

	_, err := o.HandleMessage(context.Background(), "session-1", "bom dia")
	if !errors.Is(err, wantErr) {
		t.Fatalf("error = %v, want %v", err, wantErr)
	}
	if store.saves != 0 {
		t.Fatal("failed turn must not be journaled")
	}
}

func TestEndSessionArchivesAndClears(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "Olá!"}},
		crmMarketing: &fakeAgent{},
	}
	store := newFakeStore()
	archive := &fakeArchive{}
	o := newTestOrchestrator(t, registry, WithStore(store), WithArchive(archive))

	if _, err := o.HandleMessage(context.Background(), "session-1", "bom dia"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if err := o.EndSession(context.Background(), "session-1"); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	if len(archive.stored) != 1 || len(archive.stored[0].Entries) != 2 {
		t.Fatalf("unexpected archive: %#v", archive.stored)
	}
	if len(store.deletes) != 1 || store.deletes[0] != "session-1" {
		t.Fatalf("unexpected deletes: %#v", store.deletes)
	}

	// A new message after EndSession starts a fresh journal.
	if _, err := o.HandleMessage(context.Background(), "session-1", "oi de novo"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := len(store.snapshots["session-1"].Entries); got != 2 {
		t.Fatalf("snapshot has %d entries, want 2", got)
	}
}

func TestEndSessionArchiveFailure(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{
		greeting:     &fakeAgent{resp: contractx.AgentResponse{Message: "Olá!"}},
		crmMarketing: &fakeAgent{},
	}
	archive := &fakeArchive{err: errors.New("pg down")}
	o := newTestOrchestrator(t, registry, WithArchive(archive))

	if _, err := o.HandleMessage(context.Background(), "session-1", "bom dia"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if err := o.EndSession(context.Background(), "session-1"); err == nil {
		t.Fatal("expected archive error")
	}
}
