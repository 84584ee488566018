package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/PH536-UI/mr-dom-ph-copilot/agent/contract"
	memoryx "github.com/PH536-UI/mr-dom-ph-copilot/agent/memory"
	webhookx "github.com/PH536-UI/mr-dom-ph-copilot/pkg/webhook"
)

var (
	ErrInvalidSession = errors.New("session id is empty")
	ErrInvalidMessage = errors.New("user message is empty")
)

// Notifier pushes conversation turns to the automation webhook.
type Notifier interface {
	Notify(ctx context.Context, n webhookx.Notification) error
}

// Archiver receives finished conversations for cold storage.
type Archiver interface {
	Store(ctx context.Context, snap *memoryx.Snapshot) error
}

// Reply is one orchestrated turn outcome.
type Reply struct {
	Message   string   `json:"message"`
	Agent     string   `json:"agent"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// Orchestrator routes each user message to an agent, journals the exchange,
// and fans the turn out to the optional store, archive, and webhook.
type Orchestrator struct {
	models   contractx.Registry
	store    memoryx.Store
	archive  Archiver
	notifier Notifier

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	mu       sync.Mutex
	journals map[string]*memoryx.Journal

	now func() time.Time
}

// Option customizes the orchestrator's optional collaborators.
type Option func(*Orchestrator)

func WithStore(store memoryx.Store) Option {
	return func(o *Orchestrator) {
		if store != nil {
			o.store = store
		}
	}
}

func WithArchive(archive Archiver) Option {
	return func(o *Orchestrator) {
		if archive != nil {
			o.archive = archive
		}
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(o *Orchestrator) {
		if notifier != nil {
			o.notifier = notifier
		}
	}
}

func New(models contractx.Registry, opts ...Option) (*Orchestrator, error) {
	if models == nil {
		return nil, errors.New("agent registry is required")
	}

	o := &Orchestrator{
		models:   models,
		store:    noopStore{},
		notifier: noopNotifier{},
		journals: make(map[string]*memoryx.Journal),
		now:      time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one user turn end to end and returns the agent reply.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (Reply, error) {
	out, err := o.graphRunner.Invoke(ctx, GraphInput{
		SessionID: sessionID,
		Text:      text,
	})
	if err != nil {
		return Reply{}, err
	}
	return Reply{
		Message:   out.Reply,
		Agent:     string(out.Agent),
		ToolsUsed: out.ToolsUsed,
	}, nil
}

// EndSession archives the journal when an archive is configured, then drops
// the session from the store and the in-process cache.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	journal, err := o.journalFor(ctx, sessionID)
	if err != nil {
		return err
	}

	if o.archive != nil && journal.Len() > 0 {
		if err := o.archive.Store(ctx, journal.Snapshot()); err != nil {
			return err
		}
	}

	if err := o.store.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("delete journal snapshot failed")
	}

	o.mu.Lock()
	delete(o.journals, sessionID)
	o.mu.Unlock()

	return nil
}

// journalFor returns the cached journal for the session, loading a stored
// snapshot on first sight.
func (o *Orchestrator) journalFor(ctx context.Context, sessionID string) (*memoryx.Journal, error) {
	o.mu.Lock()
	if j, ok := o.journals[sessionID]; ok {
		o.mu.Unlock()
		return j, nil
	}
	o.mu.Unlock()

	var journal *memoryx.Journal
	snap, err := o.store.Load(ctx, sessionID)
	switch {
	case err == nil:
		journal = memoryx.RestoreJournal(snap)
	case errors.Is(err, memoryx.ErrSnapshotNotFound):
		journal = memoryx.NewJournal(sessionID)
	default:
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.journals[sessionID]; ok {
		return existing, nil
	}
	o.journals[sessionID] = journal
	return journal, nil
}

func (o *Orchestrator) persist(ctx context.Context, journal *memoryx.Journal) {
	if err := o.store.Save(ctx, journal.Snapshot()); err != nil {
		log.Warn().Err(err).Str("session_id", journal.SessionID()).Msg("save journal snapshot failed")
	}
}

func (o *Orchestrator) notify(ctx context.Context, sessionID, input string, reply Reply) {
	err := o.notifier.Notify(ctx, webhookx.Notification{
		SessionID: sessionID,
		Input:     input,
		Reply:     reply.Message,
		Agent:     reply.Agent,
		At:        o.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("webhook notify failed")
	}
}

type noopStore struct{}

func (noopStore) Load(context.Context, string) (*memoryx.Snapshot, error) {
	return nil, memoryx.ErrSnapshotNotFound
}

func (noopStore) Save(context.Context, *memoryx.Snapshot) error { return nil }

func (noopStore) Delete(context.Context, string) error { return nil }

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, webhookx.Notification) error { return nil }
