package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Entry is one journaled conversation turn.
type Entry struct {
	ID      string    `json:"id"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Journal is the in-process conversation log for one session. Safe for
// concurrent use.
type Journal struct {
	mu        sync.Mutex
	sessionID string
	entries   []Entry
}

func NewJournal(sessionID string) *Journal {
	return &Journal{sessionID: strings.TrimSpace(sessionID)}
}

func (j *Journal) SessionID() string {
	return j.sessionID
}

// Append records a turn and returns the stored entry.
func (j *Journal) Append(role, content string) Entry {
	entry := Entry{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		At:      time.Now().UTC(),
	}

	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()

	return entry
}

func (j *Journal) AppendUser(content string) Entry {
	return j.Append(RoleUser, content)
}

func (j *Journal) AppendAssistant(content string) Entry {
	return j.Append(RoleAssistant, content)
}

// Entries returns a copy of the journal in append order.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Tail returns the most recent n entries, fewer if the journal is shorter.
func (j *Journal) Tail(n int) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n <= 0 || len(j.entries) == 0 {
		return nil
	}
	if n > len(j.entries) {
		n = len(j.entries)
	}
	out := make([]Entry, n)
	copy(out, j.entries[len(j.entries)-n:])
	return out
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *Journal) Clear() {
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Summary aggregates journal stats for prompting and diagnostics.
type Summary struct {
	SessionID         string    `json:"session_id"`
	TotalMessages     int       `json:"total_messages"`
	UserMessages      int       `json:"user_messages"`
	AssistantMessages int       `json:"assistant_messages"`
	StartedAt         time.Time `json:"started_at,omitempty"`
	LastAt            time.Time `json:"last_at,omitempty"`
	LastMessage       string    `json:"last_message,omitempty"`
}

func (j *Journal) Summary() Summary {
	j.mu.Lock()
	defer j.mu.Unlock()

	s := Summary{SessionID: j.sessionID, TotalMessages: len(j.entries)}
	if len(j.entries) == 0 {
		return s
	}

	for _, e := range j.entries {
		switch e.Role {
		case RoleUser:
			s.UserMessages++
		case RoleAssistant:
			s.AssistantMessages++
		}
	}
	s.StartedAt = j.entries[0].At
	last := j.entries[len(j.entries)-1]
	s.LastAt = last.At
	s.LastMessage = last.Content
	return s
}

// Text renders the summary as the compact line handed to the agents.
func (s Summary) Text() string {
	if s.TotalMessages == 0 {
		return "nova conversa, sem historico"
	}
	return fmt.Sprintf("%d mensagens (%d do usuario, %d do assistente); ultima: %s",
		s.TotalMessages, s.UserMessages, s.AssistantMessages, s.LastMessage)
}

// Snapshot is the persisted form of a journal.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	Entries   []Entry   `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (j *Journal) Snapshot() *Snapshot {
	return &Snapshot{
		SessionID: j.sessionID,
		Entries:   j.Entries(),
		UpdatedAt: time.Now().UTC(),
	}
}

// RestoreJournal rebuilds a journal from a stored snapshot.
func RestoreJournal(snap *Snapshot) *Journal {
	if snap == nil {
		return nil
	}
	j := NewJournal(snap.SessionID)
	j.entries = append(j.entries, snap.Entries...)
	return j
}
