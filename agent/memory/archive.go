package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ArchivedEntry is the durable copy of a journal entry kept in Postgres after
// a conversation ends. The hot path never touches it.
type ArchivedEntry struct {
	bun.BaseModel `bun:"table:conversation_entries,alias:ce"`

	ID         string    `bun:"id,pk"`
	SessionID  string    `bun:"session_id,notnull"`
	Role       string    `bun:"role,notnull"`
	Content    string    `bun:"content"`
	SpokenAt   time.Time `bun:"spoken_at,notnull"`
	ArchivedAt time.Time `bun:"archived_at,nullzero,notnull,default:current_timestamp"`
}

type ArchiveConfig struct {
	DSN string `envconfig:"DSN" split_words:"true" required:"true"`
}

// Archive writes finished conversations to Postgres through bun.
type Archive struct {
	db *bun.DB
}

func NewArchive(cfg ArchiveConfig) (*Archive, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("archive dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return NewArchiveWithDB(bun.NewDB(sqldb, pgdialect.New())), nil
}

func NewArchiveWithDB(db *bun.DB) *Archive {
	return &Archive{db: db}
}

// Close releases the underlying connection pool.
func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Store persists every entry of the snapshot. Re-archiving a session is safe:
// entry ids are primary keys and conflicts are ignored.
func (a *Archive) Store(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if strings.TrimSpace(snap.SessionID) == "" {
		return ErrInvalidSession
	}
	if len(snap.Entries) == 0 {
		return nil
	}

	rows := make([]ArchivedEntry, 0, len(snap.Entries))
	for _, e := range snap.Entries {
		rows = append(rows, ArchivedEntry{
			ID:        e.ID,
			SessionID: snap.SessionID,
			Role:      e.Role,
			Content:   e.Content,
			SpokenAt:  e.At,
		})
	}

	if _, err := a.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("archive session %s: %w", snap.SessionID, err)
	}
	return nil
}

// RecentBySession returns up to limit archived entries for a session, newest
// first.
func (a *Archive) RecentBySession(ctx context.Context, sessionID string, limit int) ([]ArchivedEntry, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidSession
	}
	if limit <= 0 {
		limit = 50
	}

	var rows []ArchivedEntry
	if err := a.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		Order("spoken_at DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load archived session %s: %w", sessionID, err)
	}
	return rows, nil
}

// EnsureSchema creates the archive table when it does not exist yet.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	if _, err := a.db.NewCreateTable().
		Model((*ArchivedEntry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}
