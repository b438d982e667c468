// Package sqlite provides SQLite-backed persistence for switch flags and contact messages.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dualfolio/dualfolio/internal/application/ports"
	"github.com/dualfolio/dualfolio/internal/domain/entities"
	"github.com/dualfolio/dualfolio/internal/domain/repositories"
	"github.com/dualfolio/dualfolio/internal/domain/values"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS contact_messages (
	id          TEXT PRIMARY KEY,
	persona     TEXT NOT NULL,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	subject     TEXT NOT NULL,
	message     TEXT NOT NULL,
	client_key  TEXT NOT NULL,
	received_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_contact_messages_persona ON contact_messages(persona, received_at);
`

// Ensure interface compliance
var (
	_ ports.KeyValueStore            = (*Store)(nil)
	_ repositories.ContactRepository = (*Store)(nil)
)

// Store implements ports.KeyValueStore and repositories.ContactRepository with SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory if it does not exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	//nolint:gosec // G301: data directory is user-owned
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	var v int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Load returns the payload stored under key.
func (s *Store) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ports.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}
	return value, nil
}

// Store writes the payload for key. Concurrent writers are last-write-wins.
func (s *Store) Store(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store %q: %w", key, err)
	}
	return nil
}

// Save persists a contact message.
func (s *Store) Save(ctx context.Context, msg *entities.ContactMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contact_messages(id, persona, name, email, subject, message, client_key, received_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID.String(), msg.Persona.String(), msg.Name, msg.Email, msg.Subject, msg.Message,
		msg.ClientKey, msg.ReceivedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save contact message: %w", err)
	}
	return nil
}

const selectMessage = `SELECT id, persona, name, email, subject, message, client_key, received_at FROM contact_messages`

// FindByID retrieves a contact message by its unique ID.
func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*entities.ContactMessage, error) {
	rows, err := s.db.QueryContext(ctx, selectMessage+" WHERE id = ?", id.String())
	if err != nil {
		return nil, fmt.Errorf("find contact message: %w", err)
	}
	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("contact message not found: %s", id)
	}
	return msgs[0], nil
}

// FindByPersona retrieves recent messages addressed to a persona, newest first.
func (s *Store) FindByPersona(ctx context.Context, persona string, limit int) ([]*entities.ContactMessage, error) {
	query := selectMessage + " WHERE persona = ? ORDER BY received_at DESC"
	args := []any{persona}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find contact messages by persona: %w", err)
	}
	return scanMessages(rows)
}

// FindBetween retrieves messages received within [start, end], newest first.
func (s *Store) FindBetween(ctx context.Context, start, end time.Time) ([]*entities.ContactMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		selectMessage+" WHERE received_at >= ? AND received_at <= ? ORDER BY received_at DESC",
		start.UnixNano(), end.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("find contact messages between: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]*entities.ContactMessage, error) {
	defer rows.Close()

	var out []*entities.ContactMessage
	for rows.Next() {
		var (
			id, persona string
			receivedAt  int64
			msg         entities.ContactMessage
		)
		if err := rows.Scan(&id, &persona, &msg.Name, &msg.Email, &msg.Subject, &msg.Message,
			&msg.ClientKey, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}

		parsedID, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("scan contact message id %q: %w", id, err)
		}
		pid, err := values.NewPersonaID(persona)
		if err != nil {
			return nil, fmt.Errorf("scan contact message persona: %w", err)
		}

		msg.ID = parsedID
		msg.Persona = pid
		msg.ReceivedAt = time.Unix(0, receivedAt).UTC()
		out = append(out, &msg)
	}
	return out, rows.Err()
}
