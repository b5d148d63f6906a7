// Package store persists chat messages in SQLite and couples each committed
// append to exactly one change notification.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ridwantaufk/todolist-with-chat/errs"
	"github.com/ridwantaufk/todolist-with-chat/models"
	"github.com/ridwantaufk/todolist-with-chat/notifier"
)

// timeLayout is RFC3339 with a fixed-width nanosecond fraction. Timestamps
// are compared as text by ORDER BY, so trailing zeros must not be trimmed:
// with variable-width fractions a prefix like ".1Z" sorts after ".15Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	conn *sql.DB
	bus  notifier.Notifier
	log  *slog.Logger
}

// New opens (or creates) the message database at path. Every successful
// append publishes a commit event on bus after the row is durable.
func New(path string, bus notifier.Notifier, log *slog.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=1&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	s := &Store{conn: conn, bus: bus, log: log}
	if err := s.init(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) init() error {
	queries := []string{
		// seq breaks created_at ties in insertion order.
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			sender_id TEXT NOT NULL,
			receiver_id TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, receiver_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, sender_id, created_at)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// Append stores one message and publishes the commit event. The text must be
// non-empty after trimming; the stored body keeps the caller's whitespace.
func (s *Store) Append(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return models.Message{}, errs.ErrEmptyText
	}
	if receiverID == "" {
		return models.Message{}, errs.ErrMissingReceiver
	}

	msg := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.conn.ExecContext(ctx,
		"INSERT INTO messages (id, sender_id, receiver_id, text, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Text, msg.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to insert message: %w", err)
	}

	// The row is durable at this point, so a subscriber's re-query is
	// guaranteed to observe it. A failed publish loses only the signal; the
	// message is recovered by the recipient's next initial load.
	if err := s.bus.Publish(ctx, notifier.Event{SenderID: senderID, ReceiverID: receiverID}); err != nil {
		s.log.Error("failed to publish commit event", "sender", senderID, "receiver", receiverID, "error", err)
	}

	return msg, nil
}

// Query returns all messages between the unordered pair {a, b}, ascending by
// creation time. An empty history is a valid empty result, not an error.
func (s *Store) Query(ctx context.Context, a, b string) ([]models.Message, error) {
	query := `
		SELECT id, sender_id, receiver_id, text, created_at
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := s.conn.QueryContext(ctx, query, a, b, b, a)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var m models.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Text, &createdAt); err != nil {
			return nil, err
		}

		// RFC3339Nano accepts the fixed-width form and stays tolerant of
		// rows imported from sources that trimmed trailing zeros.
		m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
