package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ridwantaufk/todolist-with-chat/errs"
	"github.com/ridwantaufk/todolist-with-chat/notifier"
)

func newTestStore(t *testing.T) (*Store, *notifier.Bus) {
	t.Helper()
	bus := notifier.NewBus()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := New(filepath.Join(t.TempDir(), "chat.db"), bus, log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, bus
}

func TestStore_Append_Then_Query_Returns_Message_Last(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given an existing conversation
	_, err := s.Append(ctx, "alice", "bob", "first")
	req.NoError(err)

	// When a message is appended
	msg, err := s.Append(ctx, "alice", "bob", "second")
	req.NoError(err)
	req.NotEmpty(msg.ID)
	req.False(msg.CreatedAt.IsZero())

	// Then an immediate query returns it as the last element
	messages, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal(msg.ID, messages[1].ID)
	req.Equal("second", messages[1].Text)
}

func TestStore_Query_Is_Symmetric_In_The_Pair(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given messages in both directions
	_, err := s.Append(ctx, "alice", "bob", "hi bob")
	req.NoError(err)
	_, err = s.Append(ctx, "bob", "alice", "hi alice")
	req.NoError(err)

	// When querying either order of the pair
	ab, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)
	ba, err := s.Query(ctx, "bob", "alice")
	req.NoError(err)

	// Then the sequences are identical
	req.Equal(ab, ba)
	req.Len(ab, 2)
}

func TestStore_Query_Is_Idempotent_Without_Writes(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "alice", "bob", "hello")
	req.NoError(err)

	first, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)
	second, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)

	req.Equal(first, second)
}

func TestStore_Query_Excludes_Other_Pairs(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "alice", "bob", "for bob")
	req.NoError(err)
	_, err = s.Append(ctx, "alice", "carol", "for carol")
	req.NoError(err)

	messages, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal("for bob", messages[0].Text)
}

func TestStore_Query_Empty_History_Is_Empty_Not_Error(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)

	messages, err := s.Query(context.Background(), "alice", "bob")

	req.NoError(err)
	req.NotNil(messages)
	req.Empty(messages)
}

func TestStore_Append_Rejects_Whitespace_Text(t *testing.T) {
	req := require.New(t)
	s, bus := newTestStore(t)
	ctx := context.Background()

	// Given a subscriber watching for commit events
	published := 0
	sub := bus.Subscribe(func(ev notifier.Event) { published++ })
	defer sub.Cancel()

	// When appending whitespace-only text
	_, err := s.Append(ctx, "alice", "bob", "   \t\n")

	// Then the append fails, nothing is stored and nothing is published
	req.ErrorIs(err, errs.ErrEmptyText)
	messages, qerr := s.Query(ctx, "alice", "bob")
	req.NoError(qerr)
	req.Empty(messages)
	req.Zero(published)
}

func TestStore_Append_Rejects_Missing_Receiver(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)

	_, err := s.Append(context.Background(), "alice", "", "hello")

	req.ErrorIs(err, errs.ErrMissingReceiver)
}

func TestStore_Append_Publishes_After_The_Row_Is_Durable(t *testing.T) {
	req := require.New(t)
	s, bus := newTestStore(t)
	ctx := context.Background()

	// Given a subscriber that re-queries on notification, like a live stream
	var events []notifier.Event
	var seenOnNotify int
	sub := bus.Subscribe(func(ev notifier.Event) {
		events = append(events, ev)
		messages, err := s.Query(ctx, "alice", "bob")
		req.NoError(err)
		seenOnNotify = len(messages)
	})
	defer sub.Cancel()

	// When a message is appended
	_, err := s.Append(ctx, "alice", "bob", "hi")
	req.NoError(err)

	// Then exactly one event carrying the pair was published,
	// and the triggering write was already visible to the re-query
	req.Len(events, 1)
	req.Equal(notifier.Event{SenderID: "alice", ReceiverID: "bob"}, events[0])
	req.Equal(1, seenOnNotify)
}

// insertAt writes a row with a controlled creation time, bypassing Append's
// clock, so same-second fractional timestamps can be pinned down.
func insertAt(t *testing.T, s *Store, sender, receiver, text string, at time.Time) {
	t.Helper()
	_, err := s.conn.Exec(
		"INSERT INTO messages (id, sender_id, receiver_id, text, created_at) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), sender, receiver, text, at.Format(timeLayout),
	)
	require.NoError(t, err)
}

func TestStore_Query_Orders_Prefix_Fractions_Within_One_Second(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given two messages in the same second whose fractions are a prefix
	// pair (.1s before .15s) — text comparison only orders these when the
	// stored fraction has fixed width
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	insertAt(t, s, "alice", "bob", "first", base.Add(100*time.Millisecond))
	insertAt(t, s, "alice", "bob", "second", base.Add(150*time.Millisecond))

	// When the history is queried
	messages, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)

	// Then creation time still wins
	req.Len(messages, 2)
	req.Equal("first", messages[0].Text)
	req.Equal("second", messages[1].Text)
}

func TestStore_Append_Stores_Fixed_Width_Timestamps(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	msg, err := s.Append(ctx, "alice", "bob", "hello")
	req.NoError(err)

	var createdAt string
	req.NoError(s.conn.QueryRow("SELECT created_at FROM messages WHERE id = ?", msg.ID).Scan(&createdAt))

	// Nine fraction digits and a trailing Z, never trimmed
	req.Equal(msg.CreatedAt.Format(timeLayout), createdAt)
	req.Regexp(`\.\d{9}Z$`, createdAt)
}

func TestStore_Query_Orders_By_Creation_Time_Then_Insertion(t *testing.T) {
	req := require.New(t)
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Given several messages appended in quick succession
	texts := []string{"one", "two", "three", "four"}
	for _, text := range texts {
		_, err := s.Append(ctx, "alice", "bob", text)
		req.NoError(err)
	}

	// When the history is queried
	messages, err := s.Query(ctx, "alice", "bob")
	req.NoError(err)

	// Then insertion order is preserved even under timestamp ties
	req.Len(messages, len(texts))
	for i, text := range texts {
		req.Equal(text, messages[i].Text)
	}
}
