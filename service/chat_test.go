package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/ridwantaufk/todolist-with-chat/errs"
	"github.com/ridwantaufk/todolist-with-chat/models"
)

type fakeStore struct {
	appended  []models.Message
	history   []models.Message
	appendErr error
	queryErr  error
}

func (f *fakeStore) Append(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	if f.appendErr != nil {
		return models.Message{}, f.appendErr
	}
	msg := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	f.appended = append(f.appended, msg)
	return msg, nil
}

func (f *fakeStore) Query(ctx context.Context, a, b string) ([]models.Message, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.history, nil
}

func TestChat_Compose_Appends_For_The_Caller(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{}
	svc := NewChat(st)

	// When the caller composes without a body sender
	msg, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{
		Text:       "hello",
		ReceiverID: "bob",
	})

	// Then the sender defaults to the caller
	req.NoError(err)
	req.Equal("alice", msg.SenderID)
	req.Equal("bob", msg.ReceiverID)
	req.Len(st.appended, 1)
}

func TestChat_Compose_Accepts_Matching_Body_Sender(t *testing.T) {
	req := require.New(t)
	svc := NewChat(&fakeStore{})

	msg, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{
		Text:       "hello",
		ReceiverID: "bob",
		SenderID:   "alice",
	})

	req.NoError(err)
	req.Equal("alice", msg.SenderID)
}

func TestChat_Compose_Rejects_Sender_Mismatch(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{}
	svc := NewChat(st)

	// When the body claims a different sender than the caller
	_, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{
		Text:       "hello",
		ReceiverID: "bob",
		SenderID:   "mallory",
	})

	// Then nothing is appended
	req.ErrorIs(err, errs.ErrSenderMismatch)
	req.Empty(st.appended)
}

func TestChat_Compose_Rejects_Missing_Receiver(t *testing.T) {
	req := require.New(t)
	svc := NewChat(&fakeStore{})

	_, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{Text: "hello"})

	req.ErrorIs(err, errs.ErrMissingReceiver)
}

func TestChat_Compose_Rejects_Empty_And_Whitespace_Text(t *testing.T) {
	req := require.New(t)
	st := &fakeStore{}
	svc := NewChat(st)

	for _, text := range []string{"", "   ", "\t\n"} {
		_, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{
			Text:       text,
			ReceiverID: "bob",
		})
		req.ErrorIs(err, errs.ErrEmptyText)
	}
	req.Empty(st.appended)
}

func TestChat_Compose_Rejects_Self_Message(t *testing.T) {
	req := require.New(t)
	svc := NewChat(&fakeStore{})

	_, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{
		Text:       "note to self",
		ReceiverID: "alice",
	})

	req.ErrorIs(err, errs.ErrSelfMessage)
}

func TestChat_Compose_Propagates_Storage_Failure(t *testing.T) {
	req := require.New(t)
	boom := errors.New("disk full")
	svc := NewChat(&fakeStore{appendErr: boom})

	_, err := svc.Compose(context.Background(), "alice", models.ComposeRequest{
		Text:       "hello",
		ReceiverID: "bob",
	})

	req.ErrorIs(err, boom)
}

func TestChat_History_Requires_Both_Identities(t *testing.T) {
	req := require.New(t)
	svc := NewChat(&fakeStore{})

	_, err := svc.History(context.Background(), "alice", "")
	req.ErrorIs(err, errs.ErrMissingCounterpart)

	_, err = svc.History(context.Background(), "", "bob")
	req.ErrorIs(err, errs.ErrMissingCounterpart)
}

func TestChat_History_Returns_Empty_Slice_Not_Nil(t *testing.T) {
	req := require.New(t)
	svc := NewChat(&fakeStore{history: nil})

	messages, err := svc.History(context.Background(), "alice", "bob")

	req.NoError(err)
	req.NotNil(messages)
	req.Empty(messages)
}
