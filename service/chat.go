// Package service translates validated compose and history commands into
// store operations.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/ridwantaufk/todolist-with-chat/errs"
	"github.com/ridwantaufk/todolist-with-chat/models"
)

// MessageStore is the store surface the service depends on.
type MessageStore interface {
	Append(ctx context.Context, senderID, receiverID, text string) (models.Message, error)
	Query(ctx context.Context, a, b string) ([]models.Message, error)
}

type Chat struct {
	store    MessageStore
	validate *validator.Validate
}

func NewChat(store MessageStore) *Chat {
	return &Chat{store: store, validate: validator.New()}
}

// Compose validates a compose request on behalf of callerID and appends the
// message. The sender defaults to the caller when the body omits it; a body
// sender that differs from the caller is rejected.
func (s *Chat) Compose(ctx context.Context, callerID string, req models.ComposeRequest) (models.Message, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && lo.ContainsBy(verrs, func(fe validator.FieldError) bool {
			return fe.Field() == "ReceiverID"
		}) {
			return models.Message{}, errs.ErrMissingReceiver
		}
		return models.Message{}, errs.ErrEmptyText
	}

	if strings.TrimSpace(req.Text) == "" {
		return models.Message{}, errs.ErrEmptyText
	}

	senderID := req.SenderID
	if senderID == "" {
		senderID = callerID
	}
	if senderID != callerID {
		return models.Message{}, errs.ErrSenderMismatch
	}
	if senderID == req.ReceiverID {
		return models.Message{}, errs.ErrSelfMessage
	}

	return s.store.Append(ctx, senderID, req.ReceiverID, req.Text)
}

// History loads the ordered conversation between the caller and the
// counterpart. An empty conversation is a valid empty slice.
func (s *Chat) History(ctx context.Context, callerID, counterpartID string) ([]models.Message, error) {
	if callerID == "" || counterpartID == "" {
		return nil, errs.ErrMissingCounterpart
	}

	messages, err := s.store.Query(ctx, callerID, counterpartID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = make([]models.Message, 0)
	}
	return messages, nil
}
