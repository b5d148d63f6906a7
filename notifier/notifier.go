// Package notifier implements the change-notification channel between the
// message store and the open live streams. A publish signals that one message
// was committed; subscribers re-query their own conversation in response.
package notifier

import "context"

// Event signals that a message between SenderID and ReceiverID was committed.
// It carries no message payload; subscribers filter by pair and re-query.
type Event struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// Involves reports whether the event concerns the unordered pair {a, b}.
func (e Event) Involves(a, b string) bool {
	return (e.SenderID == a && e.ReceiverID == b) ||
		(e.SenderID == b && e.ReceiverID == a)
}

// Handler is invoked once per published event. Handlers run on the
// publisher's goroutine and must not block.
type Handler func(ev Event)

// Notifier is the surface shared by the in-process Bus and the NATS bridge.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(h Handler) *Subscription
}
