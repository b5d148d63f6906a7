package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/ridwantaufk/todolist-with-chat/config"
	"github.com/ridwantaufk/todolist-with-chat/models"
	"github.com/ridwantaufk/todolist-with-chat/notifier"
)

// conversationLoader is the query surface a live session needs.
type conversationLoader interface {
	History(ctx context.Context, callerID, counterpartID string) ([]models.Message, error)
}

// frameConn is the write half of a push connection. *websocket.Conn
// satisfies it; tests substitute a recorder.
type frameConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// session is one live stream: a fixed (caller, counterpart) pair bound to
// one push connection and one notifier subscription.
type session struct {
	conn          frameConn
	svc           conversationLoader
	callerID      string
	counterpartID string
	reload        chan struct{} // cap 1: a notification storm coalesces into one reload
	done          chan struct{}
	log           *slog.Logger
}

func newSession(conn frameConn, svc conversationLoader, callerID, counterpartID string, log *slog.Logger) *session {
	return &session{
		conn:          conn,
		svc:           svc,
		callerID:      callerID,
		counterpartID: counterpartID,
		reload:        make(chan struct{}, 1),
		done:          make(chan struct{}),
		log:           log,
	}
}

// notify is the handler registered on the change notifier. It runs on the
// publisher's goroutine, so it only flags a reload and never blocks.
func (s *session) notify(ev notifier.Event) {
	if !ev.Involves(s.callerID, s.counterpartID) {
		return
	}
	select {
	case s.reload <- struct{}{}:
	default:
	}
}

// pushConversation re-queries the pair and writes the full history as one
// frame. A query failure degrades to an error frame and keeps the stream
// open; only a write failure (dead transport) is returned.
func (s *session) pushConversation() error {
	messages, err := s.svc.History(context.Background(), s.callerID, s.counterpartID)

	s.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
	if err != nil {
		s.log.Error("failed to load conversation", "caller", s.callerID, "counterpart", s.counterpartID, "error", err)
		return s.conn.WriteJSON(fiber.Map{"error": "error fetching messages"})
	}

	return s.conn.WriteJSON(messages)
}

// writeLoop pushes the initial history frame, then a fresh full frame per
// reload, with periodic pings. It exits on write failure or done.
func (s *session) writeLoop() {
	ticker := time.NewTicker(config.PingPeriod)
	defer ticker.Stop()

	if err := s.pushConversation(); err != nil {
		s.log.Warn("initial frame write failed", "caller", s.callerID, "error", err)
		return
	}

	for {
		select {
		case <-s.reload:
			if err := s.pushConversation(); err != nil {
				s.log.Warn("frame write failed", "caller", s.callerID, "error", err)
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(config.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

// UpgradeStream gates the stream route: it validates the upgrade request,
// the caller identity and the counterpart parameter before the connection
// switches protocols. Failures here are terminal for the attempt.
func (h *Chat) UpgradeStream(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	claims, err := h.verifier.VerifyCaller(c)
	if err != nil {
		return unauthorized(c, err)
	}

	counterpart := c.Query("counterpart")
	if counterpart == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "counterpart is required"})
	}

	c.Locals("callerID", claims.UserID)
	c.Locals("counterpart", counterpart)
	return c.Next()
}

// Stream serves one live connection until the client disconnects. Teardown
// always cancels the notifier subscription, whatever the exit path.
func (h *Chat) Stream(c *websocket.Conn) {
	callerID, _ := c.Locals("callerID").(string)
	counterpartID, _ := c.Locals("counterpart").(string)

	sess := newSession(c, h.svc, callerID, counterpartID, h.log)
	sub := h.bus.Subscribe(sess.notify)

	h.log.Info("stream opened", "caller", callerID, "counterpart", counterpartID)

	defer func() {
		sub.Cancel()
		close(sess.done)
		c.Close()
		h.log.Info("stream closed", "caller", callerID, "counterpart", counterpartID)
	}()

	go sess.writeLoop()

	// The stream is one-way; reads only surface pongs and the close signal.
	c.SetReadLimit(config.MaxMessageSize)
	c.SetReadDeadline(time.Now().Add(config.PongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("stream read error", "caller", callerID, "error", err)
			}
			return
		}
	}
}
