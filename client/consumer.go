// Package client consumes a conversation stream: it dials the push
// endpoint, replaces its snapshot wholesale on every frame and reconnects
// with capped exponential backoff when the transport drops.
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/ridwantaufk/todolist-with-chat/models"
)

// Consumer holds the live view of one conversation.
type Consumer struct {
	url     string
	token   string
	dialer  *websocket.Dialer
	backoff backoff.BackOff
	log     *slog.Logger

	// OnUpdate, when set, is called with each new snapshot. Set it before Run.
	OnUpdate func([]models.Message)

	mu       sync.RWMutex
	messages []models.Message
}

// New creates a consumer for the conversation with counterpart, reachable
// at baseURL (e.g. "ws://localhost:3000"). The token is the auth cookie
// issued by the external auth collaborator.
func New(baseURL, token, counterpart string, log *slog.Logger) *Consumer {
	q := url.Values{}
	q.Set("counterpart", counterpart)

	return &Consumer{
		url:     baseURL + "/conversation?" + q.Encode(),
		token:   token,
		dialer:  websocket.DefaultDialer,
		backoff: defaultBackoff(),
		log:     log,
	}
}

// defaultBackoff caps retries at 30s and never gives up: a foreground
// conversation view should keep trying for as long as it is open.
func defaultBackoff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	return bo
}

// Run keeps the stream alive until ctx is canceled. Each successful connect
// resets the backoff and yields a fresh full-history frame from the server,
// so no gap detection is needed across reconnects.
func (c *Consumer) Run(ctx context.Context) {
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := c.backoff.NextBackOff()
		c.log.Warn("stream disconnected, reconnecting", "error", err, "wait", wait)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) stream(ctx context.Context) error {
	header := http.Header{}
	header.Set("Cookie", "token="+c.token)

	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	c.backoff.Reset()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.consume(data)
	}
}

// consume applies one frame. Array frames replace the snapshot; error
// frames are logged and skipped, the next reload repairs the view.
func (c *Consumer) consume(data []byte) {
	var snapshot []models.Message
	if err := json.Unmarshal(data, &snapshot); err != nil {
		var ef struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &ef) == nil && ef.Error != "" {
			c.log.Warn("server error frame", "error", ef.Error)
			return
		}
		c.log.Warn("unexpected frame", "error", err)
		return
	}

	c.mu.Lock()
	c.messages = snapshot
	c.mu.Unlock()

	if c.OnUpdate != nil {
		c.OnUpdate(snapshot)
	}
}

// Messages returns a copy of the current snapshot.
func (c *Consumer) Messages() []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Message(nil), c.messages...)
}
