// Package handlers exposes the messaging core over HTTP: a compose endpoint
// and a long-lived websocket stream per open conversation view.
package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/ridwantaufk/todolist-with-chat/auth"
	"github.com/ridwantaufk/todolist-with-chat/errs"
	"github.com/ridwantaufk/todolist-with-chat/models"
	"github.com/ridwantaufk/todolist-with-chat/notifier"
)

// chatService is what the handlers need from the service layer.
type chatService interface {
	Compose(ctx context.Context, callerID string, req models.ComposeRequest) (models.Message, error)
	History(ctx context.Context, callerID, counterpartID string) ([]models.Message, error)
}

// Chat wires the conversation endpoints.
type Chat struct {
	svc      chatService
	bus      notifier.Notifier
	verifier *auth.Verifier
	log      *slog.Logger
}

func NewChat(svc chatService, bus notifier.Notifier, verifier *auth.Verifier, log *slog.Logger) *Chat {
	return &Chat{svc: svc, bus: bus, verifier: verifier, log: log}
}

// Register mounts the conversation routes on the app.
func (h *Chat) Register(app *fiber.App) {
	app.Post("/conversation", h.Compose)
	app.Get("/conversation", h.UpgradeStream, websocket.New(h.Stream))
}

// Compose appends one message on behalf of the authenticated caller.
func (h *Chat) Compose(c *fiber.Ctx) error {
	claims, err := h.verifier.VerifyCaller(c)
	if err != nil {
		return unauthorized(c, err)
	}

	var req models.ComposeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	msg, err := h.svc.Compose(c.Context(), claims.UserID, req)
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(msg)
	case errors.Is(err, errs.ErrSenderMismatch):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, errs.ErrEmptyText),
		errors.Is(err, errs.ErrMissingReceiver),
		errors.Is(err, errs.ErrSelfMessage):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		h.log.Error("failed to append message", "caller", claims.UserID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}

// unauthorized maps auth failures: 401 when no token was sent, 403 when the
// token did not verify.
func unauthorized(c *fiber.Ctx, err error) error {
	status := fiber.StatusForbidden
	if errors.Is(err, errs.ErrMissingToken) {
		status = fiber.StatusUnauthorized
	}
	return c.Status(status).JSON(fiber.Map{"error": "Unauthorized"})
}
