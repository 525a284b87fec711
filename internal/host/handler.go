package host

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler lets the wallet user answer pending confirmation dialogs.
type Handler struct {
	dialog *RedisDialog
	origin func(*fiber.Ctx) string
}

// NewHandler constructs a confirmation handler.
func NewHandler(dialog *RedisDialog, origin func(*fiber.Ctx) string) *Handler {
	return &Handler{dialog: dialog, origin: origin}
}

// pendingResponse adds the plain-text rendering for hosts without a
// structured UI.
type pendingResponse struct {
	Pending
	Text string `json:"text"`
}

func toResponse(p Pending) pendingResponse {
	return pendingResponse{Pending: p, Text: p.Content.String()}
}

// List returns the dialogs waiting for the caller.
func (h *Handler) List(c *fiber.Ctx) error {
	pending, err := h.dialog.List(c.UserContext(), h.origin(c))
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	out := make([]pendingResponse, 0, len(pending))
	for _, p := range pending {
		out = append(out, toResponse(p))
	}
	return c.JSON(fiber.Map{"confirmations": out})
}

// Get returns one pending dialog.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.dialog.Get(c.UserContext(), c.Params("id"))
	if errors.Is(err, ErrDialogNotFound) || (err == nil && p.Origin != h.origin(c)) {
		return fiber.NewError(http.StatusNotFound, "confirmation not found")
	}
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(toResponse(p))
}

type decideRequest struct {
	Approve bool `json:"approve"`
}

// Decide approves or rejects a pending dialog.
func (h *Handler) Decide(c *fiber.Ctx) error {
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	err := h.dialog.Decide(c.UserContext(), h.origin(c), c.Params("id"), req.Approve)
	switch {
	case errors.Is(err, ErrDialogNotFound):
		return fiber.NewError(http.StatusNotFound, "confirmation not found")
	case err != nil:
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
