package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hedera-wallet/hedera_wallet/internal/facade"
	"github.com/hedera-wallet/hedera_wallet/internal/host"
)

// RegisterRPCRoutes wires the wallet operations. Extra handlers, such as
// idempotency, run before each call.
func RegisterRPCRoutes(r fiber.Router, h *facade.Handler, mw ...fiber.Handler) {
	handlers := append(mw, h.Call)
	r.Post("/rpc/:method", handlers...)
	r.Get("/swaps", h.PendingSwaps)
}

// RegisterConfirmationRoutes wires the endpoints a host UI answers
// confirmation dialogs through.
func RegisterConfirmationRoutes(r fiber.Router, h *host.Handler) {
	r.Get("/confirmations", h.List)
	r.Get("/confirmations/:id", h.Get)
	r.Post("/confirmations/:id", h.Decide)
}
