package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hedera-wallet/hedera_wallet/internal/wallet"
)

// RegisterWalletRoutes wires the per-origin account binding endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Put("/accounts/:network", h.Save)
	r.Get("/accounts/:network", h.Get)
}
