package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/hedera-wallet/hedera_wallet/internal/ledger"
)

// Handler exposes account state HTTP endpoints.
type Handler struct {
	service *Service
	origin  func(c *fiber.Ctx) string
}

// NewHandler builds an account state handler. origin extracts the
// authenticated origin from the request.
func NewHandler(service *Service, origin func(c *fiber.Ctx) string) *Handler {
	return &Handler{service: service, origin: origin}
}

type saveRequest struct {
	AccountID  string `json:"accountId"`
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
	Curve      string `json:"curve"`
}

type accountResponse struct {
	Origin     string   `json:"origin"`
	Network    string   `json:"network"`
	AccountID  string   `json:"accountId"`
	EVMAddress string   `json:"evmAddress"`
	PublicKey  string   `json:"publicKey"`
	Curve      string   `json:"curve"`
	Balance    *Balance `json:"balance,omitempty"`
}

func toResponse(a Account) accountResponse {
	resp := accountResponse{
		Origin:     a.Origin,
		Network:    a.Network,
		AccountID:  a.AccountID,
		EVMAddress: a.EVMAddress,
		PublicKey:  a.KeyStore.PublicKey,
		Curve:      string(a.KeyStore.Curve),
	}
	if !a.Balance.AsOf.IsZero() {
		b := a.Balance
		resp.Balance = &b
	}
	return resp
}

// Save binds the caller's origin to a ledger account.
func (h *Handler) Save(c *fiber.Ctx) error {
	var req saveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.service.Save(c.UserContext(), SaveInput{
		Origin:     h.origin(c),
		Network:    c.Params("network"),
		AccountID:  req.AccountID,
		PrivateKey: req.PrivateKey,
		PublicKey:  req.PublicKey,
		Curve:      ledger.Curve(req.Curve),
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(acct))
}

// Get returns the caller's account state without the private key.
func (h *Handler) Get(c *fiber.Ctx) error {
	acct, err := h.service.Get(c.UserContext(), h.origin(c), c.Params("network"))
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(acct))
}
