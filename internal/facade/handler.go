package facade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/hedera-wallet/hedera_wallet/internal/xerrors"
)

// NetworkHeader selects the ledger network of a request.
const NetworkHeader = "X-Hedera-Network"

// Method decodes raw JSON params and runs one operation.
type Method func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error)

func bind[T any](call func(context.Context, RequestContext, *T) (any, error)) Method {
	return func(ctx context.Context, rc RequestContext, params json.RawMessage) (any, error) {
		req := new(T)
		if len(params) > 0 {
			if err := json.Unmarshal(params, req); err != nil {
				return nil, xerrors.Precondition("decode params", err.Error())
			}
		}
		return call(ctx, rc, req)
	}
}

// Methods lists every operation by its wire name.
func (s *Service) Methods() map[string]Method {
	return map[string]Method{
		"transferCrypto":      bind(s.TransferCrypto),
		"getAccountInfo":      bind(s.GetAccountInfo),
		"approveAllowance":    bind(s.ApproveAllowance),
		"deleteAllowance":     bind(s.DeleteAllowance),
		"deleteAccount":       bind(s.DeleteAccount),
		"stakeHbar":           bind(s.StakeHbar),
		"unstakeHbar":         bind(s.UnstakeHbar),
		"associateTokens":     bind(s.AssociateTokens),
		"dissociateTokens":    bind(s.DissociateTokens),
		"createToken":         bind(s.CreateToken),
		"updateToken":         bind(s.UpdateToken),
		"deleteToken":         bind(s.DeleteToken),
		"mintToken":           bind(s.MintToken),
		"burnToken":           bind(s.BurnToken),
		"pauseToken":          bind(s.PauseToken),
		"unpauseToken":        bind(s.UnpauseToken),
		"wipeToken":           bind(s.WipeToken),
		"freezeAccount":       bind(s.FreezeAccount),
		"unfreezeAccount":     bind(s.UnfreezeAccount),
		"enableKYC":           bind(s.EnableKYC),
		"disableKYC":          bind(s.DisableKYC),
		"createTopic":         bind(s.CreateTopic),
		"updateTopic":         bind(s.UpdateTopic),
		"deleteTopic":         bind(s.DeleteTopic),
		"submitMessage":       bind(s.SubmitMessage),
		"createSmartContract": bind(s.CreateSmartContract),
		"updateSmartContract": bind(s.UpdateSmartContract),
		"deleteSmartContract": bind(s.DeleteSmartContract),
		"callSmartContract":   bind(s.CallSmartContract),
		"initiateSwap":        bind(s.InitiateSwap),
		"completeSwap":        bind(s.CompleteSwap),
	}
}

// Handler exposes the operations over HTTP.
type Handler struct {
	service        *Service
	methods        map[string]Method
	origin         func(*fiber.Ctx) string
	defaultNetwork string
}

// NewHandler constructs the RPC handler. origin extracts the authenticated
// caller from the request.
func NewHandler(service *Service, origin func(*fiber.Ctx) string, defaultNetwork string) *Handler {
	return &Handler{service: service, methods: service.Methods(), origin: origin, defaultNetwork: defaultNetwork}
}

// Call runs POST /rpc/:method with the JSON body as params.
func (h *Handler) Call(c *fiber.Ctx) error {
	method, ok := h.methods[c.Params("method")]
	if !ok {
		return fiber.NewError(http.StatusNotFound, "unknown method "+c.Params("method"))
	}
	rc := h.requestContext(c)
	if rc.Origin == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing origin")
	}

	result, err := method(c.UserContext(), rc, c.Body())
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"result": result})
}

// PendingSwaps runs GET /swaps.
func (h *Handler) PendingSwaps(c *fiber.Ctx) error {
	swaps, err := h.service.PendingSwaps(c.UserContext(), h.requestContext(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"swaps": swaps})
}

func (h *Handler) requestContext(c *fiber.Ctx) RequestContext {
	return RequestContext{
		Origin:  h.origin(c),
		Network: strings.ToLower(c.Get(NetworkHeader, c.Query("network", h.defaultNetwork))),
	}
}

func writeError(c *fiber.Ctx, err error) error {
	body := fiber.Map{"kind": string(xerrors.KindOf(err)), "message": err.Error()}
	var xe *xerrors.Error
	if errors.As(err, &xe) {
		body["op"] = xe.Op
		if xe.Status != "" {
			body["status"] = xe.Status
		}
	}
	return c.Status(statusFor(err)).JSON(fiber.Map{"error": body})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, xerrors.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, xerrors.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, xerrors.ErrLedgerRejection):
		return http.StatusUnprocessableEntity
	case errors.Is(err, xerrors.ErrResourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, xerrors.ErrResultUnknown):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
