package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const hbarDecimals = 8

// DefaultURL returns the public mirror node for a network.
func DefaultURL(network string) (string, error) {
	switch network {
	case "mainnet":
		return "https://mainnet-public.mirrornode.hedera.com", nil
	case "testnet":
		return "https://testnet.mirrornode.hedera.com", nil
	case "previewnet":
		return "https://previewnet.mirrornode.hedera.com", nil
	default:
		return "", fmt.Errorf("unknown network %q", network)
	}
}

// Client talks to the mirror node REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	// tokens resolves decimals for account token balances; defaults to the
	// client itself so callers can inject a cached source.
	tokens Source
}

// NewClient builds a mirror node client for baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	c.tokens = c
	return c
}

// UseTokenSource routes decimal lookups for account balances through src.
func (c *Client) UseTokenSource(src Source) {
	c.tokens = src
}

type tokenResponse struct {
	TokenID           string `json:"token_id"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Decimals          string `json:"decimals"`
	TotalSupply       string `json:"total_supply"`
	MaxSupply         string `json:"max_supply"`
	TreasuryAccountID string `json:"treasury_account_id"`
	Type              string `json:"type"`
}

type accountResponse struct {
	Account    string `json:"account"`
	EVMAddress string `json:"evm_address"`
	Balance    struct {
		Balance int64 `json:"balance"`
		Tokens  []struct {
			TokenID string `json:"token_id"`
			Balance int64  `json:"balance"`
		} `json:"tokens"`
	} `json:"balance"`
}

// Token fetches token metadata.
func (c *Client) Token(ctx context.Context, tokenID string) (Token, error) {
	var res tokenResponse
	if err := c.get(ctx, "/api/v1/tokens/"+url.PathEscape(tokenID), &res); err != nil {
		return Token{}, errors.Wrapf(err, "get token %s", tokenID)
	}
	decimals, err := strconv.ParseInt(res.Decimals, 10, 32)
	if err != nil {
		return Token{}, errors.Wrapf(err, "token %s has invalid decimals %q", tokenID, res.Decimals)
	}
	return Token{
		TokenID:           res.TokenID,
		Name:              res.Name,
		Symbol:            res.Symbol,
		Decimals:          int32(decimals),
		TotalSupply:       res.TotalSupply,
		MaxSupply:         res.MaxSupply,
		TreasuryAccountID: res.TreasuryAccountID,
		Type:              res.Type,
	}, nil
}

// Account fetches an account's balances by account id or EVM address.
func (c *Client) Account(ctx context.Context, idOrAddress string) (AccountInfo, error) {
	var res accountResponse
	if err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(idOrAddress), &res); err != nil {
		return AccountInfo{}, errors.Wrapf(err, "get account %s", idOrAddress)
	}

	info := AccountInfo{
		AccountID:  res.Account,
		EVMAddress: res.EVMAddress,
		Hbars:      decimal.New(res.Balance.Balance, -hbarDecimals),
		Tokens:     make(map[string]TokenBalance, len(res.Balance.Tokens)),
	}
	for _, tb := range res.Balance.Tokens {
		token, err := c.tokens.Token(ctx, tb.TokenID)
		if err != nil {
			return AccountInfo{}, err
		}
		info.Tokens[tb.TokenID] = TokenBalance{
			Balance:  decimal.New(tb.Balance, -token.Decimals),
			Decimals: token.Decimals,
		}
	}
	return info, nil
}

// ResolveAccount looks up only the account id, so token balances the
// wallet knows nothing about cannot fail the lookup.
func (c *Client) ResolveAccount(ctx context.Context, idOrAddress string) (string, error) {
	var res struct {
		Account string `json:"account"`
	}
	if err := c.get(ctx, "/api/v1/accounts/"+url.PathEscape(idOrAddress)+"?transactions=false", &res); err != nil {
		return "", errors.Wrapf(err, "resolve account %s", idOrAddress)
	}
	if res.Account == "" {
		return "", errors.Errorf("mirror node returned no account for %s", idOrAddress)
	}
	return res.Account, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("mirror request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("mirror node returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
