package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func newMirrorServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	tokenHits := new(atomic.Int32)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tokens/0.0.5001", func(w http.ResponseWriter, r *http.Request) {
		tokenHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token_id":"0.0.5001","name":"Gold","symbol":"GLD","decimals":"2",
			"total_supply":"100000","max_supply":"0","treasury_account_id":"0.0.10","type":"FUNGIBLE_COMMON"}`))
	})
	mux.HandleFunc("/api/v1/accounts/0.0.1001", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account":"0.0.1001","evm_address":"0xabc",
			"balance":{"balance":1250000000,"tokens":[{"token_id":"0.0.5001","balance":12345}]}}`))
	})
	mux.HandleFunc("/api/v1/accounts/0x00000000000000000000000000000000000003ea", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"account":"0.0.1002","evm_address":"0x00000000000000000000000000000000000003ea",
			"balance":{"balance":1,"tokens":[{"token_id":"0.0.7777","balance":5}]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, tokenHits
}

func TestClientToken(t *testing.T) {
	srv, _ := newMirrorServer(t)
	client := NewClient(srv.URL, zap.NewNop())

	token, err := client.Token(context.Background(), "0.0.5001")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token.Decimals != 2 || token.Symbol != "GLD" || token.IsNFT() {
		t.Fatalf("unexpected token %+v", token)
	}
}

func TestClientAccountConvertsBalances(t *testing.T) {
	srv, _ := newMirrorServer(t)
	client := NewClient(srv.URL, zap.NewNop())

	info, err := client.Account(context.Background(), "0.0.1001")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !info.Hbars.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected 12.5 hbar, got %s", info.Hbars)
	}
	gold := info.Tokens["0.0.5001"]
	if !gold.Balance.Equal(decimal.RequireFromString("123.45")) || gold.Decimals != 2 {
		t.Fatalf("unexpected token balance %+v", gold)
	}
}

func TestClientNotFound(t *testing.T) {
	srv, _ := newMirrorServer(t)
	client := NewClient(srv.URL, zap.NewNop())

	_, err := client.Token(context.Background(), "0.0.9999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCachedSourceServesRepeatLookupsFromRedis(t *testing.T) {
	srv, hits := newMirrorServer(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	client := NewClient(srv.URL, zap.NewNop())
	cached := NewCachedSource(client, cache, "testnet", time.Hour, zap.NewNop())
	client.UseTokenSource(cached)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cached.Token(ctx, "0.0.5001"); err != nil {
			t.Fatalf("token lookup %d: %v", i, err)
		}
	}
	if _, err := cached.Account(ctx, "0.0.1001"); err != nil {
		t.Fatalf("account: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single mirror token request, got %d", hits.Load())
	}
	if !mr.Exists(tokenCachePrefix + "testnet:0.0.5001") {
		t.Fatalf("expected token to be cached")
	}
}

func TestResolveAccountIgnoresUnknownTokens(t *testing.T) {
	srv, _ := newMirrorServer(t)
	client := NewClient(srv.URL, zap.NewNop())
	ctx := context.Background()
	const alias = "0x00000000000000000000000000000000000003ea"

	if _, err := client.Account(ctx, alias); err == nil {
		t.Fatalf("expected balance lookup to fail on the unknown token")
	}
	id, err := client.ResolveAccount(ctx, alias)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != "0.0.1002" {
		t.Fatalf("expected 0.0.1002, got %s", id)
	}
	if _, err := client.ResolveAccount(ctx, "0x0000000000000000000000000000000000000bad"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCachedSourceCachesAliases(t *testing.T) {
	srv, _ := newMirrorServer(t)
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	cached := NewCachedSource(NewClient(srv.URL, zap.NewNop()), cache, "testnet", time.Hour, zap.NewNop())
	const alias = "0x00000000000000000000000000000000000003ea"
	if _, err := cached.ResolveAccount(context.Background(), alias); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	srv.Close()

	id, err := cached.ResolveAccount(context.Background(), alias)
	if err != nil || id != "0.0.1002" {
		t.Fatalf("expected cached 0.0.1002, got %q, %v", id, err)
	}
}

func TestRegistryUnknownNetwork(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get("mainnet"); err == nil {
		t.Fatalf("expected error for unregistered network")
	}
}
