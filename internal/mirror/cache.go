package mirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	tokenCachePrefix = "mirror:v1:token:"
	aliasCachePrefix = "mirror:v1:alias:"
)

// CachedSource keeps token metadata in Redis. Token metadata relevant to
// the wallet (decimals, symbol, type) never changes, so entries only expire
// to bound memory. Account alias lookups are cached the same way; balance
// queries always go to the underlying source.
type CachedSource struct {
	next    Source
	cache   *redis.Client
	network string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCachedSource wraps next with a token cache scoped to network.
func NewCachedSource(next Source, cache *redis.Client, network string, ttl time.Duration, logger *zap.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, network: network, ttl: ttl, logger: logger}
}

func (s *CachedSource) key(tokenID string) string {
	return tokenCachePrefix + s.network + ":" + tokenID
}

// Token returns cached metadata, falling through to the mirror node on a
// miss or a cache failure.
func (s *CachedSource) Token(ctx context.Context, tokenID string) (Token, error) {
	if val, err := s.cache.Get(ctx, s.key(tokenID)).Result(); err == nil {
		var cached Token
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return cached, nil
		}
	} else if err != redis.Nil {
		s.logger.Warn("token cache lookup failed", zap.String("token_id", tokenID), zap.Error(err))
	}

	token, err := s.next.Token(ctx, tokenID)
	if err != nil {
		return Token{}, err
	}

	if data, err := json.Marshal(token); err == nil {
		if err := s.cache.Set(ctx, s.key(tokenID), data, s.ttl).Err(); err != nil {
			s.logger.Warn("token cache store failed", zap.String("token_id", tokenID), zap.Error(err))
		}
	}
	return token, nil
}

// Account is never cached; balances are expected to move.
func (s *CachedSource) Account(ctx context.Context, idOrAddress string) (AccountInfo, error) {
	return s.next.Account(ctx, idOrAddress)
}

// ResolveAccount caches alias lookups; an EVM alias names the same account
// for its whole life.
func (s *CachedSource) ResolveAccount(ctx context.Context, idOrAddress string) (string, error) {
	key := aliasCachePrefix + s.network + ":" + idOrAddress
	if id, err := s.cache.Get(ctx, key).Result(); err == nil {
		return id, nil
	} else if err != redis.Nil {
		s.logger.Warn("alias cache lookup failed", zap.String("address", idOrAddress), zap.Error(err))
	}

	id, err := s.next.ResolveAccount(ctx, idOrAddress)
	if err != nil {
		return "", err
	}
	if err := s.cache.Set(ctx, key, id, s.ttl).Err(); err != nil {
		s.logger.Warn("alias cache store failed", zap.String("address", idOrAddress), zap.Error(err))
	}
	return id, nil
}
