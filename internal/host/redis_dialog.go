package host

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	dialogPrefix    = "dialog:v1:"
	pendingPrefix   = "dialog:v1:pending:"
	decisionSuffix  = ":decision"
	decisionApprove = "approve"
	decisionReject  = "reject"
)

// RedisDialog brokers confirmations through Redis: Confirm publishes the
// prompt and blocks on a decision list that the host UI fills via Decide.
// Requests and decisions may be served by different processes.
type RedisDialog struct {
	cache   *redis.Client
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewRedisDialog builds a dialog broker; prompts left unanswered for
// timeout are rejected.
func NewRedisDialog(cache *redis.Client, timeout time.Duration, logger *zap.Logger) *RedisDialog {
	return &RedisDialog{cache: cache, timeout: timeout, logger: logger, now: time.Now}
}

func dialogKey(id string) string   { return dialogPrefix + id }
func decisionKey(id string) string { return dialogPrefix + id + decisionSuffix }

// Confirm implements Dialog.
func (d *RedisDialog) Confirm(ctx context.Context, p Prompt) (bool, error) {
	now := d.now().UTC()
	pending := Pending{
		ID:        uuid.NewString(),
		Origin:    p.Origin,
		Title:     p.Title,
		Content:   p.Content,
		CreatedAt: now,
		ExpiresAt: now.Add(d.timeout),
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return false, err
	}

	pipe := d.cache.TxPipeline()
	pipe.Set(ctx, dialogKey(pending.ID), payload, d.timeout)
	pipe.SAdd(ctx, pendingPrefix+p.Origin, pending.ID)
	pipe.Expire(ctx, pendingPrefix+p.Origin, d.timeout)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	defer d.cleanup(p.Origin, pending.ID)

	d.logger.Info("confirmation requested",
		zap.String("dialog_id", pending.ID),
		zap.String("origin", p.Origin),
		zap.String("title", p.Title))

	res, err := d.cache.BLPop(ctx, d.timeout, decisionKey(pending.ID)).Result()
	if errors.Is(err, redis.Nil) {
		d.logger.Info("confirmation timed out", zap.String("dialog_id", pending.ID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// BLPOP returns [key, value]
	return len(res) == 2 && res[1] == decisionApprove, nil
}

func (d *RedisDialog) cleanup(origin, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pipe := d.cache.TxPipeline()
	pipe.Del(ctx, dialogKey(id), decisionKey(id))
	pipe.SRem(ctx, pendingPrefix+origin, id)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Warn("dialog cleanup failed", zap.String("dialog_id", id), zap.Error(err))
	}
}

// Get returns a pending prompt.
func (d *RedisDialog) Get(ctx context.Context, id string) (Pending, error) {
	raw, err := d.cache.Get(ctx, dialogKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Pending{}, ErrDialogNotFound
	}
	if err != nil {
		return Pending{}, err
	}
	var p Pending
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pending{}, err
	}
	return p, nil
}

// List returns the prompts waiting for origin's user, oldest first.
func (d *RedisDialog) List(ctx context.Context, origin string) ([]Pending, error) {
	ids, err := d.cache.SMembers(ctx, pendingPrefix+origin).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Pending, 0, len(ids))
	for _, id := range ids {
		p, err := d.Get(ctx, id)
		if errors.Is(err, ErrDialogNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Decide delivers the user's answer to the blocked Confirm call. origin
// must match the prompt's origin.
func (d *RedisDialog) Decide(ctx context.Context, origin, id string, approve bool) error {
	p, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Origin != origin {
		return ErrDialogNotFound
	}
	decision := decisionReject
	if approve {
		decision = decisionApprove
	}
	pipe := d.cache.TxPipeline()
	pipe.RPush(ctx, decisionKey(id), decision)
	pipe.Expire(ctx, decisionKey(id), d.timeout)
	_, err = pipe.Exec(ctx)
	return err
}
