package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestRedisNotifierPublishes(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	ctx := context.Background()
	sub := cache.Subscribe(ctx, Channel("https://dapp.example"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	notifier := Multi{NewLoggerNotifier(zap.NewNop()), NewRedisNotifier(cache)}
	msg := Message{Kind: KindTransactionExecuted, Origin: "https://dapp.example", Title: "Transfer", TransactionID: "0.0.1001@1.2"}
	if err := notifier.Send(ctx, msg); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case got := <-sub.Channel():
		var decoded Message
		if err := json.Unmarshal([]byte(got.Payload), &decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded != msg {
			t.Fatalf("expected %+v, got %+v", msg, decoded)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no message published")
	}
}
