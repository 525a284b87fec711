package host

import (
	"context"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDialog(t *testing.T, timeout time.Duration) *RedisDialog {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return NewRedisDialog(cache, timeout, zap.NewNop())
}

func waitPending(t *testing.T, d *RedisDialog, origin string) Pending {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		list, err := d.List(context.Background(), origin)
		require.NoError(t, err)
		if len(list) > 0 {
			return list[0]
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no pending dialog for %s", origin)
	return Pending{}
}

func confirmAsync(d *RedisDialog, p Prompt) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		ok, err := d.Confirm(context.Background(), p)
		out <- ok && err == nil
	}()
	return out
}

func TestRedisDialogApprove(t *testing.T) {
	d := newDialog(t, 5*time.Second)
	prompt := Prompt{Origin: "https://dapp.example", Title: "Transfer", Content: Content{Heading("Transfer"), Row("Amount", "1 HBAR")}}
	result := confirmAsync(d, prompt)

	p := waitPending(t, d, prompt.Origin)
	require.Equal(t, "Transfer", p.Title)
	require.Len(t, p.Content, 2)

	require.ErrorIs(t, d.Decide(context.Background(), "https://other.example", p.ID, true), ErrDialogNotFound)
	require.NoError(t, d.Decide(context.Background(), prompt.Origin, p.ID, true))

	select {
	case ok := <-result:
		require.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("confirm did not return")
	}

	list, err := d.List(context.Background(), prompt.Origin)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestRedisDialogReject(t *testing.T) {
	d := newDialog(t, 5*time.Second)
	prompt := Prompt{Origin: "o", Title: "Delete account"}
	result := confirmAsync(d, prompt)

	p := waitPending(t, d, "o")
	require.NoError(t, d.Decide(context.Background(), "o", p.ID, false))
	require.False(t, <-result)
}

func TestRedisDialogTimeoutRejects(t *testing.T) {
	d := newDialog(t, time.Second)
	ok, err := d.Confirm(context.Background(), Prompt{Origin: "o"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisDialogDecideUnknown(t *testing.T) {
	d := newDialog(t, time.Second)
	require.ErrorIs(t, d.Decide(context.Background(), "o", "missing", true), ErrDialogNotFound)
}

func TestContentStringMasksSensitive(t *testing.T) {
	c := Content{Heading("Keys"), Divider(), Copyable("Account", "0.0.1001"), Sensitive("Private key", "302e...")}
	s := c.String()
	require.Contains(t, s, "Account: 0.0.1001")
	require.False(t, strings.Contains(s, "302e"))
}
