package bus

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/secretsanta-backend/internal/platform/logger"
)

func TestRedisBusForwards(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	b, err := NewRedisBus(logger.Nop(), rdb, "test:relay:"+uuid.NewString())
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 1)
	if err := b.StartForwarder(ctx, func(m Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := Message{Channel: "raffle:x:member:y", Event: "chat.message", Data: json.RawMessage(`{"content":"hi"}`)}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.Channel != want.Channel || string(m.Data) != string(want.Data) {
			t.Fatalf("forwarded: want=%+v got=%+v", want, m)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for forwarded message")
	}
}

func TestNewRedisBus_NilClient(t *testing.T) {
	if _, err := NewRedisBus(logger.Nop(), nil, ""); err == nil {
		t.Fatalf("NewRedisBus(nil): want error")
	}
}
