package bus

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/coursegen-backend/internal/coursegen/runstate"
	"github.com/yungbote/coursegen-backend/internal/platform/logger"
	"github.com/yungbote/coursegen-backend/internal/realtime"
)

func recvUpdate(t *testing.T, ch <-chan realtime.RunUpdate, timeout time.Duration) realtime.RunUpdate {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for run update")
	}
	return realtime.RunUpdate{}
}

func exercise(t *testing.T, b Bus) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan realtime.RunUpdate, 4)
	if err := b.StartForwarder(ctx, func(m realtime.RunUpdate) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	want := realtime.RunUpdate{
		RunID:    "run-1",
		Kind:     "outline_ready",
		Seq:      2,
		Snapshot: runstate.Snapshot{RunID: "run-1", Status: runstate.StatusOutlineReady, Seq: 2},
	}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg := recvUpdate(t, got, 2*time.Second)
	if msg.RunID != want.RunID || msg.Seq != 2 || msg.Snapshot.Status != runstate.StatusOutlineReady {
		t.Fatalf("unexpected update: %+v", msg)
	}
}

func TestMemoryBusFanout(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()
	exercise(t, b)
}

func TestMemoryBusRejectsAfterClose(t *testing.T) {
	b := NewMemoryBus()
	_ = b.Close()
	if err := b.Publish(context.Background(), realtime.RunUpdate{}); err == nil {
		t.Fatalf("Publish after Close: expected error")
	}
	if err := b.StartForwarder(context.Background(), func(realtime.RunUpdate) {}); err == nil {
		t.Fatalf("StartForwarder after Close: expected error")
	}
}

func TestRedisBus(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis bus tests")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	b, err := NewRedisBus(logger.Nop(), rdb, "coursegen:test:"+t.Name())
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	exercise(t, b)
}
