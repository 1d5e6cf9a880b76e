package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/aula-backend/internal/data/repos/testutil"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

func userMsg(i int) llm.Message {
	return llm.Message{Role: llm.RoleUser, Content: fmt.Sprintf("m%d", i)}
}

// exerciseChatStore runs the behavior every ChatStore implementation shares.
func exerciseChatStore(t *testing.T, store ChatStore, max int) {
	t.Helper()
	ctx := context.Background()
	key := ChatKey{UserID: uuid.New(), ActivityID: uuid.New()}

	conv, err := store.Load(ctx, key)
	if err != nil || conv != nil {
		t.Fatalf("Load unknown: want nil got=%+v err=%v", conv, err)
	}

	pinned := []llm.Message{
		{Role: llm.RoleSystem, Content: "be a tutor"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}
	if err := store.Start(ctx, key, pinned); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < max+5; i++ {
		if err := store.Append(ctx, key, userMsg(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	conv, err = store.Load(ctx, key)
	if err != nil || conv == nil {
		t.Fatalf("Load: got=%+v err=%v", conv, err)
	}
	if len(conv.Pinned) != 2 || conv.Pinned[0].Content != "be a tutor" {
		t.Fatalf("pinned: unexpected %+v", conv.Pinned)
	}
	if len(conv.Recent) != max {
		t.Fatalf("recent length: want=%d got=%d", max, len(conv.Recent))
	}
	if conv.Recent[0].Content != "m5" || conv.Recent[max-1].Content != fmt.Sprintf("m%d", max+4) {
		t.Fatalf("ring buffer order: first=%q last=%q", conv.Recent[0].Content, conv.Recent[max-1].Content)
	}
	if got := len(conv.Messages()); got != max+2 {
		t.Fatalf("Messages: want=%d got=%d", max+2, got)
	}

	other := ChatKey{UserID: uuid.New(), ActivityID: key.ActivityID}
	if err := store.Start(ctx, other, pinned); err != nil {
		t.Fatalf("Start other: %v", err)
	}
	if err := store.Clear(ctx, key); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if conv, _ := store.Load(ctx, key); conv != nil {
		t.Fatalf("Load after Clear: want nil got=%+v", conv)
	}
	if conv, _ := store.Load(ctx, other); conv == nil {
		t.Fatalf("Clear removed another user's conversation")
	}
	if err := store.ClearActivity(ctx, key.ActivityID); err != nil {
		t.Fatalf("ClearActivity: %v", err)
	}
	if conv, _ := store.Load(ctx, other); conv != nil {
		t.Fatalf("Load after ClearActivity: want nil got=%+v", conv)
	}
}

func TestMemoryChatStore(t *testing.T) {
	exerciseChatStore(t, NewMemoryChatStore(time.Hour, 20), 20)
}

func TestMemoryChatStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryChatStore(time.Hour, 20, func() time.Time { return now })
	key := ChatKey{UserID: uuid.New(), ActivityID: uuid.New()}

	if err := store.Start(ctx, key, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	now = now.Add(50 * time.Minute)
	if err := store.Append(ctx, key, userMsg(1)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Append extended the deadline.
	now = now.Add(50 * time.Minute)
	if conv, _ := store.Load(ctx, key); conv == nil || len(conv.Recent) != 1 {
		t.Fatalf("Load before expiry: got=%+v", conv)
	}
	now = now.Add(11 * time.Minute)
	if conv, _ := store.Load(ctx, key); conv != nil {
		t.Fatalf("Load after expiry: want nil got=%+v", conv)
	}
}

func TestMemoryChatStoreSweepsAbandonedConversations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store := newMemoryChatStore(time.Minute, 20, func() time.Time { return now })

	for i := 0; i < 1000; i++ {
		if err := store.Start(ctx, ChatKey{UserID: uuid.New(), ActivityID: uuid.New()}, nil); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	now = now.Add(24 * time.Hour)
	for i := 0; i < 100; i++ {
		if err := store.Append(ctx, ChatKey{UserID: uuid.New(), ActivityID: uuid.New()}, userMsg(i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	store.mu.Lock()
	got := len(store.convs)
	store.mu.Unlock()
	if got != 100 {
		t.Fatalf("retained conversations: want=100 got=%d", got)
	}
}

func TestRedisChatStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	exerciseChatStore(t, NewRedisChatStore(testutil.Logger(t), rdb, time.Minute, 6), 6)
}
