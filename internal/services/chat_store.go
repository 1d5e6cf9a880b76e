package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

type ChatKey struct {
	UserID     uuid.UUID
	ActivityID uuid.UUID
}

// Conversation is a chat's pinned preamble (system + welcome) and its most recent turns.
type Conversation struct {
	Pinned []llm.Message
	Recent []llm.Message
}

func (c *Conversation) Messages() []llm.Message {
	out := make([]llm.Message, 0, len(c.Pinned)+len(c.Recent))
	out = append(out, c.Pinned...)
	return append(out, c.Recent...)
}

// ChatStore keeps per-(user, activity) chat memory. Recent turns are a ring
// buffer of at most maxMessages entries; whole conversations expire after ttl
// of inactivity. Load returns nil for an unknown or expired conversation.
type ChatStore interface {
	Load(ctx context.Context, key ChatKey) (*Conversation, error)
	Start(ctx context.Context, key ChatKey, pinned []llm.Message) error
	Append(ctx context.Context, key ChatKey, msgs ...llm.Message) error
	Clear(ctx context.Context, key ChatKey) error
	ClearActivity(ctx context.Context, activityID uuid.UUID) error
}

// ---- in-process ----

type memoryConversation struct {
	conv      Conversation
	expiresAt time.Time
}

type memoryChatStore struct {
	mu          sync.Mutex
	convs       map[ChatKey]*memoryConversation
	ttl         time.Duration
	maxMessages int
	now         func() time.Time
	nextSweep   time.Time
}

func NewMemoryChatStore(ttl time.Duration, maxMessages int) ChatStore {
	return newMemoryChatStore(ttl, maxMessages, time.Now)
}

func newMemoryChatStore(ttl time.Duration, maxMessages int, now func() time.Time) *memoryChatStore {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &memoryChatStore{
		convs:       map[ChatKey]*memoryConversation{},
		ttl:         ttl,
		maxMessages: maxMessages,
		now:         now,
	}
}

func (s *memoryChatStore) live(key ChatKey) *memoryConversation {
	mc, ok := s.convs[key]
	if !ok {
		return nil
	}
	if s.ttl > 0 && !s.now().Before(mc.expiresAt) {
		delete(s.convs, key)
		return nil
	}
	return mc
}

// sweep drops every expired conversation, at most once per sweep interval.
func (s *memoryChatStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	if now.Before(s.nextSweep) {
		return
	}
	for k, mc := range s.convs {
		if !now.Before(mc.expiresAt) {
			delete(s.convs, k)
		}
	}
	s.nextSweep = now.Add(min(s.ttl, time.Minute))
}

func (s *memoryChatStore) touch(mc *memoryConversation) {
	if s.ttl > 0 {
		mc.expiresAt = s.now().Add(s.ttl)
	}
}

func (s *memoryChatStore) Load(_ context.Context, key ChatKey) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mc := s.live(key)
	if mc == nil {
		return nil, nil
	}
	return &Conversation{
		Pinned: append([]llm.Message(nil), mc.conv.Pinned...),
		Recent: append([]llm.Message(nil), mc.conv.Recent...),
	}, nil
}

func (s *memoryChatStore) Start(_ context.Context, key ChatKey, pinned []llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	mc := &memoryConversation{conv: Conversation{Pinned: append([]llm.Message(nil), pinned...)}}
	s.touch(mc)
	s.convs[key] = mc
	return nil
}

func (s *memoryChatStore) Append(_ context.Context, key ChatKey, msgs ...llm.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	mc := s.live(key)
	if mc == nil {
		mc = &memoryConversation{}
		s.convs[key] = mc
	}
	mc.conv.Recent = append(mc.conv.Recent, msgs...)
	if over := len(mc.conv.Recent) - s.maxMessages; over > 0 {
		mc.conv.Recent = append([]llm.Message(nil), mc.conv.Recent[over:]...)
	}
	s.touch(mc)
	return nil
}

func (s *memoryChatStore) Clear(_ context.Context, key ChatKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, key)
	return nil
}

func (s *memoryChatStore) ClearActivity(_ context.Context, activityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.convs {
		if k.ActivityID == activityID {
			delete(s.convs, k)
		}
	}
	return nil
}

// ---- redis ----

type redisChatStore struct {
	log         *logger.Logger
	rdb         goredis.UniversalClient
	prefix      string
	ttl         time.Duration
	maxMessages int
}

// NewRedisChatStore shares chat memory across instances. Each conversation is a
// pinned JSON key plus a capped list, both refreshed to ttl on every write.
func NewRedisChatStore(log *logger.Logger, rdb goredis.UniversalClient, ttl time.Duration, maxMessages int) ChatStore {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &redisChatStore{
		log:         log.With("service", "RedisChatStore"),
		rdb:         rdb,
		prefix:      "aula:chat",
		ttl:         ttl,
		maxMessages: maxMessages,
	}
}

func (s *redisChatStore) pinnedKey(k ChatKey) string {
	return fmt.Sprintf("%s:%s:%s:pinned", s.prefix, k.ActivityID, k.UserID)
}

func (s *redisChatStore) recentKey(k ChatKey) string {
	return fmt.Sprintf("%s:%s:%s:recent", s.prefix, k.ActivityID, k.UserID)
}

func (s *redisChatStore) Load(ctx context.Context, key ChatKey) (*Conversation, error) {
	pipe := s.rdb.Pipeline()
	pinnedCmd := pipe.Get(ctx, s.pinnedKey(key))
	recentCmd := pipe.LRange(ctx, s.recentKey(key), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return nil, fmt.Errorf("chat load: %w", err)
	}
	raw, err := pinnedCmd.Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat load pinned: %w", err)
	}
	conv := &Conversation{}
	if err := json.Unmarshal(raw, &conv.Pinned); err != nil {
		return nil, fmt.Errorf("chat decode pinned: %w", err)
	}
	for _, item := range recentCmd.Val() {
		var m llm.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			s.log.Warn("skipping undecodable chat message", "key", s.recentKey(key), "error", err)
			continue
		}
		conv.Recent = append(conv.Recent, m)
	}
	return conv, nil
}

func (s *redisChatStore) Start(ctx context.Context, key ChatKey, pinned []llm.Message) error {
	raw, err := json.Marshal(pinned)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, s.recentKey(key))
	pipe.Set(ctx, s.pinnedKey(key), raw, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("chat start: %w", err)
	}
	return nil
}

func (s *redisChatStore) Append(ctx context.Context, key ChatKey, msgs ...llm.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	items := make([]interface{}, 0, len(msgs))
	for _, m := range msgs {
		raw, err := json.Marshal(m)
		if err != nil {
			return err
		}
		items = append(items, raw)
	}
	pipe := s.rdb.TxPipeline()
	pipe.RPush(ctx, s.recentKey(key), items...)
	pipe.LTrim(ctx, s.recentKey(key), int64(-s.maxMessages), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.recentKey(key), s.ttl)
		pipe.Expire(ctx, s.pinnedKey(key), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("chat append: %w", err)
	}
	return nil
}

func (s *redisChatStore) Clear(ctx context.Context, key ChatKey) error {
	if err := s.rdb.Del(ctx, s.pinnedKey(key), s.recentKey(key)).Err(); err != nil {
		return fmt.Errorf("chat clear: %w", err)
	}
	return nil
}

func (s *redisChatStore) ClearActivity(ctx context.Context, activityID uuid.UUID) error {
	match := fmt.Sprintf("%s:%s:*", s.prefix, activityID)
	iter := s.rdb.Scan(ctx, 0, match, 200).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= 200 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("chat clear activity: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("chat clear activity: %w", err)
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("chat clear activity: %w", err)
		}
	}
	s.log.Debug("chat history cleared", "activity_id", activityID)
	return nil
}
