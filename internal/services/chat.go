package services

import (
	"context"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/domain/content"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
	"github.com/yungbote/aula-backend/internal/platform/llm"
)

const maxChatMessageRunes = 4000

type ChatReply struct {
	Reply   string        `json:"reply"`
	History []llm.Message `json:"history"`
}

type ChatService interface {
	SendMessage(ctx context.Context, actor Actor, activityID uuid.UUID, text string) (*ChatReply, error)
	History(ctx context.Context, actor Actor, activityID uuid.UUID) ([]llm.Message, error)
	Clear(ctx context.Context, actor Actor, activityID uuid.UUID) error
}

type chatService struct {
	log        *logger.Logger
	activities ActivityService
	ai         AIService
	store      ChatStore
}

func NewChatService(baseLog *logger.Logger, activities ActivityService, ai AIService, store ChatStore) ChatService {
	return &chatService{
		log:        baseLog.With("service", "ChatService"),
		activities: activities,
		ai:         ai,
		store:      store,
	}
}

type chatbotContent struct {
	SystemPrompt   string `json:"systemPrompt"`
	WelcomeMessage string `json:"welcomeMessage"`
}

func (s *chatService) chatbot(ctx context.Context, actor Actor, activityID uuid.UUID) (*types.Activity, error) {
	a, err := s.activities.GetByID(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	if a.Type != content.TypeChatbot {
		return nil, apierr.Validation("not_a_chatbot", "this activity is not a chatbot")
	}
	return a, nil
}

// pinned is the preamble every turn is sent with: the tutor's system prompt and its greeting.
func pinned(a *types.Activity) []llm.Message {
	var c chatbotContent
	_ = json.Unmarshal(a.Content, &c)
	out := []llm.Message{}
	if sp := strings.TrimSpace(c.SystemPrompt); sp != "" {
		out = append(out, llm.Message{Role: llm.RoleSystem, Content: sp})
	}
	if wm := strings.TrimSpace(c.WelcomeMessage); wm != "" {
		out = append(out, llm.Message{Role: llm.RoleAssistant, Content: wm})
	}
	return out
}

func (s *chatService) SendMessage(ctx context.Context, actor Actor, activityID uuid.UUID, text string) (*ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apierr.Validation("empty_message", "message is required").
			WithFields(apierr.FieldError{Field: "message", Rule: "required"})
	}
	if utf8.RuneCountInString(text) > maxChatMessageRunes {
		return nil, apierr.Validation("message_too_long", "message is too long").
			WithFields(apierr.FieldError{Field: "message", Rule: "max"})
	}
	a, err := s.chatbot(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	key := ChatKey{UserID: actor.UserID, ActivityID: activityID}
	conv, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, apierr.Internal("chat_store_failed", err)
	}
	fresh := conv == nil
	if fresh {
		conv = &Conversation{Pinned: pinned(a)}
	}
	userMsg := llm.Message{Role: llm.RoleUser, Content: text}
	reply, err := s.ai.Chat(ctx, a.Provider, append(conv.Messages(), userMsg))
	if err != nil {
		return nil, err
	}
	assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: reply}
	if fresh {
		if err := s.store.Start(ctx, key, conv.Pinned); err != nil {
			return nil, apierr.Internal("chat_store_failed", err)
		}
	}
	if err := s.store.Append(ctx, key, userMsg, assistantMsg); err != nil {
		return nil, apierr.Internal("chat_store_failed", err)
	}
	history, err := s.History(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	return &ChatReply{Reply: reply, History: history}, nil
}

// History returns the visible transcript: the greeting and the retained turns, never the system prompt.
func (s *chatService) History(ctx context.Context, actor Actor, activityID uuid.UUID) ([]llm.Message, error) {
	a, err := s.chatbot(ctx, actor, activityID)
	if err != nil {
		return nil, err
	}
	conv, err := s.store.Load(ctx, ChatKey{UserID: actor.UserID, ActivityID: activityID})
	if err != nil {
		return nil, apierr.Internal("chat_store_failed", err)
	}
	if conv == nil {
		conv = &Conversation{Pinned: pinned(a)}
	}
	out := []llm.Message{}
	for _, m := range conv.Messages() {
		if m.Role != llm.RoleSystem {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *chatService) Clear(ctx context.Context, actor Actor, activityID uuid.UUID) error {
	if _, err := s.chatbot(ctx, actor, activityID); err != nil {
		return err
	}
	if err := s.store.Clear(ctx, ChatKey{UserID: actor.UserID, ActivityID: activityID}); err != nil {
		return apierr.Internal("chat_store_failed", err)
	}
	return nil
}
