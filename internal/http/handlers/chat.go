package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatHandler(log *logger.Logger, chat services.ChatService) *ChatHandler {
	return &ChatHandler{log: log.With("handler", "ChatHandler"), chat: chat}
}

// POST /api/chat/:activityId/message
func (h *ChatHandler) SendMessage(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "activityId")
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	reply, err := h.chat.SendMessage(c.Request.Context(), actor, activityID, req.Message)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, reply)
}

// GET /api/chat/:activityId/history
func (h *ChatHandler) History(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "activityId")
	if !ok {
		return
	}
	msgs, err := h.chat.History(c.Request.Context(), actor, activityID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"history": msgs})
}

// DELETE /api/chat/:activityId/clear
func (h *ChatHandler) Clear(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	activityID, ok := uuidParam(c, "activityId")
	if !ok {
		return
	}
	if err := h.chat.Clear(c.Request.Context(), actor, activityID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
