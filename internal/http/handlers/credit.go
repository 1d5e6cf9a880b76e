package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/aula-backend/internal/http/response"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/services"
)

type CreditHandler struct {
	log     *logger.Logger
	credits services.CreditService
}

func NewCreditHandler(log *logger.Logger, credits services.CreditService) *CreditHandler {
	return &CreditHandler{log: log.With("handler", "CreditHandler"), credits: credits}
}

// GET /api/credits/balance
func (h *CreditHandler) Balance(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	bal, err := h.credits.GetBalance(dbctx.Context{Ctx: c.Request.Context()}, actor.UserID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"credits": bal})
}

// GET /api/credits/history
func (h *CreditHandler) History(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	p := pageQuery(c)
	rows, total, err := h.credits.History(dbctx.Context{Ctx: c.Request.Context()}, actor.UserID, p)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, pageResponse(rows, total, p))
}

// GET /api/credits/costs
func (h *CreditHandler) Costs(c *gin.Context) {
	response.RespondOK(c, gin.H{"costs": h.credits.Costs()})
}

// POST /api/credits/add
func (h *CreditHandler) Add(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req struct {
		UserID      uuid.UUID `json:"userId" binding:"required"`
		Amount      int       `json:"amount" binding:"required"`
		Description string    `json:"description"`
	}
	if !bindJSON(c, &req) {
		return
	}
	desc := req.Description
	if desc == "" {
		desc = "Administrative credit top-up"
	}
	row, err := h.credits.Credit(dbctx.Context{Ctx: c.Request.Context()}, services.CreditInput{
		UserID:      req.UserID,
		Amount:      req.Amount,
		Description: desc,
		CreatedByID: &actor.UserID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	h.log.Info("credits added", "user_id", req.UserID, "amount", req.Amount, "admin_id", actor.UserID)
	response.RespondOK(c, gin.H{"entry": row, "credits": row.BalanceAfter})
}
