package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreditHistory is append-only: one row per balance mutation, Amount is signed.
type CreditHistory struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	Amount       int        `gorm:"not null;column:amount" json:"amount"`
	BalanceAfter int        `gorm:"not null;column:balance_after" json:"balanceAfter"`
	Description  string     `gorm:"column:description" json:"description"`
	Provider     *string    `gorm:"column:provider" json:"provider,omitempty"`
	ActivityID   *uuid.UUID `gorm:"type:uuid;index;column:activity_id" json:"activityId,omitempty"`
	CreatedByID  *uuid.UUID `gorm:"type:uuid;column:created_by_id" json:"createdById,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;index" json:"createdAt"`
}

func (CreditHistory) TableName() string { return "credit_history" }

func (h *CreditHistory) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
