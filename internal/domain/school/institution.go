package school

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Institution is soft-deleted by clearing IsActive; rows are never removed.
type Institution struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name     string    `gorm:"not null;column:name" json:"name"`
	Code     *string   `gorm:"uniqueIndex;column:code" json:"code,omitempty"`
	Address  string    `gorm:"column:address" json:"address,omitempty"`
	Phone    string    `gorm:"column:phone" json:"phone,omitempty"`
	Email    string    `gorm:"column:email" json:"email,omitempty"`
	IsActive bool      `gorm:"not null;default:false;column:is_active" json:"isActive"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Institution) TableName() string { return "institution" }

func (i *Institution) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
