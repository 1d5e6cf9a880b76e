package enrollment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/domain/school"
)

type CodeStatus string

const (
	StatusActive   CodeStatus = "ACTIVE"
	StatusExpired  CodeStatus = "EXPIRED"
	StatusDepleted CodeStatus = "DEPLETED"
	StatusInactive CodeStatus = "INACTIVE"
)

type InvitationCode struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string     `gorm:"type:varchar(16);uniqueIndex;not null;column:code" json:"code"`
	GradeID       uuid.UUID  `gorm:"type:uuid;not null;index;column:grade_id" json:"gradeId"`
	InstitutionID uuid.UUID  `gorm:"type:uuid;not null;index;column:institution_id" json:"institutionId"`
	CreatedByID   uuid.UUID  `gorm:"type:uuid;not null;index;column:created_by_id" json:"createdById"`
	Description   string     `gorm:"column:description" json:"description,omitempty"`
	MaxUses       *int       `gorm:"column:max_uses" json:"maxUses,omitempty"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expiresAt,omitempty"`
	UsedCount     int        `gorm:"not null;default:0;column:used_count" json:"usedCount"`
	IsActive      bool       `gorm:"not null;default:false;column:is_active" json:"isActive"`

	Grade       *school.Grade       `gorm:"foreignKey:GradeID" json:"grade,omitempty"`
	Institution *school.Institution `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (InvitationCode) TableName() string { return "invitation_code" }

func (c *InvitationCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Status derives the code's state; inactive wins over expired, expired over depleted.
func (c *InvitationCode) Status(now time.Time) CodeStatus {
	switch {
	case !c.IsActive:
		return StatusInactive
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return StatusExpired
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return StatusDepleted
	default:
		return StatusActive
	}
}

// RemainingUses is nil for unlimited codes.
func (c *InvitationCode) RemainingUses() *int {
	if c.MaxUses == nil {
		return nil
	}
	left := *c.MaxUses - c.UsedCount
	if left < 0 {
		left = 0
	}
	return &left
}
