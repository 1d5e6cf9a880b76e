package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return r, true
	default:
		return "", false
	}
}

type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null;column:email" json:"email"`
	Password      string     `gorm:"not null;column:password" json:"-"`
	FirstName     string     `gorm:"not null;column:first_name" json:"firstName"`
	LastName      string     `gorm:"not null;column:last_name" json:"lastName"`
	Role          Role       `gorm:"type:varchar(16);not null;index;column:role" json:"role"`
	Credits       int        `gorm:"not null;default:0;column:credits" json:"credits"`
	IsActive      bool       `gorm:"not null;default:false;column:is_active" json:"isActive"`
	InstitutionID *uuid.UUID `gorm:"type:uuid;index;column:institution_id" json:"institutionId,omitempty"`

	TeacherProfile *TeacherProfile `gorm:"foreignKey:UserID" json:"teacherProfile,omitempty"`
	StudentProfile *StudentProfile `gorm:"foreignKey:UserID" json:"studentProfile,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
