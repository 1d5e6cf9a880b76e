package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TeacherProfile exists exactly when the owning user has RoleTeacher.
type TeacherProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"userId"`
	Specialty string    `gorm:"column:specialty" json:"specialty,omitempty"`
	Phone     string    `gorm:"column:phone" json:"phone,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (TeacherProfile) TableName() string { return "teacher_profile" }

func (p *TeacherProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StudentProfile exists exactly when the owning user has RoleStudent.
type StudentProfile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"userId"`
	StudentCode   string    `gorm:"column:student_code" json:"studentCode,omitempty"`
	GuardianName  string    `gorm:"column:guardian_name" json:"guardianName,omitempty"`
	GuardianPhone string    `gorm:"column:guardian_phone" json:"guardianPhone,omitempty"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (StudentProfile) TableName() string { return "student_profile" }

func (p *StudentProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
