package school

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/domain/user"
)

type Grade struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string    `gorm:"not null;column:name" json:"name"`
	Level            string    `gorm:"column:level" json:"level,omitempty"`
	Section          string    `gorm:"column:section" json:"section,omitempty"`
	AcademicYear     string    `gorm:"column:academic_year" json:"academicYear,omitempty"`
	Description      string    `gorm:"column:description" json:"description,omitempty"`
	InstitutionID    uuid.UUID `gorm:"type:uuid;not null;index;column:institution_id" json:"institutionId"`
	TeacherProfileID uuid.UUID `gorm:"type:uuid;not null;index;column:teacher_profile_id" json:"teacherProfileId"`
	IsActive         bool      `gorm:"not null;default:false;column:is_active" json:"isActive"`

	Institution *Institution         `gorm:"foreignKey:InstitutionID" json:"institution,omitempty"`
	Teacher     *user.TeacherProfile `gorm:"foreignKey:TeacherProfileID" json:"teacher,omitempty"`
	Students    []*user.StudentProfile `gorm:"many2many:grade_student;joinForeignKey:GradeID;joinReferences:StudentProfileID" json:"students,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Grade) TableName() string { return "grade" }

func (g *Grade) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// GradeStudent is the enrollment join; the (grade, student) pair is unique.
type GradeStudent struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	GradeID          uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_grade_student_pair;column:grade_id" json:"gradeId"`
	StudentProfileID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_grade_student_pair;index;column:student_profile_id" json:"studentProfileId"`
	InvitationCodeID *uuid.UUID `gorm:"type:uuid;column:invitation_code_id" json:"invitationCodeId,omitempty"`
	EnrolledAt       time.Time  `gorm:"not null;column:enrolled_at" json:"enrolledAt"`
}

func (GradeStudent) TableName() string { return "grade_student" }

func (gs *GradeStudent) BeforeCreate(*gorm.DB) error {
	if gs.ID == uuid.Nil {
		gs.ID = uuid.New()
	}
	if gs.EnrolledAt.IsZero() {
		gs.EnrolledAt = time.Now().UTC()
	}
	return nil
}
