package content

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ActivityType string

const (
	TypeExam       ActivityType = "EXAM"
	TypeQuiz       ActivityType = "QUIZ"
	TypeSummary    ActivityType = "SUMMARY"
	TypeChatbot    ActivityType = "CHATBOT"
	TypeLessonPlan ActivityType = "LESSON_PLAN"
	TypeWorksheet  ActivityType = "WORKSHEET"
	TypeFlashcards ActivityType = "FLASHCARDS"
	TypeRubric     ActivityType = "RUBRIC"
	TypeStudyGuide ActivityType = "STUDY_GUIDE"
	TypeConceptMap ActivityType = "CONCEPT_MAP"
	TypeGlossary   ActivityType = "GLOSSARY"
)

// ActivityTypes lists every supported kind in display order.
var ActivityTypes = []ActivityType{
	TypeExam, TypeQuiz, TypeSummary, TypeChatbot, TypeLessonPlan, TypeWorksheet,
	TypeFlashcards, TypeRubric, TypeStudyGuide, TypeConceptMap, TypeGlossary,
}

func ParseActivityType(s string) (ActivityType, bool) {
	t := ActivityType(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range ActivityTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// HasQuestions reports whether content is a list of question/options/answer items.
func (t ActivityType) HasQuestions() bool {
	return t == TypeExam || t == TypeQuiz
}

type Visibility string

const (
	VisibilityPrivate Visibility = "PRIVATE"
	VisibilityPublic  Visibility = "PUBLIC"
)

func ParseVisibility(s string) (Visibility, bool) {
	switch v := Visibility(strings.ToUpper(strings.TrimSpace(s))); v {
	case VisibilityPrivate, VisibilityPublic:
		return v, true
	case "":
		return VisibilityPrivate, true
	default:
		return "", false
	}
}

type Provider string

const (
	ProviderOpenAI Provider = "OPENAI"
	ProviderGemini Provider = "GEMINI"
	ProviderOllama Provider = "OLLAMA"
)

var Providers = []Provider{ProviderOpenAI, ProviderGemini, ProviderOllama}

func ParseProvider(s string) (Provider, bool) {
	p := Provider(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, true
		}
	}
	return "", false
}

type Activity struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"userId"`
	Type           ActivityType   `gorm:"type:varchar(32);not null;index;column:type" json:"type"`
	Title          string         `gorm:"not null;column:title" json:"title"`
	Visibility     Visibility     `gorm:"type:varchar(16);not null;index;column:visibility" json:"visibility"`
	Subject        string         `gorm:"index;column:subject" json:"subject,omitempty"`
	GradeLevel     string         `gorm:"index;column:grade_level" json:"gradeLevel,omitempty"`
	Prompt         string         `gorm:"type:text;column:prompt" json:"prompt,omitempty"`
	Content        datatypes.JSON `gorm:"column:content" json:"content"`
	Provider       Provider       `gorm:"type:varchar(16);column:provider" json:"provider,omitempty"`
	CreditCost     int            `gorm:"not null;default:0;column:credit_cost" json:"creditCost"`
	TokensUsed     int            `gorm:"not null;default:0;column:tokens_used" json:"tokensUsed"`
	SourceFileName string         `gorm:"column:source_file_name" json:"sourceFileName,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Activity) TableName() string { return "activity" }

func (a *Activity) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Visibility == "" {
		a.Visibility = VisibilityPrivate
	}
	return nil
}
