package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/aula-backend/internal/data/dberr"
	"github.com/yungbote/aula-backend/internal/data/repos"
	types "github.com/yungbote/aula-backend/internal/domain"
	"github.com/yungbote/aula-backend/internal/domain/content"
	"github.com/yungbote/aula-backend/internal/modules/textextract"
	"github.com/yungbote/aula-backend/internal/pkg/dbctx"
	"github.com/yungbote/aula-backend/internal/pkg/logger"
	"github.com/yungbote/aula-backend/internal/platform/apierr"
)

// Upload is an attached reference document.
type Upload struct {
	Name string
	Data []byte
}

type GenerateInput struct {
	Title       string
	Instruction string
	Type        string
	Provider    string
	Visibility  string
	Subject     string
	GradeLevel  string
	File        *Upload
}

type GenerateOutput struct {
	Activity         *types.Activity `json:"activity"`
	CreditsUsed      int             `json:"creditsUsed"`
	CreditsRemaining int             `json:"creditsRemaining"`
}

type CreateActivityInput struct {
	Title      string
	Type       string
	Visibility string
	Subject    string
	GradeLevel string
	Content    json.RawMessage
}

type UpdateActivityInput struct {
	Title      *string
	Visibility *string
	Subject    *string
	GradeLevel *string
	Content    json.RawMessage
}

type ActivityListFilter struct {
	Type       string
	Subject    string
	GradeLevel string
	Visibility string
	Page       Page
}

type ActivityService interface {
	Generate(ctx context.Context, actor Actor, in GenerateInput) (*GenerateOutput, error)
	Create(ctx context.Context, actor Actor, in CreateActivityInput) (*types.Activity, error)
	GetByID(ctx context.Context, actor Actor, id uuid.UUID) (*types.Activity, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID, f ActivityListFilter) ([]*types.Activity, int64, error)
	ListPublic(ctx context.Context, f ActivityListFilter) ([]*types.Activity, int64, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateActivityInput) (*types.Activity, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
}

type activityService struct {
	db         *gorm.DB
	log        *logger.Logger
	activities repos.ActivityRepo
	credits    CreditService
	ai         AIService
	chats      ChatStore
}

func NewActivityService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	credits CreditService,
	ai AIService,
	chats ChatStore,
) ActivityService {
	return &activityService{
		db:         db,
		log:        baseLog.With("service", "ActivityService"),
		activities: activities,
		credits:    credits,
		ai:         ai,
		chats:      chats,
	}
}

func (s *activityService) Generate(ctx context.Context, actor Actor, in GenerateInput) (*GenerateOutput, error) {
	typ, ok := types.ParseActivityType(in.Type)
	if !ok {
		return nil, apierr.Validation("invalid_type", fmt.Sprintf("unknown activity type %q", in.Type)).
			WithFields(apierr.FieldError{Field: "type", Rule: "oneof"})
	}
	provider, ok := types.ParseProvider(in.Provider)
	if !ok {
		return nil, apierr.Validation("unknown_provider", fmt.Sprintf("unknown provider %q", in.Provider)).
			WithFields(apierr.FieldError{Field: "provider", Rule: "oneof"})
	}
	visibility, ok := types.ParseVisibility(in.Visibility)
	if !ok {
		return nil, apierr.Validation("invalid_visibility", "visibility must be PRIVATE or PUBLIC").
			WithFields(apierr.FieldError{Field: "visibility", Rule: "oneof"})
	}
	instruction := strings.TrimSpace(in.Instruction)
	if instruction == "" && in.File == nil {
		return nil, apierr.Validation("missing_instruction", "instruction or reference file is required").
			WithFields(apierr.FieldError{Field: "instruction", Rule: "required"})
	}

	cost, err := s.credits.CostFor(provider)
	if err != nil {
		return nil, err
	}
	balance, err := s.credits.GetBalance(dbctx.Context{Ctx: ctx}, actor.UserID)
	if err != nil {
		return nil, err
	}
	if balance < cost {
		return nil, apierr.InsufficientCredits(balance, cost)
	}

	var docText, fileName string
	if in.File != nil {
		fileName = in.File.Name
		docText, err = textextract.Extract(in.File.Name, in.File.Data)
		if err != nil {
			s.log.Warn("attachment extraction failed", "file", in.File.Name, "error", err)
			if errors.Is(err, textextract.ErrTooLarge) {
				return nil, apierr.New(apierr.KindValidation, "file_too_large", "attached file expands past the size limit", err)
			}
			return nil, apierr.New(apierr.KindValidation, "unreadable_file", "could not read the attached file", err)
		}
	}
	if instruction == "" {
		instruction = fmt.Sprintf("Create a %s based on the reference document.", strings.ToLower(strings.ReplaceAll(string(typ), "_", " ")))
	}

	gen, err := s.ai.Generate(ctx, GenerationSpec{
		Instruction:  instruction,
		Provider:     provider,
		Type:         typ,
		Subject:      in.Subject,
		GradeLevel:   in.GradeLevel,
		DocumentText: docText,
	})
	if err != nil {
		return nil, err
	}
	body := gen.Content
	if typ == content.TypeChatbot {
		body = s.withChatbotDefaults(body, instruction)
	}

	activity := &types.Activity{
		ID:             uuid.New(),
		UserID:         actor.UserID,
		Type:           typ,
		Title:          pickTitle(in.Title, body, typ, in.Subject),
		Visibility:     visibility,
		Subject:        strings.TrimSpace(in.Subject),
		GradeLevel:     strings.TrimSpace(in.GradeLevel),
		Prompt:         instruction,
		Content:        datatypes.JSON(body),
		Provider:       provider,
		CreditCost:     cost,
		TokensUsed:     gen.TokensUsed,
		SourceFileName: fileName,
	}
	var remaining int
	err = dbctx.Run(dbctx.Context{Ctx: ctx}, s.db, func(inner dbctx.Context) error {
		if err := s.activities.Create(inner, activity); err != nil {
			return dberr.Map("create activity", err)
		}
		entry, err := s.credits.Debit(inner, DebitInput{
			UserID:      actor.UserID,
			Amount:      cost,
			Provider:    provider,
			Description: fmt.Sprintf("Generated %s: %s", typ, activity.Title),
			ActivityID:  &activity.ID,
		})
		if err != nil {
			return err
		}
		remaining = entry.BalanceAfter
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("activity generated", "activity_id", activity.ID, "user_id", actor.UserID, "type", typ, "provider", provider, "cost", cost)
	return &GenerateOutput{Activity: activity, CreditsUsed: cost, CreditsRemaining: remaining}, nil
}

// withChatbotDefaults guarantees the systemPrompt and welcomeMessage a chatbot needs to run.
func (s *activityService) withChatbotDefaults(body json.RawMessage, instruction string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return body
	}
	if !hasString(obj, "systemPrompt") {
		sp, _ := json.Marshal("You are a patient tutor. Stay on this topic and guide the student with questions: " + instruction)
		obj["systemPrompt"] = sp
	}
	if !hasString(obj, "welcomeMessage") {
		welcome := "Hi! What would you like to work on today?"
		if tpl, ok := s.ai.Template(content.TypeChatbot); ok && tpl.Welcome != "" {
			welcome = tpl.Welcome
		}
		wm, _ := json.Marshal(welcome)
		obj["welcomeMessage"] = wm
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return body
	}
	return out
}

func hasString(obj map[string]json.RawMessage, key string) bool {
	raw, ok := obj[key]
	if !ok {
		return false
	}
	var s string
	return json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != ""
}

func pickTitle(explicit string, body json.RawMessage, typ types.ActivityType, subject string) string {
	if t := strings.TrimSpace(explicit); t != "" {
		return t
	}
	var probe struct {
		Title string `json:"title"`
	}
	if json.Unmarshal(body, &probe) == nil && strings.TrimSpace(probe.Title) != "" {
		return strings.TrimSpace(probe.Title)
	}
	if s := strings.TrimSpace(subject); s != "" {
		return fmt.Sprintf("%s - %s", typ, s)
	}
	return string(typ)
}

func (s *activityService) Create(ctx context.Context, actor Actor, in CreateActivityInput) (*types.Activity, error) {
	typ, ok := types.ParseActivityType(in.Type)
	if !ok {
		return nil, apierr.Validation("invalid_type", fmt.Sprintf("unknown activity type %q", in.Type))
	}
	visibility, ok := types.ParseVisibility(in.Visibility)
	if !ok {
		return nil, apierr.Validation("invalid_visibility", "visibility must be PRIVATE or PUBLIC")
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, apierr.Validation("missing_title", "title is required").
			WithFields(apierr.FieldError{Field: "title", Rule: "required"})
	}
	body, err := normalizeContent(in.Content)
	if err != nil {
		return nil, err
	}
	a := &types.Activity{
		UserID:     actor.UserID,
		Type:       typ,
		Title:      strings.TrimSpace(in.Title),
		Visibility: visibility,
		Subject:    strings.TrimSpace(in.Subject),
		GradeLevel: strings.TrimSpace(in.GradeLevel),
		Content:    datatypes.JSON(body),
	}
	if err := s.activities.Create(dbctx.Context{Ctx: ctx}, a); err != nil {
		return nil, dberr.Map("create activity", err)
	}
	return a, nil
}

func normalizeContent(raw json.RawMessage) ([]byte, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return []byte("{}"), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, apierr.Validation("invalid_content", "content must be a JSON object").
			WithFields(apierr.FieldError{Field: "content", Rule: "json_object"})
	}
	return raw, nil
}

func (s *activityService) load(ctx context.Context, id uuid.UUID) (*types.Activity, error) {
	a, err := s.activities.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, dberr.Map("get activity", err)
	}
	if a == nil {
		return nil, apierr.NotFound("activity_not_found", "activity not found")
	}
	return a, nil
}

func (s *activityService) GetByID(ctx context.Context, actor Actor, id uuid.UUID) (*types.Activity, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Visibility == types.VisibilityPrivate && a.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apierr.Forbidden("access_denied", "you do not have access to this activity")
	}
	return a, nil
}

func (s *activityService) ownedForWrite(ctx context.Context, actor Actor, id uuid.UUID) (*types.Activity, error) {
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, apierr.Forbidden("not_owner", "only the owner can modify this activity")
	}
	return a, nil
}

func (s *activityService) toRepoFilter(f ActivityListFilter) (repos.ActivityFilter, error) {
	rf := repos.ActivityFilter{
		Subject:    strings.TrimSpace(f.Subject),
		GradeLevel: strings.TrimSpace(f.GradeLevel),
		Offset:     f.Page.Offset(),
		Limit:      f.Page.Limit(),
	}
	if strings.TrimSpace(f.Type) != "" {
		typ, ok := types.ParseActivityType(f.Type)
		if !ok {
			return rf, apierr.Validation("invalid_type", fmt.Sprintf("unknown activity type %q", f.Type))
		}
		rf.Type = typ
	}
	if strings.TrimSpace(f.Visibility) != "" {
		v, ok := types.ParseVisibility(f.Visibility)
		if !ok {
			return rf, apierr.Validation("invalid_visibility", "visibility must be PRIVATE or PUBLIC")
		}
		rf.Visibility = v
	}
	return rf, nil
}

func (s *activityService) ListForOwner(ctx context.Context, ownerID uuid.UUID, f ActivityListFilter) ([]*types.Activity, int64, error) {
	rf, err := s.toRepoFilter(f)
	if err != nil {
		return nil, 0, err
	}
	rf.OwnerID = &ownerID
	rows, total, err := s.activities.List(dbctx.Context{Ctx: ctx}, rf)
	if err != nil {
		return nil, 0, dberr.Map("list activities", err)
	}
	return rows, total, nil
}

func (s *activityService) ListPublic(ctx context.Context, f ActivityListFilter) ([]*types.Activity, int64, error) {
	f.Visibility = ""
	rf, err := s.toRepoFilter(f)
	if err != nil {
		return nil, 0, err
	}
	rf.Visibility = types.VisibilityPublic
	rows, total, err := s.activities.List(dbctx.Context{Ctx: ctx}, rf)
	if err != nil {
		return nil, 0, dberr.Map("list public activities", err)
	}
	return rows, total, nil
}

func (s *activityService) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateActivityInput) (*types.Activity, error) {
	if _, err := s.ownedForWrite(ctx, actor, id); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apierr.Validation("missing_title", "title cannot be empty")
		}
		updates["title"] = t
	}
	if in.Visibility != nil {
		v, ok := types.ParseVisibility(*in.Visibility)
		if !ok {
			return nil, apierr.Validation("invalid_visibility", "visibility must be PRIVATE or PUBLIC")
		}
		updates["visibility"] = v
	}
	if in.Subject != nil {
		updates["subject"] = strings.TrimSpace(*in.Subject)
	}
	if in.GradeLevel != nil {
		updates["grade_level"] = strings.TrimSpace(*in.GradeLevel)
	}
	if in.Content != nil {
		body, err := normalizeContent(in.Content)
		if err != nil {
			return nil, err
		}
		updates["content"] = datatypes.JSON(body)
	}
	if len(updates) > 0 {
		if err := s.activities.UpdateFields(dbctx.Context{Ctx: ctx}, id, updates); err != nil {
			return nil, dberr.Map("update activity", err)
		}
	}
	return s.load(ctx, id)
}

func (s *activityService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.ownedForWrite(ctx, actor, id); err != nil {
		return err
	}
	if err := s.activities.Delete(dbctx.Context{Ctx: ctx}, id); err != nil {
		return dberr.Map("delete activity", err)
	}
	if s.chats != nil {
		if err := s.chats.ClearActivity(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Warn("clearing chat history failed", "activity_id", id, "error", err)
		}
	}
	return nil
}
